package main

import "github.com/vietddude/ibc-watcher/internal/cli"

func main() {
	cli.Execute()
}
