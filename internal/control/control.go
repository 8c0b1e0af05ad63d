package control

import (
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"

	"github.com/vietddude/ibc-watcher/internal/core/config"
	"github.com/vietddude/ibc-watcher/internal/core/domain"
)

// Config holds the application configuration.
type Config struct {
	Host          string
	Port          int
	ResetInterval time.Duration
	Chains        []domain.ChainSpec

	// DialOptions are appended to the options of every gRPC connection.
	DialOptions []grpc.DialOption
	Logger      *slog.Logger
}

// ConfigFromApp validates a loaded file and turns it into a watcher config.
func ConfigFromApp(app *config.AppConfig, logger *slog.Logger) (Config, error) {
	chains, err := app.ChainSpecs()
	if err != nil {
		return Config{}, fmt.Errorf("failed to build chain specs: %w", err)
	}
	return Config{
		Host:          app.Prometheus.Host,
		Port:          app.Prometheus.Port,
		ResetInterval: app.Prometheus.Reset.Std(),
		Chains:        chains,
		Logger:        logger,
	}, nil
}
