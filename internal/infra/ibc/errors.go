package ibc

import "errors"

var (
	// ErrQueryFailed is wrapped by every error returned from a query.
	ErrQueryFailed = errors.New("ibc query failed")

	// ErrMissingField means the response decoded but lacked a required field.
	ErrMissingField = errors.New("missing field in response")

	// ErrUnsupportedClientState means the channel's client is not a tendermint light client.
	ErrUnsupportedClientState = errors.New("unsupported client state type")
)
