// Package monitor runs the per-channel health loops: one backlog monitor and
// one client monitor per configured channel, plus an optional reset loop.
package monitor

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/vietddude/ibc-watcher/internal/core/domain"
)

// Querier is the remote chain state a monitor reads. Every call is a single
// request and is never retried by the implementation.
type Querier interface {
	PacketCommitmentsTotal(ctx context.Context, portID, channelID, endpoint string) (uint64, error)
	TrustingPeriod(ctx context.Context, portID, channelID, endpoint string) (time.Duration, error)
	LatestClientHeight(ctx context.Context, portID, channelID, endpoint string) (domain.Height, error)
	ConsensusTimestamp(ctx context.Context, portID, channelID string, height domain.Height, endpoint string) (time.Duration, error)
}

// Sink receives the gauges a monitor publishes.
type Sink interface {
	SetBacklogStatus(ref domain.ChannelRef, minTotal string, status int64)
	SetBacklogCount(ref domain.ChannelRef, minTotal string, count int64)
	SetQueryStatus(ref domain.ChannelRef, endpoint string, status int64)
	SetClientStatus(ref domain.ChannelRef, minTimeBeforeExpiration string, status int64)
	SetClientTimeBeforeExpire(ref domain.ChannelRef, minTimeBeforeExpiration string, seconds int64)
}

// Gauge values.
const (
	statusOK   int64 = 0
	statusFail int64 = 1
)

// Config holds the dependencies of a single channel monitor.
type Config struct {
	ChainID  domain.ChainID
	Endpoint string
	Channel  domain.ChannelSpec

	Querier Querier
	Sink    Sink
	Clock   Clock
	Logger  *slog.Logger
}

func (c *Config) setDefaults() {
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// runEvery calls fn immediately and then on every tick until ctx ends. fn runs
// on the calling goroutine, so calls never overlap.
func runEvery(ctx context.Context, clock Clock, interval time.Duration, immediate bool, fn func(context.Context)) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	if immediate {
		fn(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			fn(ctx)
		}
	}
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
