package monitor

import (
	"context"
	"log/slog"
	"time"
)

// Resetter clears every published series.
type Resetter interface {
	ResetAll()
}

// ResetScheduler clears the store on a fixed interval so that a channel whose
// monitor stopped publishing shows up as missing data instead of stale data.
type ResetScheduler struct {
	interval time.Duration
	store    Resetter
	clock    Clock
	log      *slog.Logger
}

// NewResetScheduler creates a new reset scheduler.
func NewResetScheduler(interval time.Duration, store Resetter, clock Clock, logger *slog.Logger) *ResetScheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResetScheduler{
		interval: interval,
		store:    store,
		clock:    clock,
		log:      logger.With("component", "reset"),
	}
}

// Run resets the store every interval until ctx is cancelled.
func (r *ResetScheduler) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	r.log.Info("Starting metrics reset", "interval", r.interval)
	runEvery(ctx, r.clock, r.interval, false, func(context.Context) {
		r.log.Info("Reset metrics")
		r.store.ResetAll()
	})
}
