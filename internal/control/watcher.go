// Package control wires the query client, the gauge store, the channel
// monitors and the HTTP server into one process lifecycle.
package control

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/ibc-watcher/internal/health"
	"github.com/vietddude/ibc-watcher/internal/infra/ibc"
	"github.com/vietddude/ibc-watcher/internal/monitor"
	"github.com/vietddude/ibc-watcher/internal/telemetry"
)

// Watcher is the main application struct that manages the monitor lifecycle.
type Watcher struct {
	cfg          Config
	client       *ibc.Client
	store        *telemetry.Store
	supervisor   *monitor.Supervisor
	healthServer *health.Server
	log          *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a new Watcher with every channel monitor built but not
// started.
func NewWatcher(cfg Config) (*Watcher, error) {
	if len(cfg.Chains) == 0 {
		return nil, errors.New("no chains configured")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := ibc.NewClient(cfg.DialOptions...)
	store := telemetry.NewStore()

	supervisor := monitor.NewSupervisor(monitor.SupervisorConfig{
		Chains:        cfg.Chains,
		ResetInterval: cfg.ResetInterval,
		Querier:       client,
		Store:         store,
		Logger:        logger,
	})

	healthMon := health.NewMonitor(store, health.DefaultCacheTTL)
	healthServer := health.NewServer(healthMon, store, cfg.Host, cfg.Port, logger)

	return &Watcher{
		cfg:          cfg,
		client:       client,
		store:        store,
		supervisor:   supervisor,
		healthServer: healthServer,
		log:          logger,
	}, nil
}

// Store returns the gauge store every monitor writes to.
func (w *Watcher) Store() *telemetry.Store {
	return w.store
}

// Start starts the HTTP server and every monitor. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return errors.New("watcher already started")
	}

	go func() {
		if err := w.healthServer.Start(); err != nil {
			w.log.Error("Metrics server failed", "addr", w.healthServer.Addr(), "error", err)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		if err := w.supervisor.Run(runCtx); err != nil {
			w.log.Error("Supervisor stopped", "error", err)
		}
	}()

	w.log.Info("Watcher started",
		"chains", len(w.cfg.Chains),
		"tasks", w.supervisor.Tasks(),
		"reset", w.cfg.ResetInterval)
	return nil
}

// Stop cancels every monitor, waits for them until ctx expires, then closes
// the connections and the HTTP server.
func (w *Watcher) Stop(ctx context.Context) error {
	w.log.Info("Stopping watcher...")
	start := time.Now()

	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	var errs []error
	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	if err := w.client.Close(); err != nil {
		w.log.Warn("Failed to close gRPC connections", "error", err)
	}
	if err := w.healthServer.Stop(ctx); err != nil {
		errs = append(errs, err)
	}

	w.log.Info("Watcher stopped", "took", time.Since(start))
	return errors.Join(errs...)
}
