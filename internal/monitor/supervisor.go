package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/ibc-watcher/internal/core/domain"
)

// Store is the shared gauge store the supervisor hands to every task.
type Store interface {
	Sink
	Resetter
}

// SupervisorConfig holds what the supervisor needs to spawn its tasks.
type SupervisorConfig struct {
	Chains        []domain.ChainSpec
	ResetInterval time.Duration

	Querier Querier
	Store   Store
	Clock   Clock
	Logger  *slog.Logger
}

// Supervisor owns one backlog monitor and one client monitor per channel,
// plus the reset scheduler when a reset interval is configured.
type Supervisor struct {
	backlogs []*BacklogMonitor
	clients  []*ClientMonitor
	reset    *ResetScheduler
	log      *slog.Logger
}

// NewSupervisor builds every task without starting any of them.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Supervisor{log: cfg.Logger}

	for _, chain := range cfg.Chains {
		for _, channel := range chain.Channels {
			mcfg := Config{
				ChainID:  chain.ChainID,
				Endpoint: chain.EndpointAddress,
				Channel:  channel,
				Querier:  cfg.Querier,
				Sink:     cfg.Store,
				Clock:    cfg.Clock,
				Logger:   cfg.Logger,
			}
			s.backlogs = append(s.backlogs, NewBacklogMonitor(mcfg))
			s.clients = append(s.clients, NewClientMonitor(mcfg))
		}
	}

	if cfg.ResetInterval > 0 {
		s.reset = NewResetScheduler(cfg.ResetInterval, cfg.Store, cfg.Clock, cfg.Logger)
	}

	return s
}

// Tasks returns the number of goroutines Run starts.
func (s *Supervisor) Tasks() int {
	n := len(s.backlogs) + len(s.clients)
	if s.reset != nil {
		n++
	}
	return n
}

// Run starts every task and blocks until ctx is cancelled and all of them
// have returned.
func (s *Supervisor) Run(ctx context.Context) error {
	var g errgroup.Group

	for _, m := range s.backlogs {
		g.Go(s.guard(ctx, m.ref, "backlog", m.Run))
	}
	for _, m := range s.clients {
		g.Go(s.guard(ctx, m.ref, "client", m.Run))
	}
	if s.reset != nil {
		g.Go(func() error {
			s.reset.Run(ctx)
			return nil
		})
	}

	s.log.Info("Monitors started", "tasks", s.Tasks())
	return g.Wait()
}

// guard confines a crashing monitor to its own goroutine. The other channels
// keep running.
func (s *Supervisor) guard(ctx context.Context, ref domain.ChannelRef, kind string, run func(context.Context)) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("Monitor stopped on internal error",
					"monitor", kind,
					"channel", ref.String(),
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()))
			}
		}()
		run(ctx)
		return nil
	}
}
