package monitor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc/status"

	"github.com/vietddude/ibc-watcher/internal/core/domain"
)

// BacklogMonitor polls the packet commitment backlog of one channel and
// compares it against the channel's min_total. It keeps no state between
// ticks.
type BacklogMonitor struct {
	cfg      Config
	ref      domain.ChannelRef
	minTotal string
	log      *slog.Logger
}

// NewBacklogMonitor creates a new backlog monitor.
func NewBacklogMonitor(cfg Config) *BacklogMonitor {
	cfg.setDefaults()
	ref := cfg.Channel.Ref(cfg.ChainID)

	return &BacklogMonitor{
		cfg:      cfg,
		ref:      ref,
		minTotal: cfg.Channel.MinTotalLabel(),
		log: cfg.Logger.With(
			"monitor", "backlog",
			"task_id", uuid.NewString(),
			"chain_id", ref.ChainID,
			"port_id", ref.PortID,
			"channel_id", ref.ChannelID,
			"destination_chain_id", ref.DestinationChainID,
		),
	}
}

// Run polls every refresh interval until ctx is cancelled.
func (m *BacklogMonitor) Run(ctx context.Context) {
	m.log.Info("Starting backlog monitor", "refresh", m.cfg.Channel.Refresh, "min_total", m.minTotal)
	runEvery(ctx, m.cfg.Clock, m.cfg.Channel.Refresh, true, m.tick)
}

// BacklogStatus is 0 when total is below minTotal and 1 otherwise.
func BacklogStatus(total, minTotal uint64) int64 {
	if total < minTotal {
		return statusOK
	}
	return statusFail
}

func (m *BacklogMonitor) tick(ctx context.Context) {
	total, err := m.cfg.Querier.PacketCommitmentsTotal(ctx, m.ref.PortID, m.ref.ChannelID, m.cfg.Endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.log.Error("Failed to query packet commitments, retry next refresh",
			"error", err, "code", status.Code(err))
		m.cfg.Sink.SetQueryStatus(m.ref, m.cfg.Endpoint, statusFail)
		return
	}
	m.cfg.Sink.SetQueryStatus(m.ref, m.cfg.Endpoint, statusOK)

	m.log.Info("Latest packet commitments", "total", total)

	st := BacklogStatus(total, m.cfg.Channel.MinTotal)
	if st == statusFail {
		m.log.Warn("Packet commitments at or above threshold", "total", total, "min_total", m.minTotal)
	}
	m.cfg.Sink.SetBacklogStatus(m.ref, m.minTotal, st)
	m.cfg.Sink.SetBacklogCount(m.ref, m.minTotal, clampInt64(total))
}
