package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/status"

	"github.com/vietddude/ibc-watcher/internal/core/domain"
)

// ClientMonitor tracks how long the light client behind one channel has left
// before its trusting period lapses. The state is owned by the Run goroutine.
type ClientMonitor struct {
	cfg    Config
	ref    domain.ChannelRef
	target channelTarget
	state  clientState
	log    *slog.Logger
}

// NewClientMonitor creates a new client monitor.
func NewClientMonitor(cfg Config) *ClientMonitor {
	cfg.setDefaults()
	ref := cfg.Channel.Ref(cfg.ChainID)

	return &ClientMonitor{
		cfg: cfg,
		ref: ref,
		target: channelTarget{
			portID:    ref.PortID,
			channelID: ref.ChannelID,
			endpoint:  cfg.Endpoint,
		},
		state: newClientState(cfg.Channel),
		log: cfg.Logger.With(
			"monitor", "client",
			"task_id", uuid.NewString(),
			"chain_id", ref.ChainID,
			"port_id", ref.PortID,
			"channel_id", ref.ChannelID,
			"destination_chain_id", ref.DestinationChainID,
		),
	}
}

// Run polls every refresh interval until ctx is cancelled.
func (m *ClientMonitor) Run(ctx context.Context) {
	m.log.Info("Starting client monitor", "refresh", m.cfg.Channel.Refresh)
	runEvery(ctx, m.cfg.Clock, m.cfg.Channel.Refresh, true, m.tick)
}

func (m *ClientMonitor) tick(ctx context.Context) {
	prev := m.state

	next, err := advance(ctx, m.cfg.Querier, m.target, m.state)
	m.state = next
	m.logTransitions(prev, next)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.log.Error("Failed to query client state, retry next refresh",
			"error", err, "code", status.Code(err))
		m.cfg.Sink.SetQueryStatus(m.ref, m.cfg.Endpoint, statusFail)
		return
	}
	m.cfg.Sink.SetQueryStatus(m.ref, m.cfg.Endpoint, statusOK)

	health, ok := evaluate(m.state, m.cfg.Clock.Now())
	if !ok {
		m.log.Debug("No consensus state observed yet", "height", m.state.lastHeight)
		return
	}

	label := thresholdLabel(m.state.minTimeBeforeExpiration.value)
	m.cfg.Sink.SetClientTimeBeforeExpire(m.ref, label, int64(health.remaining/time.Second))
	m.cfg.Sink.SetClientStatus(m.ref, label, health.status)

	if health.status != statusOK {
		m.log.Warn("Client close to expiry",
			"time_before_expire", health.remaining,
			"min_time_before_client_expiration", m.state.minTimeBeforeExpiration.value)
	}
}

func (m *ClientMonitor) logTransitions(prev, next clientState) {
	if !prev.trustingPeriod.ok && next.trustingPeriod.ok {
		m.log.Info("Fetched trusting period", "trusting_period", next.trustingPeriod.value)
	}
	if !prev.minTimeBeforeExpiration.ok && next.minTimeBeforeExpiration.ok {
		m.log.Info("min_time_before_client_expiration not set, using 1/3 of trusting period",
			"min_time_before_client_expiration", next.minTimeBeforeExpiration.value)
	}
	if next.lastHeight != prev.lastHeight {
		m.log.Info("Client updated",
			"height", next.lastHeight,
			"consensus_time", time.Unix(0, int64(next.lastConsensusTime.value)).UTC())
	}
}
