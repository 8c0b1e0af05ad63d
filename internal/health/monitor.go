package health

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vietddude/ibc-watcher/internal/core/domain"
	"github.com/vietddude/ibc-watcher/internal/telemetry"
)

// DefaultCacheTTL bounds how often the gauges are gathered for health checks.
const DefaultCacheTTL = 5 * time.Second

// Monitor derives channel health from the gauges the channel monitors publish.
type Monitor struct {
	gatherer   prometheus.Gatherer
	cacheTTL   time.Duration
	lastCheck  time.Time
	lastReport map[string]ChannelHealth
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor reading from gatherer.
func NewMonitor(gatherer prometheus.Gatherer, cacheTTL time.Duration) *Monitor {
	return &Monitor{
		gatherer: gatherer,
		cacheTTL: cacheTTL,
	}
}

// CheckHealth returns the health of every channel that has published at least
// one series. Channels are keyed by their ChannelRef string.
func (m *Monitor) CheckHealth(ctx context.Context) (map[string]ChannelHealth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && time.Since(m.lastCheck) < m.cacheTTL {
		return m.lastReport, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	families, err := m.gatherer.Gather()
	if err != nil {
		return nil, err
	}

	report := make(map[string]ChannelHealth)
	for _, mf := range families {
		field := fieldFor(mf.GetName())
		if field == nil {
			continue
		}
		for _, metric := range mf.GetMetric() {
			ref := refFromLabels(metric.GetLabel())
			key := ref.String()
			ch, ok := report[key]
			if !ok {
				ch = ChannelHealth{
					ChainID:            string(ref.ChainID),
					PortID:             ref.PortID,
					ChannelID:          ref.ChannelID,
					DestinationChainID: string(ref.DestinationChainID),
				}
			}
			v := metric.GetGauge().GetValue()
			*field(&ch) = &v
			report[key] = ch
		}
	}

	for key, ch := range report {
		ch.evaluate()
		report[key] = ch
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report, nil
}

func fieldFor(name string) func(*ChannelHealth) **float64 {
	switch name {
	case telemetry.MetricQueryStatus:
		return func(c *ChannelHealth) **float64 { return &c.QueryStatus }
	case telemetry.MetricBacklogStatus:
		return func(c *ChannelHealth) **float64 { return &c.BacklogStatus }
	case telemetry.MetricBacklogCount:
		return func(c *ChannelHealth) **float64 { return &c.BacklogCount }
	case telemetry.MetricClientStatus:
		return func(c *ChannelHealth) **float64 { return &c.ClientStatus }
	case telemetry.MetricClientTimeBeforeExpire:
		return func(c *ChannelHealth) **float64 { return &c.TimeBeforeExpire }
	}
	return nil
}

func refFromLabels(pairs []*dto.LabelPair) domain.ChannelRef {
	var ref domain.ChannelRef
	for _, p := range pairs {
		switch p.GetName() {
		case telemetry.LabelChainID:
			ref.ChainID = domain.ChainID(p.GetValue())
		case telemetry.LabelPortID:
			ref.PortID = p.GetValue()
		case telemetry.LabelChannelID:
			ref.ChannelID = p.GetValue()
		case telemetry.LabelDestinationChainID:
			ref.DestinationChainID = domain.ChainID(p.GetValue())
		}
	}
	return ref
}
