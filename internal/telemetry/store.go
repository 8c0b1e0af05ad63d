// Package telemetry holds the gauges the watcher publishes for scraping.
package telemetry

import (
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/vietddude/ibc-watcher/internal/core/domain"
)

// Metric names. They match the series names dashboards already query.
const (
	MetricBacklogStatus          = "ibc_status"
	MetricBacklogCount           = "ibc_count"
	MetricQueryStatus            = "ibc_query_status"
	MetricClientStatus           = "ibc_client_status"
	MetricClientTimeBeforeExpire = "ibc_client_time_before_expire"
)

// Label names.
const (
	LabelChainID            = "chain_id"
	LabelPortID             = "port_id"
	LabelChannelID          = "channel_id"
	LabelDestinationChainID = "destination_chain_id"
	LabelMinTotal           = "min_total"
	LabelQueryEndpoint      = "query_endpoint_url"
	LabelMinTimeBeforeExp   = "min_time_before_client_expiration"
)

var channelLabels = []string{LabelChainID, LabelPortID, LabelChannelID, LabelDestinationChainID}

func withChannelLabels(extra string) []string {
	return append(append([]string{}, channelLabels...), extra)
}

// Store is the registry of every gauge the monitors write. One Store is
// created per process and handed to each monitor; tests create their own.
//
// Writers hold the read side of mu so they never block each other. ResetAll
// holds the write side, so a concurrent Gather sees the gauges either fully
// populated or fully cleared.
type Store struct {
	mu       sync.RWMutex
	registry *prometheus.Registry
	vecs     map[string]*prometheus.GaugeVec
}

// NewStore creates a new store with all watcher gauges registered.
func NewStore() *Store {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	s := &Store{
		registry: registry,
		vecs:     make(map[string]*prometheus.GaugeVec),
	}

	s.vecs[MetricBacklogStatus] = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: MetricBacklogStatus,
		Help: "IBC Status. 0: < min_total, 1: >= min_total",
	}, withChannelLabels(LabelMinTotal))

	s.vecs[MetricBacklogCount] = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: MetricBacklogCount,
		Help: "no of ibc packet commitments",
	}, withChannelLabels(LabelMinTotal))

	s.vecs[MetricQueryStatus] = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: MetricQueryStatus,
		Help: "IBC Query Status show the ibc query is successful or not. 0: can access, 1: cannot access",
	}, withChannelLabels(LabelQueryEndpoint))

	s.vecs[MetricClientStatus] = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: MetricClientStatus,
		Help: "IBC client status. 0: (expiry_time - now) > min_time_before_client_expiration, 1: otherwise",
	}, withChannelLabels(LabelMinTimeBeforeExp))

	s.vecs[MetricClientTimeBeforeExpire] = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: MetricClientTimeBeforeExpire,
		Help: "the time left before the client expires in seconds",
	}, withChannelLabels(LabelMinTimeBeforeExp))

	return s
}

// Set overwrites the series of metric name identified by labelValues.
func (s *Store) Set(name string, value int64, labelValues ...string) error {
	vec, ok := s.vecs[name]
	if !ok {
		return fmt.Errorf("unknown metric %q", name)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	g, err := vec.GetMetricWithLabelValues(labelValues...)
	if err != nil {
		return fmt.Errorf("metric %s: %w", name, err)
	}
	g.Set(float64(value))
	return nil
}

func (s *Store) setChannel(name string, ref domain.ChannelRef, extra string, value int64) {
	// label arity is fixed by construction
	_ = s.Set(name, value,
		string(ref.ChainID), ref.PortID, ref.ChannelID, string(ref.DestinationChainID), extra)
}

// SetBacklogStatus sets 0 when the backlog is under min_total, 1 otherwise.
func (s *Store) SetBacklogStatus(ref domain.ChannelRef, minTotal string, status int64) {
	s.setChannel(MetricBacklogStatus, ref, minTotal, status)
}

// SetBacklogCount sets the raw packet commitment count.
func (s *Store) SetBacklogCount(ref domain.ChannelRef, minTotal string, count int64) {
	s.setChannel(MetricBacklogCount, ref, minTotal, count)
}

// SetQueryStatus sets 0 when the endpoint answered, 1 when the last query failed.
func (s *Store) SetQueryStatus(ref domain.ChannelRef, endpoint string, status int64) {
	s.setChannel(MetricQueryStatus, ref, endpoint, status)
}

// SetClientStatus sets 0 for a healthy client, 1 when near or past expiry.
func (s *Store) SetClientStatus(ref domain.ChannelRef, minTimeBeforeExpiration string, status int64) {
	s.setChannel(MetricClientStatus, ref, minTimeBeforeExpiration, status)
}

// SetClientTimeBeforeExpire sets the seconds left before the client expires.
func (s *Store) SetClientTimeBeforeExpire(ref domain.ChannelRef, minTimeBeforeExpiration string, seconds int64) {
	s.setChannel(MetricClientTimeBeforeExpire, ref, minTimeBeforeExpiration, seconds)
}

// ResetAll removes every series of every metric. Unset differs from zero: a
// reset series is absent from the exposition until written again.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, vec := range s.vecs {
		vec.Reset()
	}
}

// Gather implements prometheus.Gatherer.
func (s *Store) Gather() ([]*dto.MetricFamily, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.registry.Gather()
}

// Render writes every current series in the Prometheus text format.
func (s *Store) Render(w io.Writer) error {
	families, err := s.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Lookup returns the current value of the series with exactly these labels.
func (s *Store) Lookup(name string, labels map[string]string) (float64, bool) {
	families, err := s.Gather()
	if err != nil {
		return 0, false
	}

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m.GetLabel(), labels) {
				return m.GetGauge().GetValue(), true
			}
		}
	}
	return 0, false
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; !ok || v != p.GetValue() {
			return false
		}
	}
	return true
}

// ChannelLabels builds the label set of a channel series with its discriminator.
func ChannelLabels(ref domain.ChannelRef, discriminator, value string) map[string]string {
	return map[string]string{
		LabelChainID:            string(ref.ChainID),
		LabelPortID:             ref.PortID,
		LabelChannelID:          ref.ChannelID,
		LabelDestinationChainID: string(ref.DestinationChainID),
		discriminator:           value,
	}
}
