package telemetry

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/ibc-watcher/internal/core/domain"
)

var testRef = domain.ChannelRef{
	ChainID:            "mantra-1",
	PortID:             "transfer",
	ChannelID:          "channel-0",
	DestinationChainID: "osmosis-1",
}

func render(t *testing.T, s *Store) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, s.Render(&buf))
	return buf.String()
}

func TestStore_SetAndRender(t *testing.T) {
	s := NewStore()

	s.SetBacklogStatus(testRef, "10", 0)
	s.SetBacklogCount(testRef, "10", 7)
	s.SetQueryStatus(testRef, "https://grpc.mantrachain.io", 0)
	s.SetClientStatus(testRef, "259200s", 1)
	s.SetClientTimeBeforeExpire(testRef, "259200s", 100)

	out := render(t, s)
	assert.Contains(t, out, `ibc_count{chain_id="mantra-1",channel_id="channel-0",destination_chain_id="osmosis-1",min_total="10",port_id="transfer"} 7`)
	assert.Contains(t, out, `ibc_status{chain_id="mantra-1",channel_id="channel-0",destination_chain_id="osmosis-1",min_total="10",port_id="transfer"} 0`)
	assert.Contains(t, out, `query_endpoint_url="https://grpc.mantrachain.io"`)
	assert.Contains(t, out, `ibc_client_time_before_expire{chain_id="mantra-1",channel_id="channel-0",destination_chain_id="osmosis-1",min_time_before_client_expiration="259200s",port_id="transfer"} 100`)

	v, ok := s.Lookup(MetricBacklogCount, ChannelLabels(testRef, LabelMinTotal, "10"))
	require.True(t, ok)
	assert.Equal(t, 7.0, v)
}

func TestStore_LastWriterWins(t *testing.T) {
	s := NewStore()

	s.SetBacklogCount(testRef, "10", 7)
	s.SetBacklogCount(testRef, "10", 15)

	assert.Equal(t, 15.0, testutil.ToFloat64(s.vecs[MetricBacklogCount]))
	assert.Equal(t, 1, testutil.CollectAndCount(s.vecs[MetricBacklogCount]))
}

func TestStore_SetIsIdempotent(t *testing.T) {
	s := NewStore()

	s.SetQueryStatus(testRef, "localhost:9090", 1)
	first := render(t, s)
	s.SetQueryStatus(testRef, "localhost:9090", 1)

	assert.Equal(t, first, render(t, s))
}

func TestStore_ResetAll(t *testing.T) {
	s := NewStore()

	s.SetBacklogStatus(testRef, "10", 1)
	s.SetBacklogCount(testRef, "10", 15)
	s.SetQueryStatus(testRef, "localhost:9090", 0)
	s.SetClientStatus(testRef, "100s", 0)
	s.SetClientTimeBeforeExpire(testRef, "100s", 500)

	s.ResetAll()

	out := render(t, s)
	for _, name := range []string{
		MetricBacklogStatus, MetricBacklogCount, MetricQueryStatus,
		MetricClientStatus, MetricClientTimeBeforeExpire,
	} {
		assert.NotContains(t, out, name+"{", name)
		assert.Equal(t, 0, testutil.CollectAndCount(s.vecs[name]), name)
	}

	_, ok := s.Lookup(MetricBacklogCount, ChannelLabels(testRef, LabelMinTotal, "10"))
	assert.False(t, ok)

	// series come back on the next write
	s.SetBacklogCount(testRef, "10", 3)
	assert.Contains(t, render(t, s), "ibc_count{")
}

func TestStore_SetErrors(t *testing.T) {
	s := NewStore()

	assert.Error(t, s.Set("ibc_unknown", 1, "a"))
	assert.Error(t, s.Set(MetricBacklogCount, 1, "too", "few"))
	assert.NoError(t, s.Set(MetricBacklogCount, 1, "c", "p", "ch", "d", "5"))
}

func TestStore_ConcurrentWritersAndReset(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref := testRef
			ref.ChannelID = fmt.Sprintf("channel-%d", i)
			for j := 0; j < 200; j++ {
				s.SetBacklogCount(ref, "10", int64(j))
				s.SetBacklogStatus(ref, "10", int64(j%2))
			}
		}(i)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			s.ResetAll()
		}
	}()
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			var buf bytes.Buffer
			assert.NoError(t, s.Render(&buf))
		}
	}()

	wg.Wait()

	for i := 0; i < 8; i++ {
		ref := testRef
		ref.ChannelID = fmt.Sprintf("channel-%d", i)
		s.SetBacklogCount(ref, "10", 1)
	}
	assert.Equal(t, 8, strings.Count(render(t, s), "ibc_count{"))
}
