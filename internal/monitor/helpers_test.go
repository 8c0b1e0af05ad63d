package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vietddude/ibc-watcher/internal/core/domain"
)

// =============================================================================
// Stubs
// =============================================================================

var errUnavailable = errors.New("connection refused")

type heightResult struct {
	height domain.Height
	err    error
}

type durationResult struct {
	d   time.Duration
	err error
}

type totalResult struct {
	total uint64
	err   error
}

// stubQuerier replays scripted results. The last result of each script
// repeats once the script is exhausted.
type stubQuerier struct {
	mu sync.Mutex

	totals     []totalResult
	trusting   []durationResult
	heights    []heightResult
	consensus  []durationResult
	panicTotal bool

	totalCalls     int
	trustingCalls  int
	heightCalls    int
	consensusCalls int
	consensusAt    []domain.Height
}

func pick[T any](script []T, call int) T {
	var zero T
	if len(script) == 0 {
		return zero
	}
	if call >= len(script) {
		return script[len(script)-1]
	}
	return script[call]
}

func (s *stubQuerier) PacketCommitmentsTotal(ctx context.Context, portID, channelID, endpoint string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicTotal {
		panic("corrupt state")
	}
	r := pick(s.totals, s.totalCalls)
	s.totalCalls++
	return r.total, r.err
}

func (s *stubQuerier) TrustingPeriod(ctx context.Context, portID, channelID, endpoint string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := pick(s.trusting, s.trustingCalls)
	s.trustingCalls++
	return r.d, r.err
}

func (s *stubQuerier) LatestClientHeight(ctx context.Context, portID, channelID, endpoint string) (domain.Height, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := pick(s.heights, s.heightCalls)
	s.heightCalls++
	return r.height, r.err
}

func (s *stubQuerier) ConsensusTimestamp(ctx context.Context, portID, channelID string, height domain.Height, endpoint string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := pick(s.consensus, s.consensusCalls)
	s.consensusCalls++
	s.consensusAt = append(s.consensusAt, height)
	return r.d, r.err
}

func (s *stubQuerier) calls() (total, trusting, height, consensus int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalCalls, s.trustingCalls, s.heightCalls, s.consensusCalls
}

// manualClock hands out tickers that fire only when the test sends on ticks.
type manualClock struct {
	mu    sync.Mutex
	now   time.Time
	ticks chan time.Time
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now, ticks: make(chan time.Time)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *manualClock) NewTicker(time.Duration) Ticker {
	return manualTicker{c.ticks}
}

// Tick blocks until a loop has taken the tick.
func (c *manualClock) Tick() {
	c.ticks <- c.Now()
}

type manualTicker struct {
	c chan time.Time
}

func (t manualTicker) C() <-chan time.Time { return t.c }
func (t manualTicker) Stop()               {}

var testChannel = domain.ChannelSpec{
	PortID:             "transfer",
	ChannelID:          "channel-0",
	DestinationChainID: "osmosis-1",
	Refresh:            time.Minute,
	MinTotal:           10,
}

const testEndpoint = "https://grpc.mantrachain.io"

var testRef = testChannel.Ref("mantra-1")

func durationPtr(d time.Duration) *time.Duration {
	return &d
}
