package monitor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/vietddude/ibc-watcher/internal/core/domain"
)

// known is a value that is either unset or has been fetched once.
type known[T any] struct {
	value T
	ok    bool
}

func some[T any](v T) known[T] {
	return known[T]{value: v, ok: true}
}

func (k known[T]) get() (T, bool) {
	return k.value, k.ok
}

// clientState is the cache a client monitor carries across ticks.
//
// lastHeight and lastConsensusTime always form a consistent pair: the
// timestamp is the one of the consensus state at lastHeight.
type clientState struct {
	trustingPeriod          known[time.Duration]
	minTimeBeforeExpiration known[time.Duration]
	lastHeight              domain.Height
	lastConsensusTime       known[time.Duration]
}

func newClientState(channel domain.ChannelSpec) clientState {
	s := clientState{lastHeight: domain.ZeroHeight}
	if channel.MinTimeBeforeClientExpiration != nil {
		s.minTimeBeforeExpiration = some(*channel.MinTimeBeforeClientExpiration)
	}
	return s
}

// channelTarget is what a client monitor queries.
type channelTarget struct {
	portID    string
	channelID string
	endpoint  string
}

// advance runs the queries of one tick and returns the next state.
//
// The trusting period is cached as soon as it is fetched. The height only
// moves forward together with the consensus timestamp at that height, so a
// failure after the height query leaves lastHeight and lastConsensusTime as
// they were and the next tick retries the same transition. A height that is
// not strictly greater than the cached one skips the consensus query.
func advance(ctx context.Context, q Querier, t channelTarget, s clientState) (clientState, error) {
	next := s

	if !next.trustingPeriod.ok {
		tp, err := q.TrustingPeriod(ctx, t.portID, t.channelID, t.endpoint)
		if err != nil {
			return next, fmt.Errorf("trusting period: %w", err)
		}
		next.trustingPeriod = some(tp)
	}

	if !next.minTimeBeforeExpiration.ok {
		next.minTimeBeforeExpiration = some(next.trustingPeriod.value / 3)
	}

	height, err := q.LatestClientHeight(ctx, t.portID, t.channelID, t.endpoint)
	if err != nil {
		return next, fmt.Errorf("latest client height: %w", err)
	}

	if !height.GT(next.lastHeight) {
		return next, nil
	}

	ts, err := q.ConsensusTimestamp(ctx, t.portID, t.channelID, height, t.endpoint)
	if err != nil {
		return next, fmt.Errorf("consensus state at %s: %w", height, err)
	}
	next.lastHeight = height
	next.lastConsensusTime = some(ts)

	return next, nil
}

// clientHealth is the derived expiry signal of a client.
type clientHealth struct {
	// remaining is zero once the client has expired.
	remaining time.Duration
	status    int64
}

// evaluate derives the client's health at now. It reports false until a
// consensus timestamp has been observed.
func evaluate(s clientState, now time.Time) (clientHealth, bool) {
	consensus, ok := s.lastConsensusTime.get()
	if !ok {
		return clientHealth{}, false
	}
	trustingPeriod, ok := s.trustingPeriod.get()
	if !ok {
		return clientHealth{}, false
	}
	threshold := s.minTimeBeforeExpiration.value

	expiry := consensus + trustingPeriod
	sinceEpoch := time.Duration(now.UnixNano())

	if expiry <= sinceEpoch {
		return clientHealth{remaining: 0, status: statusFail}, true
	}

	remaining := expiry - sinceEpoch
	if remaining > threshold {
		return clientHealth{remaining: remaining, status: statusOK}, true
	}
	return clientHealth{remaining: remaining, status: statusFail}, true
}

// thresholdLabel renders a duration as whole seconds, e.g. "259200s".
func thresholdLabel(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Second), 10) + "s"
}
