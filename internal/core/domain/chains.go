package domain

import (
	"fmt"
	"strconv"
	"time"
)

// ChainID identifies a chain, e.g. "osmosis-1".
type ChainID string

// DefaultRefresh is the poll interval used when a channel does not set one.
const DefaultRefresh = 120 * time.Second

// ChainSpec describes one chain whose channels are monitored through a single
// query endpoint.
type ChainSpec struct {
	ChainID         ChainID
	EndpointAddress string
	Channels        []ChannelSpec
}

// ChannelSpec is a validated, immutable channel entry.
type ChannelSpec struct {
	PortID             string
	ChannelID          string
	DestinationChainID ChainID
	Refresh            time.Duration
	MinTotal           uint64

	// MinTimeBeforeClientExpiration is nil when the threshold should be derived
	// from the client's trusting period.
	MinTimeBeforeClientExpiration *time.Duration
}

// MinTotalLabel renders the backlog threshold the way it appears in metric labels.
func (c ChannelSpec) MinTotalLabel() string {
	return strconv.FormatUint(c.MinTotal, 10)
}

func (c ChannelSpec) String() string {
	return fmt.Sprintf("%s/%s->%s", c.PortID, c.ChannelID, c.DestinationChainID)
}

// ChannelRef identifies a monitored channel together with the chain it lives on.
// It is the common label prefix of every metric the watcher publishes.
type ChannelRef struct {
	ChainID            ChainID
	PortID             string
	ChannelID          string
	DestinationChainID ChainID
}

// Ref returns the identifying tuple of a channel on the given chain.
func (c ChannelSpec) Ref(chainID ChainID) ChannelRef {
	return ChannelRef{
		ChainID:            chainID,
		PortID:             c.PortID,
		ChannelID:          c.ChannelID,
		DestinationChainID: c.DestinationChainID,
	}
}

func (r ChannelRef) String() string {
	return fmt.Sprintf("%s:%s/%s->%s", r.ChainID, r.PortID, r.ChannelID, r.DestinationChainID)
}
