package ibc

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/vietddude/ibc-watcher/internal/core/domain"
)

// Full method names of ibc.core.channel.v1.Query.
const (
	methodPacketCommitments     = "/ibc.core.channel.v1.Query/PacketCommitments"
	methodChannelClientState    = "/ibc.core.channel.v1.Query/ChannelClientState"
	methodChannelConsensusState = "/ibc.core.channel.v1.Query/ChannelConsensusState"
)

const (
	tendermintClientStateURL    = "/ibc.lightclients.tendermint.v1.ClientState"
	tendermintConsensusStateURL = "/ibc.lightclients.tendermint.v1.ConsensusState"
)

// Page request used for the commitments query. Only the total matters, so a
// single reversed page with count_total is enough.
const (
	pageOffset = 1
	pageLimit  = 100
)

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

// QueryPacketCommitmentsRequest{port_id=1, channel_id=2, pagination=3}
func encodePacketCommitmentsRequest(portID, channelID string) []byte {
	var page []byte
	page = appendVarint(page, 2, pageOffset) // offset
	page = appendVarint(page, 3, pageLimit)  // limit
	page = appendVarint(page, 4, 1)          // count_total
	page = appendVarint(page, 5, 1)          // reverse

	var b []byte
	b = appendString(b, 1, portID)
	b = appendString(b, 2, channelID)
	return appendMessage(b, 3, page)
}

// QueryChannelClientStateRequest{port_id=1, channel_id=2}
func encodeChannelClientStateRequest(portID, channelID string) []byte {
	var b []byte
	b = appendString(b, 1, portID)
	return appendString(b, 2, channelID)
}

// QueryChannelConsensusStateRequest{port_id=1, channel_id=2, revision_number=3, revision_height=4}
func encodeChannelConsensusStateRequest(portID, channelID string, height domain.Height) []byte {
	var b []byte
	b = appendString(b, 1, portID)
	b = appendString(b, 2, channelID)
	b = appendVarint(b, 3, height.RevisionNumber)
	return appendVarint(b, 4, height.RevisionHeight)
}

type field struct {
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

// findField returns the last occurrence of a field, matching protobuf's
// last-one-wins rule for singular fields.
func findField(b []byte, want protowire.Number) (field, bool, error) {
	var (
		out   field
		found bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return field{}, false, protowire.ParseError(n)
		}
		b = b[n:]

		f := field{typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return field{}, false, protowire.ParseError(n)
		}
		b = b[n:]

		if num == want {
			out, found = f, true
		}
	}
	return out, found, nil
}

func findMessage(b []byte, num protowire.Number, name string) ([]byte, error) {
	f, ok, err := findField(b, num)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	if f.typ != protowire.BytesType {
		return nil, fmt.Errorf("decode %s: unexpected wire type %d", name, f.typ)
	}
	return f.bytes, nil
}

func findUint(b []byte, num protowire.Number, name string) (uint64, error) {
	f, ok, err := findField(b, num)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", name, err)
	}
	if !ok {
		// proto3 omits zero values
		return 0, nil
	}
	if f.typ != protowire.VarintType {
		return 0, fmt.Errorf("decode %s: unexpected wire type %d", name, f.typ)
	}
	return f.varint, nil
}

// QueryPacketCommitmentsResponse{commitments=1, pagination=2{next_key=1, total=2}, height=3}
func decodePacketCommitmentsTotal(b []byte) (uint64, error) {
	page, err := findMessage(b, 2, "pagination")
	if err != nil {
		return 0, err
	}
	return findUint(page, 2, "pagination.total")
}

// tendermintClientState holds the light client fields the watcher reads.
type tendermintClientState struct {
	TrustingPeriod time.Duration
	LatestHeight   domain.Height
}

// QueryChannelClientStateResponse{identified_client_state=1{client_id=1, client_state=2}}
func decodeChannelClientState(b []byte) (tendermintClientState, error) {
	identified, err := findMessage(b, 1, "identified_client_state")
	if err != nil {
		return tendermintClientState{}, err
	}
	anyBytes, err := findMessage(identified, 2, "identified_client_state.client_state")
	if err != nil {
		return tendermintClientState{}, err
	}
	value, err := unpackAny(anyBytes, tendermintClientStateURL)
	if err != nil {
		return tendermintClientState{}, err
	}

	var cs tendermintClientState

	// ClientState.trusting_period=3
	tp, err := findMessage(value, 3, "client_state.trusting_period")
	if err != nil {
		return tendermintClientState{}, err
	}
	var d durationpb.Duration
	if err := proto.Unmarshal(tp, &d); err != nil {
		return tendermintClientState{}, fmt.Errorf("decode trusting_period: %w", err)
	}
	if err := d.CheckValid(); err != nil {
		return tendermintClientState{}, fmt.Errorf("decode trusting_period: %w", err)
	}
	cs.TrustingPeriod = d.AsDuration()

	// ClientState.latest_height=7
	h, err := findMessage(value, 7, "client_state.latest_height")
	if err != nil {
		return tendermintClientState{}, err
	}
	cs.LatestHeight, err = decodeHeight(h)
	if err != nil {
		return tendermintClientState{}, err
	}

	return cs, nil
}

// Height{revision_number=1, revision_height=2}
func decodeHeight(b []byte) (domain.Height, error) {
	number, err := findUint(b, 1, "height.revision_number")
	if err != nil {
		return domain.Height{}, err
	}
	height, err := findUint(b, 2, "height.revision_height")
	if err != nil {
		return domain.Height{}, err
	}
	return domain.Height{RevisionNumber: number, RevisionHeight: height}, nil
}

// QueryChannelConsensusStateResponse{consensus_state=1, client_id=2}
// ConsensusState{timestamp=1, root=2, next_validators_hash=3}
func decodeConsensusTimestamp(b []byte) (time.Duration, error) {
	anyBytes, err := findMessage(b, 1, "consensus_state")
	if err != nil {
		return 0, err
	}
	value, err := unpackAny(anyBytes, tendermintConsensusStateURL)
	if err != nil {
		return 0, err
	}

	ts, err := findMessage(value, 1, "consensus_state.timestamp")
	if err != nil {
		return 0, err
	}
	var t timestamppb.Timestamp
	if err := proto.Unmarshal(ts, &t); err != nil {
		return 0, fmt.Errorf("decode timestamp: %w", err)
	}
	if err := t.CheckValid(); err != nil {
		return 0, fmt.Errorf("decode timestamp: %w", err)
	}

	return time.Duration(t.GetSeconds())*time.Second + time.Duration(t.GetNanos()), nil
}

func unpackAny(b []byte, wantURL string) ([]byte, error) {
	var a anypb.Any
	if err := proto.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("decode any: %w", err)
	}
	if a.GetTypeUrl() != wantURL {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedClientState, a.GetTypeUrl())
	}
	return a.GetValue(), nil
}
