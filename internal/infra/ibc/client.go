// Package ibc queries the IBC channel module of a cosmos chain over gRPC.
//
// Only the handful of read-only calls the watcher needs are implemented, and
// their messages are encoded directly on the protobuf wire so no generated
// ibc-go types are required.
package ibc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/vietddude/ibc-watcher/internal/core/domain"
)

// Client issues point-in-time queries against chain gRPC endpoints. A
// connection is kept per endpoint and shared by every caller. Calls are never
// retried here.
type Client struct {
	mu       sync.Mutex
	conns    map[string]*grpc.ClientConn
	extraOpt []grpc.DialOption
}

// NewClient creates a new query client. Extra dial options are appended to
// the transport credentials chosen for each endpoint.
func NewClient(opts ...grpc.DialOption) *Client {
	return &Client{
		conns:    make(map[string]*grpc.ClientConn),
		extraOpt: opts,
	}
}

func (c *Client) conn(endpoint string) (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn, ok := c.conns[endpoint]; ok {
		return conn, nil
	}

	target, useTLS, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	opts := append(dialOptions(useTLS), c.extraOpt...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", target, err)
	}

	c.conns[endpoint] = conn
	return conn, nil
}

func (c *Client) invoke(ctx context.Context, endpoint, method string, req []byte) ([]byte, error) {
	conn, err := c.conn(endpoint)
	if err != nil {
		return nil, err
	}

	var resp frame
	err = conn.Invoke(ctx, method, &frame{payload: req}, &resp, grpc.ForceCodec(rawCodec{}))
	if err != nil {
		return nil, err
	}
	return resp.payload, nil
}

// PacketCommitmentsTotal returns the number of packet commitments still
// stored for the channel, i.e. packets sent but not yet acknowledged.
func (c *Client) PacketCommitmentsTotal(ctx context.Context, portID, channelID, endpoint string) (uint64, error) {
	resp, err := c.invoke(ctx, endpoint, methodPacketCommitments,
		encodePacketCommitmentsRequest(portID, channelID))
	if err != nil {
		return 0, fmt.Errorf("%w: packet commitments %s/%s: %w", ErrQueryFailed, portID, channelID, err)
	}

	total, err := decodePacketCommitmentsTotal(resp)
	if err != nil {
		return 0, fmt.Errorf("%w: packet commitments %s/%s: %w", ErrQueryFailed, portID, channelID, err)
	}
	return total, nil
}

func (c *Client) clientState(ctx context.Context, portID, channelID, endpoint string) (tendermintClientState, error) {
	resp, err := c.invoke(ctx, endpoint, methodChannelClientState,
		encodeChannelClientStateRequest(portID, channelID))
	if err != nil {
		return tendermintClientState{}, fmt.Errorf("%w: channel client state %s/%s: %w", ErrQueryFailed, portID, channelID, err)
	}

	cs, err := decodeChannelClientState(resp)
	if err != nil {
		return tendermintClientState{}, fmt.Errorf("%w: channel client state %s/%s: %w", ErrQueryFailed, portID, channelID, err)
	}
	return cs, nil
}

// TrustingPeriod returns the trusting period of the client behind the channel.
func (c *Client) TrustingPeriod(ctx context.Context, portID, channelID, endpoint string) (time.Duration, error) {
	cs, err := c.clientState(ctx, portID, channelID, endpoint)
	if err != nil {
		return 0, err
	}
	return cs.TrustingPeriod, nil
}

// LatestClientHeight returns the latest height of the client behind the channel.
func (c *Client) LatestClientHeight(ctx context.Context, portID, channelID, endpoint string) (domain.Height, error) {
	cs, err := c.clientState(ctx, portID, channelID, endpoint)
	if err != nil {
		return domain.Height{}, err
	}
	return cs.LatestHeight, nil
}

// ConsensusTimestamp returns the timestamp, as time since the unix epoch, of
// the client consensus state stored at height.
func (c *Client) ConsensusTimestamp(ctx context.Context, portID, channelID string, height domain.Height, endpoint string) (time.Duration, error) {
	resp, err := c.invoke(ctx, endpoint, methodChannelConsensusState,
		encodeChannelConsensusStateRequest(portID, channelID, height))
	if err != nil {
		return 0, fmt.Errorf("%w: channel consensus state %s/%s@%s: %w", ErrQueryFailed, portID, channelID, height, err)
	}

	ts, err := decodeConsensusTimestamp(resp)
	if err != nil {
		return 0, fmt.Errorf("%w: channel consensus state %s/%s@%s: %w", ErrQueryFailed, portID, channelID, height, err)
	}
	return ts, nil
}

// Close releases every cached connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for endpoint, conn := range c.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.conns, endpoint)
	}
	return firstErr
}
