package ibc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/vietddude/ibc-watcher/internal/core/domain"
)

// =============================================================================
// Fake chain
// =============================================================================

type fakeChain struct {
	mu        sync.Mutex
	responses map[string][]byte
	errs      map[string]error
	requests  map[string][]byte
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		responses: make(map[string][]byte),
		errs:      make(map[string]error),
		requests:  make(map[string][]byte),
	}
}

func (f *fakeChain) handle(_ any, stream grpc.ServerStream) error {
	method, _ := grpc.MethodFromServerStream(stream)

	var req frame
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}

	f.mu.Lock()
	f.requests[method] = req.payload
	resp, ok := f.responses[method]
	err := f.errs[method]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if !ok {
		return status.Errorf(codes.Unimplemented, "no response for %s", method)
	}
	return stream.SendMsg(&frame{payload: resp})
}

func (f *fakeChain) request(method string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method]
}

func startFakeChain(t *testing.T) (*fakeChain, *Client) {
	t.Helper()

	chain := newFakeChain()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(
		grpc.ForceServerCodec(rawCodec{}),
		grpc.UnknownServiceHandler(chain.handle),
	)
	go func() { _ = srv.Serve(lis) }()

	client := NewClient(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))

	t.Cleanup(func() {
		_ = client.Close()
		srv.Stop()
	})
	return chain, client
}

const endpoint = "passthrough:///bufnet"

func clientStateResponse(typeURL string, trusting time.Duration, h domain.Height) []byte {
	tp, _ := proto.Marshal(durationpb.New(trusting))

	var height []byte
	height = appendVarint(height, 1, h.RevisionNumber)
	height = appendVarint(height, 2, h.RevisionHeight)

	var cs []byte
	cs = appendString(cs, 1, "osmosis-1")
	cs = appendMessage(cs, 3, tp)
	cs = appendMessage(cs, 7, height)

	anyBytes, _ := proto.Marshal(&anypb.Any{TypeUrl: typeURL, Value: cs})

	var identified []byte
	identified = appendString(identified, 1, "07-tendermint-0")
	identified = appendMessage(identified, 2, anyBytes)
	return appendMessage(nil, 1, identified)
}

func consensusStateResponse(at time.Time) []byte {
	ts, _ := proto.Marshal(timestamppb.New(at))

	var cs []byte
	cs = appendMessage(cs, 1, ts)
	cs = appendMessage(cs, 2, []byte{0x0a, 0x01, 0x01}) // root, ignored

	anyBytes, _ := proto.Marshal(&anypb.Any{TypeUrl: tendermintConsensusStateURL, Value: cs})

	var b []byte
	b = appendMessage(b, 1, anyBytes)
	return appendString(b, 2, "07-tendermint-0")
}

// =============================================================================
// Tests
// =============================================================================

func TestPacketCommitmentsTotal(t *testing.T) {
	chain, client := startFakeChain(t)

	var page []byte
	page = appendVarint(page, 2, 42)
	var resp []byte
	resp = appendMessage(resp, 1, []byte{0x0a, 0x08, 't', 'r', 'a', 'n', 's', 'f', 'e', 'r'})
	resp = appendMessage(resp, 2, page)
	chain.responses[methodPacketCommitments] = resp

	total, err := client.PacketCommitmentsTotal(context.Background(), "transfer", "channel-0", endpoint)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), total)

	req := chain.request(methodPacketCommitments)
	port, _, _ := findField(req, 1)
	channel, _, _ := findField(req, 2)
	assert.Equal(t, "transfer", string(port.bytes))
	assert.Equal(t, "channel-0", string(channel.bytes))

	pagination, err := findMessage(req, 3, "pagination")
	require.NoError(t, err)
	limit, _ := findUint(pagination, 3, "limit")
	countTotal, _ := findUint(pagination, 4, "count_total")
	reverse, _ := findUint(pagination, 5, "reverse")
	assert.Equal(t, uint64(pageLimit), limit)
	assert.Equal(t, uint64(1), countTotal)
	assert.Equal(t, uint64(1), reverse)
}

func TestPacketCommitmentsTotal_ZeroTotal(t *testing.T) {
	chain, client := startFakeChain(t)

	// total omitted on the wire when zero
	chain.responses[methodPacketCommitments] = appendMessage(nil, 2, nil)

	total, err := client.PacketCommitmentsTotal(context.Background(), "transfer", "channel-0", endpoint)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestPacketCommitmentsTotal_MissingPagination(t *testing.T) {
	chain, client := startFakeChain(t)
	chain.responses[methodPacketCommitments] = []byte{}

	_, err := client.PacketCommitmentsTotal(context.Background(), "transfer", "channel-0", endpoint)
	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestPacketCommitmentsTotal_TransportError(t *testing.T) {
	chain, client := startFakeChain(t)
	chain.errs[methodPacketCommitments] = status.Error(codes.NotFound, "channel not found")

	_, err := client.PacketCommitmentsTotal(context.Background(), "transfer", "channel-9", endpoint)
	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestClientState(t *testing.T) {
	chain, client := startFakeChain(t)
	height := domain.Height{RevisionNumber: 1, RevisionHeight: 12345}
	chain.responses[methodChannelClientState] = clientStateResponse(tendermintClientStateURL, 14*24*time.Hour, height)

	ctx := context.Background()

	tp, err := client.TrustingPeriod(ctx, "transfer", "channel-0", endpoint)
	require.NoError(t, err)
	assert.Equal(t, 14*24*time.Hour, tp)

	got, err := client.LatestClientHeight(ctx, "transfer", "channel-0", endpoint)
	require.NoError(t, err)
	assert.Equal(t, height, got)
}

func TestClientState_Unsupported(t *testing.T) {
	chain, client := startFakeChain(t)
	chain.responses[methodChannelClientState] = clientStateResponse(
		"/ibc.lightclients.solomachine.v3.ClientState", time.Hour, domain.Height{RevisionHeight: 1})

	_, err := client.TrustingPeriod(context.Background(), "transfer", "channel-0", endpoint)
	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.ErrorIs(t, err, ErrUnsupportedClientState)
}

func TestClientState_Missing(t *testing.T) {
	chain, client := startFakeChain(t)
	chain.responses[methodChannelClientState] = []byte{}

	_, err := client.LatestClientHeight(context.Background(), "transfer", "channel-0", endpoint)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestConsensusTimestamp(t *testing.T) {
	chain, client := startFakeChain(t)
	at := time.Unix(1700000000, 500)
	chain.responses[methodChannelConsensusState] = consensusStateResponse(at)

	height := domain.Height{RevisionNumber: 4, RevisionHeight: 999}
	ts, err := client.ConsensusTimestamp(context.Background(), "transfer", "channel-0", height, endpoint)
	require.NoError(t, err)
	assert.Equal(t, 1700000000*time.Second+500, ts)

	req := chain.request(methodChannelConsensusState)
	number, _ := findUint(req, 3, "revision_number")
	h, _ := findUint(req, 4, "revision_height")
	assert.Equal(t, uint64(4), number)
	assert.Equal(t, uint64(999), h)
}

func TestParseEndpoint(t *testing.T) {
	cases := []struct {
		in     string
		target string
		tls    bool
	}{
		{"https://grpc.mantrachain.io", "grpc.mantrachain.io:443", true},
		{"https://grpc.example.org:9443", "grpc.example.org:9443", true},
		{"http://localhost", "localhost:80", false},
		{"http://127.0.0.1:9090", "127.0.0.1:9090", false},
		{"grpc.example.org:443", "grpc.example.org:443", true},
		{"localhost:9090", "localhost:9090", false},
		{"grpc.example.org", "grpc.example.org:443", true},
		{"passthrough:///bufnet", "passthrough:///bufnet", false},
	}

	for _, c := range cases {
		target, useTLS, err := parseEndpoint(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.target, target, c.in)
		assert.Equal(t, c.tls, useTLS, c.in)
	}

	_, _, err := parseEndpoint("")
	assert.Error(t, err)
}
