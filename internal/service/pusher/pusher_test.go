package pusher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/infra/discovery"
)

type fakeGateway struct {
	mu      sync.Mutex
	singles []*chatpb.Msg
	groups  []*chatpb.SendGroupMsgRequest
	err     error
	closed  bool
}

func (f *fakeGateway) SendMessage(context.Context, *chatpb.SendMsgRequest, ...grpc.CallOption) (*chatpb.SendMsgResponse, error) {
	panic("not used")
}

func (f *fakeGateway) SendMsgToUser(_ context.Context, in *chatpb.SendMsgRequest, _ ...grpc.CallOption) (*chatpb.SendMsgResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.singles = append(f.singles, in.Message)
	return &chatpb.SendMsgResponse{}, nil
}

func (f *fakeGateway) SendGroupMsgToUser(_ context.Context, in *chatpb.SendGroupMsgRequest, _ ...grpc.CallOption) (*chatpb.SendMsgResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.groups = append(f.groups, in)
	return &chatpb.SendMsgResponse{}, nil
}

func (f *fakeGateway) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestService(gateways map[string]*fakeGateway) *Service {
	svc := NewService(slog.New(slog.DiscardHandler))
	svc.connect = func(addr string) (peer, error) {
		gw, ok := gateways[addr]
		if !ok {
			return peer{}, errors.New("no such gateway")
		}
		return peer{client: gw, closer: gw}, nil
	}
	return svc
}

func insert(addr string) discovery.Delta {
	return discovery.Delta{Op: discovery.OpInsert, Instance: discovery.Instance{Address: addr, Port: 50003}}
}

func remove(addr string) discovery.Delta {
	return discovery.Delta{Op: discovery.OpRemove, Instance: discovery.Instance{Address: addr, Port: 50003}}
}

func feed(svc *Service, deltas ...discovery.Delta) {
	ch := make(chan discovery.Delta, len(deltas))
	for _, d := range deltas {
		ch <- d
	}
	close(ch)
	svc.Watch(ch)
}

func TestPushSingleFansOutToEveryGateway(t *testing.T) {
	gw1 := &fakeGateway{}
	gw2 := &fakeGateway{}
	svc := newTestService(map[string]*fakeGateway{
		"10.0.0.1:50003": gw1,
		"10.0.0.2:50003": gw2,
	})
	feed(svc, insert("10.0.0.1"), insert("10.0.0.2"))

	msg := &chatpb.Msg{ServerID: "s1", ReceiverID: "u2"}
	require.NoError(t, svc.PushSingle(context.Background(), msg))

	assert.Len(t, gw1.singles, 1)
	assert.Len(t, gw2.singles, 1)
}

func TestPushGroupCarriesMemberSeqs(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(map[string]*fakeGateway{"10.0.0.1:50003": gw})
	feed(svc, insert("10.0.0.1"))

	memSeqs := []*chatpb.GroupMemSeq{{MemID: "u2", CurSeq: 7}}
	require.NoError(t, svc.PushGroup(context.Background(), &chatpb.Msg{ServerID: "s1"}, memSeqs))

	require.Len(t, gw.groups, 1)
	assert.Equal(t, memSeqs, gw.groups[0].MemSeqs)
}

func TestFailingPeerIsDropped(t *testing.T) {
	healthy := &fakeGateway{}
	broken := &fakeGateway{err: errors.New("unreachable")}
	svc := newTestService(map[string]*fakeGateway{
		"10.0.0.1:50003": healthy,
		"10.0.0.2:50003": broken,
	})
	feed(svc, insert("10.0.0.1"), insert("10.0.0.2"))

	// The overall push still succeeds: the message is durable in the inbox.
	require.NoError(t, svc.PushSingle(context.Background(), &chatpb.Msg{ServerID: "s1"}))
	assert.Len(t, healthy.singles, 1)
	assert.True(t, broken.closed)

	// Only the healthy peer remains for the next push.
	require.NoError(t, svc.PushSingle(context.Background(), &chatpb.Msg{ServerID: "s2"}))
	assert.Len(t, healthy.singles, 2)
}

func TestRemoveDeltaClosesPeer(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(map[string]*fakeGateway{"10.0.0.1:50003": gw})
	feed(svc, insert("10.0.0.1"), remove("10.0.0.1"))

	assert.True(t, gw.closed)
	require.NoError(t, svc.PushSingle(context.Background(), &chatpb.Msg{}))
	assert.Empty(t, gw.singles)
}

func TestDuplicateInsertIsIgnored(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(map[string]*fakeGateway{"10.0.0.1:50003": gw})
	feed(svc, insert("10.0.0.1"), insert("10.0.0.1"))

	require.NoError(t, svc.PushSingle(context.Background(), &chatpb.Msg{}))
	assert.Len(t, gw.singles, 1)
}

func TestPushWithNoGatewaysIsNoOp(t *testing.T) {
	svc := newTestService(nil)
	require.NoError(t, svc.PushSingle(context.Background(), &chatpb.Msg{}))
}
