package ws

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/internal/domain/registry"
)

type fakeHub struct {
	byPlatform map[chatpb.Platform][]*chatpb.Msg
}

func newFakeHub() *fakeHub {
	return &fakeHub{byPlatform: make(map[chatpb.Platform][]*chatpb.Msg)}
}

func (h *fakeHub) Register(registry.Sessioner) registry.Sessioner     { return nil }
func (h *fakeHub) Unregister(string, chatpb.Platform, uuid.UUID) bool { return true }
func (h *fakeHub) IsConnected(string) bool                            { return true }
func (h *fakeHub) DeliverToUser(string, *chatpb.Msg, time.Duration) int {
	panic("not used")
}
func (h *fakeHub) DeliverToPlatform(_ string, p chatpb.Platform, msg *chatpb.Msg, _ time.Duration) bool {
	h.byPlatform[p] = append(h.byPlatform[p], msg)
	return true
}
func (h *fakeHub) Stats() registry.Stats { return registry.Stats{} }
func (h *fakeHub) Shutdown()             {}

type fakeChat struct {
	got  *chatpb.Msg
	resp *chatpb.MsgResponse
	err  error
}

func (f *fakeChat) SendMsg(_ context.Context, in *chatpb.SendMsgRequest, _ ...grpc.CallOption) (*chatpb.MsgResponse, error) {
	f.got = in.Message
	return f.resp, f.err
}

func newTestGateway(t *testing.T, hub *fakeHub, chat chatpb.ChatClient) *Gateway {
	t.Helper()
	auth, err := NewAuthenticator(testSecret)
	require.NoError(t, err)
	return NewGateway(slog.New(slog.DiscardHandler), hub, chat, auth)
}

func TestForwardAcksSenderAndMirrors(t *testing.T) {
	hub := newFakeHub()
	chat := &fakeChat{resp: &chatpb.MsgResponse{
		ClientID: "c1", ServerID: "s1", SendTime: 111, SendSeq: 9,
	}}
	g := newTestGateway(t, hub, chat)

	msg := &chatpb.Msg{
		ClientID: "c1", SenderID: "u1", ReceiverID: "u2",
		Platform: chatpb.PlatformMobile, MsgType: chatpb.MsgTypeSingleMsg,
	}
	g.forward(context.Background(), msg)

	// Submitting platform gets the acknowledgement.
	acks := hub.byPlatform[chatpb.PlatformMobile]
	require.Len(t, acks, 1)
	assert.Equal(t, chatpb.MsgTypeMsgRecResp, acks[0].MsgType)
	assert.Equal(t, "s1", acks[0].ServerID)
	assert.Equal(t, int64(9), acks[0].SendSeq)
	assert.Empty(t, acks[0].Content)

	// The other platform gets the original, seq zeroed, identity stamped.
	mirrors := hub.byPlatform[chatpb.PlatformDesktop]
	require.Len(t, mirrors, 1)
	assert.Equal(t, chatpb.MsgTypeSingleMsg, mirrors[0].MsgType)
	assert.Equal(t, "s1", mirrors[0].ServerID)
	assert.Equal(t, int64(9), mirrors[0].SendSeq)
	assert.Equal(t, int64(0), mirrors[0].Seq)
	assert.Equal(t, "u2", mirrors[0].ReceiverID)
}

func TestForwardPublishErrorAcksWithoutMirror(t *testing.T) {
	hub := newFakeHub()
	chat := &fakeChat{resp: &chatpb.MsgResponse{ClientID: "c1", Err: "broker down"}}
	g := newTestGateway(t, hub, chat)

	g.forward(context.Background(), &chatpb.Msg{
		ClientID: "c1", SenderID: "u1", Platform: chatpb.PlatformMobile,
	})

	acks := hub.byPlatform[chatpb.PlatformMobile]
	require.Len(t, acks, 1)
	assert.Equal(t, chatpb.ContentTypeError, acks[0].ContentType)
	assert.Equal(t, "broker down", string(acks[0].Content))
	assert.Empty(t, hub.byPlatform[chatpb.PlatformDesktop])
}

func TestForwardRPCErrorAcksWithError(t *testing.T) {
	hub := newFakeHub()
	chat := &fakeChat{err: errors.New("unavailable")}
	g := newTestGateway(t, hub, chat)

	g.forward(context.Background(), &chatpb.Msg{
		ClientID: "c1", SenderID: "u1", Platform: chatpb.PlatformDesktop,
	})

	acks := hub.byPlatform[chatpb.PlatformDesktop]
	require.Len(t, acks, 1)
	assert.Equal(t, chatpb.MsgTypeMsgRecResp, acks[0].MsgType)
	assert.Equal(t, "unavailable", string(acks[0].Content))
	assert.Empty(t, hub.byPlatform[chatpb.PlatformMobile])
}
