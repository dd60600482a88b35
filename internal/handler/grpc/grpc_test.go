package grpc

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/internal/domain/registry"
)

type fakeSender struct {
	got  *chatpb.Msg
	resp *chatpb.MsgResponse
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg *chatpb.Msg) (*chatpb.MsgResponse, error) {
	f.got = msg
	return f.resp, f.err
}

func TestChatSendMsg(t *testing.T) {
	sender := &fakeSender{resp: &chatpb.MsgResponse{ServerID: "s1"}}
	svc := NewChatService(slog.New(slog.DiscardHandler), sender)

	resp, err := svc.SendMsg(context.Background(), &chatpb.SendMsgRequest{
		Message: &chatpb.Msg{ClientID: "c1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", resp.ServerID)
	assert.Equal(t, "c1", sender.got.ClientID)
}

func TestChatSendMsgRejectsEmpty(t *testing.T) {
	svc := NewChatService(slog.New(slog.DiscardHandler), &fakeSender{})

	_, err := svc.SendMsg(context.Background(), &chatpb.SendMsgRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = svc.SendMsg(context.Background(), nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

type fakeHub struct {
	delivered map[string][]*chatpb.Msg
	connected map[string]bool
}

func newFakeHub(connected ...string) *fakeHub {
	h := &fakeHub{
		delivered: make(map[string][]*chatpb.Msg),
		connected: make(map[string]bool),
	}
	for _, id := range connected {
		h.connected[id] = true
	}
	return h
}

func (h *fakeHub) Register(registry.Sessioner) registry.Sessioner { panic("not used") }
func (h *fakeHub) Unregister(string, chatpb.Platform, uuid.UUID) bool {
	panic("not used")
}
func (h *fakeHub) IsConnected(userID string) bool { return h.connected[userID] }
func (h *fakeHub) DeliverToUser(userID string, msg *chatpb.Msg, _ time.Duration) int {
	if !h.connected[userID] {
		return 0
	}
	h.delivered[userID] = append(h.delivered[userID], msg)
	return 1
}
func (h *fakeHub) DeliverToPlatform(string, chatpb.Platform, *chatpb.Msg, time.Duration) bool {
	panic("not used")
}
func (h *fakeHub) Stats() registry.Stats { panic("not used") }
func (h *fakeHub) Shutdown()             {}

func TestMsgSendMessageFeedsBroadcast(t *testing.T) {
	broadcast := make(chan *chatpb.Msg, 1)
	svc := NewMsgService(slog.New(slog.DiscardHandler), newFakeHub(), broadcast)

	_, err := svc.SendMessage(context.Background(), &chatpb.SendMsgRequest{
		Message: &chatpb.Msg{ServerID: "s1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", (<-broadcast).ServerID)
}

func TestMsgSendMessageSaturated(t *testing.T) {
	broadcast := make(chan *chatpb.Msg) // no capacity, nobody draining
	svc := NewMsgService(slog.New(slog.DiscardHandler), newFakeHub(), broadcast)

	_, err := svc.SendMessage(context.Background(), &chatpb.SendMsgRequest{
		Message: &chatpb.Msg{},
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestMsgSendMsgToUser(t *testing.T) {
	hub := newFakeHub("u2")
	svc := NewMsgService(slog.New(slog.DiscardHandler), hub, make(chan *chatpb.Msg, 1))

	_, err := svc.SendMsgToUser(context.Background(), &chatpb.SendMsgRequest{
		Message: &chatpb.Msg{ServerID: "s1", ReceiverID: "u2"},
	})
	require.NoError(t, err)
	require.Len(t, hub.delivered["u2"], 1)
}

type fakeMailbox struct {
	msgs        []*chatpb.Msg
	deletedSeqs map[string][]int64
	err         error
}

func (f *fakeMailbox) SaveMessage(context.Context, *chatpb.Msg) error { panic("not used") }
func (f *fakeMailbox) SaveGroupMsg(context.Context, *chatpb.Msg, []*chatpb.GroupMemSeq) error {
	panic("not used")
}
func (f *fakeMailbox) DeleteMessage(context.Context, string, string) error { panic("not used") }
func (f *fakeMailbox) DeleteMessages(_ context.Context, userID string, seqs []int64) error {
	if f.err != nil {
		return f.err
	}
	if f.deletedSeqs == nil {
		f.deletedSeqs = make(map[string][]int64)
	}
	f.deletedSeqs[userID] = append(f.deletedSeqs[userID], seqs...)
	return nil
}
func (f *fakeMailbox) GetMessagesStream(context.Context, string, int64, int64, func(*chatpb.Msg) error) error {
	panic("not used")
}
func (f *fakeMailbox) GetMsgs(context.Context, string, int64, int64, int64, int64) ([]*chatpb.Msg, error) {
	return f.msgs, f.err
}
func (f *fakeMailbox) MsgRead(context.Context, string, []int64) error { panic("not used") }

func TestDbGetMsgs(t *testing.T) {
	mailbox := &fakeMailbox{msgs: []*chatpb.Msg{{ServerID: "s1"}, {ServerID: "s2"}}}
	svc := NewDbService(slog.New(slog.DiscardHandler), mailbox, nil, nil)

	resp, err := svc.GetMsgs(context.Background(), &chatpb.GetMsgsRequest{
		UserID: "u1", SendStart: 1, SendEnd: 10, RecStart: 1, RecEnd: 10,
	})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 2)

	_, err = svc.GetMsgs(context.Background(), &chatpb.GetMsgsRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDbDeleteMessages(t *testing.T) {
	mailbox := &fakeMailbox{}
	svc := NewDbService(slog.New(slog.DiscardHandler), mailbox, nil, nil)

	_, err := svc.DeleteMessages(context.Background(), &chatpb.DeleteMessagesRequest{
		UserID: "u1", Seqs: []int64{3, 4},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, mailbox.deletedSeqs["u1"])

	_, err = svc.DeleteMessages(context.Background(), &chatpb.DeleteMessagesRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestMsgSendGroupMsgStampsPerMemberSeq(t *testing.T) {
	hub := newFakeHub("u2")
	svc := NewMsgService(slog.New(slog.DiscardHandler), hub, make(chan *chatpb.Msg, 1))

	_, err := svc.SendGroupMsgToUser(context.Background(), &chatpb.SendGroupMsgRequest{
		Message: &chatpb.Msg{ServerID: "s1", GroupID: "g1"},
		MemSeqs: []*chatpb.GroupMemSeq{
			{MemID: "u2", CurSeq: 42},
			{MemID: "u3", CurSeq: 7}, // not hosted here
		},
	})
	require.NoError(t, err)

	require.Len(t, hub.delivered["u2"], 1)
	got := hub.delivered["u2"][0]
	assert.Equal(t, int64(42), got.Seq)
	assert.Equal(t, "u2", got.ReceiverID)
	assert.Empty(t, hub.delivered["u3"])
}
