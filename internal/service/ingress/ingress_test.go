package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/internal/store/seq"
)

type fakePublisher struct {
	topic   string
	payload []byte
	err     error
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	p.topic = topic
	p.payload = payload
	return p.err
}

type fakeSeqCache struct {
	sendSeq int64
	err     error
}

func (c *fakeSeqCache) IncrSendSeq(context.Context, string) (int64, int64, bool, error) {
	if c.err != nil {
		return 0, 0, false, c.err
	}
	c.sendSeq++
	return c.sendSeq, 100, false, nil
}

func (c *fakeSeqCache) IncrRecvSeq(context.Context, string) (int64, int64, bool, error) {
	panic("not used")
}
func (c *fakeSeqCache) GetSendSeq(context.Context, string) (int64, int64, error) {
	panic("not used")
}
func (c *fakeSeqCache) IncrGroupSeq(context.Context, []string) ([]*chatpb.GroupMemSeq, error) {
	panic("not used")
}
func (c *fakeSeqCache) Loaded(context.Context) (bool, error) { panic("not used") }
func (c *fakeSeqCache) SetSeq(context.Context, []seq.UserSeq) error {
	panic("not used")
}
func (c *fakeSeqCache) MarkLoaded(context.Context) error { panic("not used") }

func newTestService(pub *fakePublisher, cache *fakeSeqCache) *Service {
	svc := NewService(pub, cache, "msgs", slog.New(slog.DiscardHandler))
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	svc.newID = func() (string, error) { return "srv-0001", nil }
	return svc
}

func TestSendStampsAndPublishes(t *testing.T) {
	pub := &fakePublisher{}
	cache := &fakeSeqCache{}
	svc := newTestService(pub, cache)

	msg := &chatpb.Msg{
		ClientID:   "cli-1",
		ServerID:   "stale-id-from-client",
		SenderID:   "alice",
		ReceiverID: "bob",
		MsgType:    chatpb.MsgTypeSingleMsg,
	}
	resp, err := svc.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Empty(t, resp.Err)

	// Client-supplied server id must not survive.
	assert.Equal(t, "srv-0001", resp.ServerID)
	assert.Equal(t, "cli-1", resp.ClientID)
	assert.Equal(t, int64(1700000000000), resp.SendTime)
	assert.Equal(t, int64(1), resp.SendSeq)

	assert.Equal(t, "msgs", pub.topic)
	var published chatpb.Msg
	require.NoError(t, json.Unmarshal(pub.payload, &published))
	assert.Equal(t, "srv-0001", published.ServerID)
	assert.Equal(t, int64(1), published.SendSeq)
}

func TestSendKeepsReceiptAckServerID(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(pub, &fakeSeqCache{})

	msg := &chatpb.Msg{
		ServerID: "msg-being-acked",
		SenderID: "alice",
		MsgType:  chatpb.MsgTypeFriendshipReceived,
	}
	resp, err := svc.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "msg-being-acked", resp.ServerID)
}

func TestSendNilMessage(t *testing.T) {
	svc := newTestService(&fakePublisher{}, &fakeSeqCache{})
	_, err := svc.Send(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestSendPublishFailureIsInBand(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newTestService(pub, &fakeSeqCache{})

	resp, err := svc.Send(context.Background(), &chatpb.Msg{SenderID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "broker down", resp.Err)
	// Identity is still reported so the client can dedupe a retry.
	assert.Equal(t, "srv-0001", resp.ServerID)
}

func TestSendSeqFailureIsInBand(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(pub, &fakeSeqCache{err: errors.New("redis down")})

	resp, err := svc.Send(context.Background(), &chatpb.Msg{SenderID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "redis down", resp.Err)
	// Nothing must reach the topic without an allocated send_seq.
	assert.Nil(t, pub.payload)
}
