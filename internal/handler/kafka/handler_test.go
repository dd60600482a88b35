package kafka

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	payloads [][]byte
	failOn   string
}

func (f *fakeProcessor) Process(_ context.Context, payload []byte) error {
	if f.failOn != "" && string(payload) == f.failOn {
		return errors.New("processing failed")
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32 { return nil }
func (s *fakeSession) MemberID() string           { return "test-member" }
func (s *fakeSession) GenerationID() int32        { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}
func (s *fakeSession) Context() context.Context { return s.ctx }

type fakeClaim struct {
	msgs chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "im-chat-messages" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func record(offset int64, payload string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{Offset: offset, Value: []byte(payload)}
}

func TestConsumeClaimMarksProcessedRecords(t *testing.T) {
	proc := &fakeProcessor{}
	h := &groupHandler{processor: proc, logger: slog.New(slog.DiscardHandler)}

	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, 2)}
	claim.msgs <- record(10, `{"server_id":"s1"}`)
	claim.msgs <- record(11, `{"server_id":"s2"}`)
	close(claim.msgs)

	sess := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.ConsumeClaim(sess, claim))

	assert.Len(t, proc.payloads, 2)
	assert.Equal(t, []int64{10, 11}, sess.marked)
}

func TestConsumeClaimWithholdsMarkOnFailure(t *testing.T) {
	proc := &fakeProcessor{failOn: "bad"}
	h := &groupHandler{processor: proc, logger: slog.New(slog.DiscardHandler)}

	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, 3)}
	claim.msgs <- record(10, "ok")
	claim.msgs <- record(11, "bad")
	claim.msgs <- record(12, "never reached")
	close(claim.msgs)

	sess := &fakeSession{ctx: context.Background()}
	err := h.ConsumeClaim(sess, claim)
	require.Error(t, err)

	// The failed offset stays unmarked and the claim stops before the next
	// record, so both redeliver.
	assert.Equal(t, []int64{10}, sess.marked)
	assert.Len(t, proc.payloads, 1)
}

func TestConsumeClaimStopsOnSessionEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := &groupHandler{processor: &fakeProcessor{}, logger: slog.New(slog.DiscardHandler)}
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage)}
	sess := &fakeSession{ctx: ctx}

	require.NoError(t, h.ConsumeClaim(sess, claim))
	assert.Empty(t, sess.marked)
}
