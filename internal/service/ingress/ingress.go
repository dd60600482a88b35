// Package ingress implements the Chat.SendMsg pipeline stage: validate the
// client submission, stamp the server identity and send time, allocate the
// sender's outbound sequence, and publish onto the durable topic.
package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/infra/broker/kafka"
	"github.com/webitel/im-chat-service/internal/domain/model"
	"github.com/webitel/im-chat-service/internal/store/seq"
)

// ErrNoMessage is returned for an empty submission; the handler maps it to
// InvalidArgument.
var ErrNoMessage = errors.New("ingress: message is required")

// Sender is the surface the gRPC handler depends on.
type Sender interface {
	Send(ctx context.Context, msg *chatpb.Msg) (*chatpb.MsgResponse, error)
}

type Service struct {
	publisher kafka.Publisher
	seqs      seq.Cache
	topic     string
	logger    *slog.Logger

	// Injection points for tests.
	now   func() time.Time
	newID func() (string, error)
}

func NewService(publisher kafka.Publisher, seqs seq.Cache, topic string, logger *slog.Logger) *Service {
	return &Service{
		publisher: publisher,
		seqs:      seqs,
		topic:     topic,
		logger:    logger.With(slog.String("component", "ingress")),
		now:       time.Now,
		newID:     func() (string, error) { return gonanoid.New() },
	}
}

// Send stamps and publishes one message. A broker or sequence failure is
// reported in-band through MsgResponse.Err while the RPC itself stays OK, so
// the originating client can offer a retry.
func (s *Service) Send(ctx context.Context, msg *chatpb.Msg) (*chatpb.MsgResponse, error) {
	if msg == nil {
		return nil, ErrNoMessage
	}

	// Receipt acknowledgements reference the message being purged: their
	// inbound server id must survive. Everything else gets a fresh identity.
	if !model.IsReceiptAck(msg.MsgType) {
		id, err := s.newID()
		if err != nil {
			return nil, err
		}
		msg.ServerID = id
	}
	msg.SendTime = s.now().UnixMilli()

	resp := &chatpb.MsgResponse{
		ClientID: msg.ClientID,
		ServerID: msg.ServerID,
		SendTime: msg.SendTime,
	}

	cur, _, _, err := s.seqs.IncrSendSeq(ctx, msg.SenderID)
	if err != nil {
		s.logger.Warn("SEND_SEQ_ALLOC_FAILED",
			slog.String("sender_id", msg.SenderID), slog.Any("err", err))
		resp.Err = err.Error()
		return resp, nil
	}
	msg.SendSeq = cur
	resp.SendSeq = cur

	payload, err := json.Marshal(msg)
	if err != nil {
		resp.Err = err.Error()
		return resp, nil
	}

	if err := s.publisher.Publish(s.topic, payload); err != nil {
		s.logger.Warn("PUBLISH_FAILED",
			slog.String("server_id", msg.ServerID), slog.Any("err", err))
		resp.Err = err.Error()
		return resp, nil
	}

	s.logger.Debug("MESSAGE_ACCEPTED",
		slog.String("server_id", msg.ServerID),
		slog.String("sender_id", msg.SenderID),
		slog.Int64("send_seq", msg.SendSeq),
	)
	return resp, nil
}
