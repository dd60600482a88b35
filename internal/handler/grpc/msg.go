package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/internal/domain/registry"
)

// deliverTimeout bounds one local session delivery; a session whose mailbox
// stays full that long is treated as not reached.
const deliverTimeout = 3 * time.Second

var _ chatpb.MsgServer = (*MsgService)(nil)

// MsgService is the gateway-side RPC surface the pusher fans out to. Each
// gateway instance delivers only to the sessions its local hub hosts.
type MsgService struct {
	logger    *slog.Logger
	hub       registry.Hubber
	broadcast chan<- *chatpb.Msg
}

// NewMsgService wires the local hub plus the node's broadcast channel, the
// same bounded pipe the WebSocket readers feed into the ingress client.
func NewMsgService(logger *slog.Logger, hub registry.Hubber, broadcast chan<- *chatpb.Msg) *MsgService {
	return &MsgService{
		logger:    logger.With(slog.String("component", "msg-service")),
		hub:       hub,
		broadcast: broadcast,
	}
}

// SendMessage injects server-originated traffic into the gateway's send
// pipeline, as if a local client had submitted it.
func (s *MsgService) SendMessage(_ context.Context, req *chatpb.SendMsgRequest) (*chatpb.SendMsgResponse, error) {
	if req == nil || req.Message == nil {
		return nil, status.Error(codes.InvalidArgument, "message is required")
	}

	select {
	case s.broadcast <- req.Message:
		return &chatpb.SendMsgResponse{}, nil
	default:
		// Bounded channel full: shedding load beats buffering without limit.
		return nil, status.Error(codes.Internal, "gateway send pipeline saturated")
	}
}

func (s *MsgService) SendMsgToUser(_ context.Context, req *chatpb.SendMsgRequest) (*chatpb.SendMsgResponse, error) {
	if req == nil || req.Message == nil {
		return nil, status.Error(codes.InvalidArgument, "message is required")
	}

	msg := req.Message
	delivered := s.hub.DeliverToUser(msg.ReceiverID, msg, deliverTimeout)
	s.logger.Debug("LOCAL_DELIVERY",
		slog.String("receiver_id", msg.ReceiverID),
		slog.String("server_id", msg.ServerID),
		slog.Int("sessions", delivered),
	)
	return &chatpb.SendMsgResponse{}, nil
}

// SendGroupMsgToUser delivers one seq-stamped copy per locally hosted member.
func (s *MsgService) SendGroupMsgToUser(_ context.Context, req *chatpb.SendGroupMsgRequest) (*chatpb.SendMsgResponse, error) {
	if req == nil || req.Message == nil {
		return nil, status.Error(codes.InvalidArgument, "message is required")
	}

	for _, mem := range req.MemSeqs {
		if !s.hub.IsConnected(mem.MemID) {
			continue
		}
		copyMsg := req.Message.Clone()
		copyMsg.ReceiverID = mem.MemID
		copyMsg.Seq = mem.CurSeq
		s.hub.DeliverToUser(mem.MemID, copyMsg, deliverTimeout)
	}
	return &chatpb.SendMsgResponse{}, nil
}
