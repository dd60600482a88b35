// Package grpc holds the RPC surfaces of the fleet: the ingress Chat service,
// the gateway-side Msg service, the pusher's Push service and the storage
// facade Db service. Each role registers only the services it runs.
package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/internal/service/ingress"
)

var _ chatpb.ChatServer = (*ChatService)(nil)

// ChatService is the ingress RPC: gateways forward client submissions here.
type ChatService struct {
	logger *slog.Logger
	sender ingress.Sender
}

func NewChatService(logger *slog.Logger, sender ingress.Sender) *ChatService {
	return &ChatService{
		logger: logger.With(slog.String("component", "chat-service")),
		sender: sender,
	}
}

func (s *ChatService) SendMsg(ctx context.Context, req *chatpb.SendMsgRequest) (*chatpb.MsgResponse, error) {
	if req == nil || req.Message == nil {
		return nil, status.Error(codes.InvalidArgument, "message is required")
	}

	resp, err := s.sender.Send(ctx, req.Message)
	if err != nil {
		if errors.Is(err, ingress.ErrNoMessage) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Error("SEND_MSG_FAILED",
			slog.String("client_id", req.Message.ClientID), slog.Any("err", err))
		return nil, status.Error(codes.Internal, "message intake failed")
	}
	return resp, nil
}
