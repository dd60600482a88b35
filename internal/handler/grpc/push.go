package grpc

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/internal/service/consumer"
)

var _ chatpb.PushServer = (*PushService)(nil)

// PushService fronts the fan-out engine over RPC so that other services can
// push without carrying the gateway map themselves.
type PushService struct {
	logger *slog.Logger
	pusher consumer.Pusher
}

func NewPushService(logger *slog.Logger, pusher consumer.Pusher) *PushService {
	return &PushService{
		logger: logger.With(slog.String("component", "push-service")),
		pusher: pusher,
	}
}

func (s *PushService) PushSingleMsg(ctx context.Context, req *chatpb.SendMsgRequest) (*chatpb.SendMsgResponse, error) {
	if req == nil || req.Message == nil {
		return nil, status.Error(codes.InvalidArgument, "message is required")
	}
	if err := s.pusher.PushSingle(ctx, req.Message); err != nil {
		s.logger.Warn("PUSH_SINGLE_RPC_FAILED",
			slog.String("server_id", req.Message.ServerID), slog.Any("err", err))
	}
	return &chatpb.SendMsgResponse{}, nil
}

func (s *PushService) PushGroupMsg(ctx context.Context, req *chatpb.SendGroupMsgRequest) (*chatpb.SendMsgResponse, error) {
	if req == nil || req.Message == nil {
		return nil, status.Error(codes.InvalidArgument, "message is required")
	}
	if err := s.pusher.PushGroup(ctx, req.Message, req.MemSeqs); err != nil {
		s.logger.Warn("PUSH_GROUP_RPC_FAILED",
			slog.String("server_id", req.Message.ServerID), slog.Any("err", err))
	}
	return &chatpb.SendMsgResponse{}, nil
}
