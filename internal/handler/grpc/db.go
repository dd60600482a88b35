package grpc

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/internal/store/group"
	"github.com/webitel/im-chat-service/internal/store/history"
	"github.com/webitel/im-chat-service/internal/store/inbox"
)

var _ chatpb.DbServer = (*DbService)(nil)

// DbService fronts the inbox, the ledger and the group membership store for
// callers outside the consumer process.
type DbService struct {
	logger  *slog.Logger
	inbox   inbox.Mailbox
	history history.Ledger
	groups  group.Members
}

func NewDbService(logger *slog.Logger, mailbox inbox.Mailbox, ledger history.Ledger, groups group.Members) *DbService {
	return &DbService{
		logger:  logger.With(slog.String("component", "db-service")),
		inbox:   mailbox,
		history: ledger,
		groups:  groups,
	}
}

func (s *DbService) SaveMessage(ctx context.Context, req *chatpb.SaveMessageRequest) (*chatpb.SaveMessageResponse, error) {
	if req == nil || req.Message == nil {
		return nil, status.Error(codes.InvalidArgument, "message is required")
	}
	if req.NeedToHistory {
		if err := s.history.Save(ctx, req.Message); err != nil {
			s.logger.Error("HISTORY_SAVE_FAILED",
				slog.String("server_id", req.Message.ServerID), slog.Any("err", err))
			return nil, status.Error(codes.Internal, "history write failed")
		}
	}
	if err := s.inbox.SaveMessage(ctx, req.Message); err != nil {
		s.logger.Error("INBOX_SAVE_FAILED",
			slog.String("server_id", req.Message.ServerID), slog.Any("err", err))
		return nil, status.Error(codes.Internal, "inbox write failed")
	}
	return &chatpb.SaveMessageResponse{}, nil
}

// GetMessages streams the offline catch-up range, ascending by seq.
func (s *DbService) GetMessages(req *chatpb.GetMessagesRequest, stream chatpb.Db_GetMessagesServer) error {
	if req == nil || req.UserID == "" {
		return status.Error(codes.InvalidArgument, "user_id is required")
	}

	err := s.inbox.GetMessagesStream(stream.Context(), req.UserID, req.Start, req.End,
		func(msg *chatpb.Msg) error {
			return stream.Send(msg)
		})
	if err != nil {
		s.logger.Error("CATCHUP_STREAM_FAILED",
			slog.String("user_id", req.UserID), slog.Any("err", err))
		return status.Error(codes.Internal, "catch-up stream failed")
	}
	return nil
}

// GetMsgs answers the paged catch-up query: received rows in [rec_start,
// rec_end] unioned with the caller's own sent rows in [send_start, send_end].
func (s *DbService) GetMsgs(ctx context.Context, req *chatpb.GetMsgsRequest) (*chatpb.GetMsgsResponse, error) {
	if req == nil || req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	msgs, err := s.inbox.GetMsgs(ctx, req.UserID, req.SendStart, req.SendEnd, req.RecStart, req.RecEnd)
	if err != nil {
		s.logger.Error("CATCHUP_QUERY_FAILED",
			slog.String("user_id", req.UserID), slog.Any("err", err))
		return nil, status.Error(codes.Internal, "catch-up query failed")
	}
	return &chatpb.GetMsgsResponse{Messages: msgs}, nil
}

// DeleteMessages removes already-consumed inbox rows by seq.
func (s *DbService) DeleteMessages(ctx context.Context, req *chatpb.DeleteMessagesRequest) (*chatpb.DeleteMessagesResponse, error) {
	if req == nil || req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	if err := s.inbox.DeleteMessages(ctx, req.UserID, req.Seqs); err != nil {
		s.logger.Error("INBOX_DELETE_FAILED",
			slog.String("user_id", req.UserID), slog.Any("err", err))
		return nil, status.Error(codes.Internal, "inbox delete failed")
	}
	return &chatpb.DeleteMessagesResponse{}, nil
}

func (s *DbService) GroupCreate(ctx context.Context, req *chatpb.GroupCreateRequest) (*chatpb.GroupResponse, error) {
	if req == nil || req.GroupID == "" {
		return nil, status.Error(codes.InvalidArgument, "group_id is required")
	}
	if err := s.groups.Create(ctx, req.GroupID, req.AdminID, req.MemberIDs); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &chatpb.GroupResponse{}, nil
}

func (s *DbService) GroupUpdate(ctx context.Context, req *chatpb.GroupUpdateRequest) (*chatpb.GroupResponse, error) {
	if req == nil || req.GroupID == "" {
		return nil, status.Error(codes.InvalidArgument, "group_id is required")
	}
	if err := s.groups.AddMembers(ctx, req.GroupID, req.AddMembers); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &chatpb.GroupResponse{}, nil
}

func (s *DbService) GroupDelete(ctx context.Context, req *chatpb.GroupDeleteRequest) (*chatpb.GroupResponse, error) {
	if req == nil || req.GroupID == "" {
		return nil, status.Error(codes.InvalidArgument, "group_id is required")
	}
	if err := s.groups.Delete(ctx, req.GroupID); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &chatpb.GroupResponse{}, nil
}

func (s *DbService) GroupMemberExit(ctx context.Context, req *chatpb.GroupMemberExitRequest) (*chatpb.GroupResponse, error) {
	if req == nil || req.GroupID == "" || req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "group_id and user_id are required")
	}
	if err := s.groups.RemoveMember(ctx, req.GroupID, req.UserID); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &chatpb.GroupResponse{}, nil
}

func (s *DbService) GroupMembersId(ctx context.Context, req *chatpb.GroupMembersIdRequest) (*chatpb.GroupMembersIdResponse, error) {
	if req == nil || req.GroupID == "" {
		return nil, status.Error(codes.InvalidArgument, "group_id is required")
	}
	members, err := s.groups.Resolve(ctx, req.GroupID)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &chatpb.GroupMembersIdResponse{MemberIDs: members}, nil
}
