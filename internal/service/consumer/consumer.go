// Package consumer implements the topic-drain pipeline: classify each record,
// allocate recipient sequences, persist to the ledger and the inboxes, handle
// read receipts and delivery acknowledgements, then fan out to gateways.
//
// Every step before the offset commit is idempotent (inbox upserts on
// (server_id, receiver_id), ledger upsert on server_id), so a failed record is
// simply redelivered and replayed.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/internal/domain/model"
	"github.com/webitel/im-chat-service/internal/store/group"
	"github.com/webitel/im-chat-service/internal/store/history"
	"github.com/webitel/im-chat-service/internal/store/inbox"
	"github.com/webitel/im-chat-service/internal/store/seq"
)

// Pusher is the downstream fan-out surface; the concrete client lives in
// internal/service/pusher. Push failures are tolerable: the message is already
// durable in the inboxes, offline clients reconcile on reconnect.
type Pusher interface {
	PushSingle(ctx context.Context, msg *chatpb.Msg) error
	PushGroup(ctx context.Context, msg *chatpb.Msg, memSeqs []*chatpb.GroupMemSeq) error
}

type Service struct {
	seqs        seq.Cache
	checkpoints seq.Checkpoints
	step        int64
	history     history.Ledger
	inbox       inbox.Mailbox
	groups      group.Members
	pusher      Pusher
	logger      *slog.Logger
}

func NewService(
	seqs seq.Cache,
	checkpoints seq.Checkpoints,
	step int64,
	ledger history.Ledger,
	mailbox inbox.Mailbox,
	groups group.Members,
	pusher Pusher,
	logger *slog.Logger,
) *Service {
	return &Service{
		seqs:        seqs,
		checkpoints: checkpoints,
		step:        step,
		history:     ledger,
		inbox:       mailbox,
		groups:      groups,
		pusher:      pusher,
		logger:      logger.With(slog.String("component", "consumer")),
	}
}

// Process handles one topic record. A nil return means the record is done and
// its offset may be marked; an error means it must be redelivered. A payload
// that does not decode is unprocessable on every delivery, so it is logged
// and dropped rather than poisoning the partition.
func (s *Service) Process(ctx context.Context, payload []byte) error {
	msg := new(chatpb.Msg)
	if err := json.Unmarshal(payload, msg); err != nil {
		s.logger.Warn("MALFORMED_RECORD", slog.Any("err", err))
		return nil
	}
	return s.process(ctx, msg)
}

func (s *Service) process(ctx context.Context, msg *chatpb.Msg) error {
	if model.IsReadUpdate(msg.MsgType) {
		return s.processRead(ctx, msg)
	}

	// The sender's counter moved at ingress; the consumer only owns the lag
	// between the live value and its persisted mark.
	if err := s.checkpointSender(ctx, msg.SenderID); err != nil {
		return err
	}

	route := model.Classify(msg.MsgType)
	if route.Domain == model.DomainGroup {
		return s.processGroup(ctx, msg, route)
	}
	return s.processSingle(ctx, msg, route)
}

// processRead applies a bulk is_read update. The Content carries the target
// user and the inbox seqs that have been read on some device.
func (s *Service) processRead(ctx context.Context, msg *chatpb.Msg) error {
	var read chatpb.MsgRead
	if err := json.Unmarshal(msg.Content, &read); err != nil {
		s.logger.Warn("MALFORMED_READ_PAYLOAD",
			slog.String("server_id", msg.ServerID), slog.Any("err", err))
		return nil
	}
	return s.inbox.MsgRead(ctx, read.UserID, read.MsgSeq)
}

// checkpointSender persists the sender's max exactly once per step window:
// on the first allocation past the previous persisted boundary.
func (s *Service) checkpointSender(ctx context.Context, senderID string) error {
	cur, max, err := s.seqs.GetSendSeq(ctx, senderID)
	if err != nil {
		return err
	}
	if seq.SendCheckpointDue(cur, max, s.step) {
		return s.checkpoints.SaveSendMax(ctx, senderID, max)
	}
	return nil
}

func (s *Service) processSingle(ctx context.Context, msg *chatpb.Msg, route model.Route) error {
	switch {
	case route.Transient:
		// Call signalling: relay only, nothing touches a store.

	case route.ReceiptAck:
		// The server_id references the original message to purge.
		if err := s.inbox.DeleteMessage(ctx, msg.ReceiverID, msg.ServerID); err != nil {
			return err
		}

	default:
		if route.NeedRecvSeq {
			cur, max, updated, err := s.seqs.IncrRecvSeq(ctx, msg.ReceiverID)
			if err != nil {
				return err
			}
			if updated {
				if err := s.checkpoints.SaveRecvMax(ctx, msg.ReceiverID, max); err != nil {
					return err
				}
			}
			msg.Seq = cur
		}
		if route.NeedHistory {
			if err := s.history.Save(ctx, msg); err != nil {
				return err
			}
		}
		if err := s.inbox.SaveMessage(ctx, msg); err != nil {
			return err
		}
	}

	if err := s.pusher.PushSingle(ctx, msg); err != nil {
		s.logger.Warn("PUSH_SINGLE_FAILED",
			slog.String("server_id", msg.ServerID),
			slog.String("receiver_id", msg.ReceiverID),
			slog.Any("err", err))
	}
	return nil
}

func (s *Service) processGroup(ctx context.Context, msg *chatpb.Msg, route model.Route) error {
	groupID := msg.GroupID
	if groupID == "" {
		groupID = msg.ReceiverID
	}

	members, err := s.groups.Resolve(ctx, groupID)
	if err != nil {
		return err
	}
	recipients := make([]string, 0, len(members))
	for _, id := range members {
		if id != msg.SenderID {
			recipients = append(recipients, id)
		}
	}

	var memSeqs []*chatpb.GroupMemSeq
	if route.NeedRecvSeq && len(recipients) > 0 {
		memSeqs, err = s.seqs.IncrGroupSeq(ctx, recipients)
		if err != nil {
			return err
		}
	}

	if err := s.applyMembership(ctx, groupID, msg); err != nil {
		return err
	}

	if err := s.checkpointMembers(ctx, memSeqs); err != nil {
		return err
	}
	if route.NeedHistory {
		if err := s.history.Save(ctx, msg); err != nil {
			return err
		}
	}
	if err := s.inbox.SaveGroupMsg(ctx, msg, memSeqs); err != nil {
		return err
	}

	if err := s.pusher.PushGroup(ctx, msg, memSeqs); err != nil {
		s.logger.Warn("PUSH_GROUP_FAILED",
			slog.String("server_id", msg.ServerID),
			slog.String("group_id", groupID),
			slog.Any("err", err))
	}
	return nil
}

// applyMembership mutates the member set for the control types that change
// it. A concurrent fan-out may still observe the pre-mutation set; that is
// the accepted cost of at-least-once delivery.
func (s *Service) applyMembership(ctx context.Context, groupID string, msg *chatpb.Msg) error {
	switch msg.MsgType {
	case chatpb.MsgTypeGroupDismiss:
		return s.groups.Evict(ctx, groupID)
	case chatpb.MsgTypeGroupMemberExit:
		return s.groups.RemoveMember(ctx, groupID, msg.SenderID)
	case chatpb.MsgTypeGroupRemoveMember:
		var removed []string
		if err := json.Unmarshal(msg.Content, &removed); err != nil {
			s.logger.Warn("MALFORMED_REMOVE_PAYLOAD",
				slog.String("group_id", groupID), slog.Any("err", err))
			return nil
		}
		return s.groups.RemoveMemberBatch(ctx, groupID, removed)
	default:
		return nil
	}
}

// checkpointMembers persists the recv max for the members whose allocation
// crossed a step boundary. The script bumps max from the value the counter
// just overtook, so the new mark is cur+step-1; the store's GREATEST guard
// absorbs any stale write.
func (s *Service) checkpointMembers(ctx context.Context, memSeqs []*chatpb.GroupMemSeq) error {
	var rows []seq.UserSeq
	for _, mem := range memSeqs {
		if mem.NeedUpdate {
			rows = append(rows, seq.UserSeq{
				UserID:  mem.MemID,
				RecvMax: mem.CurSeq + s.step - 1,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return s.checkpoints.SaveRecvMaxBatch(ctx, rows)
}
