// Package seq implements the per-user sequence engine: cache-backed atomic
// counters with step-based checkpointing into the relational store.
//
// Every user owns two counters, send_seq and recv_seq. The live value moves
// on every allocation; a persisted high-water mark lags it by at most Step.
// After a cold start, counters rehydrate from the persisted mark, so clients
// may observe a jump of at most Step — never a regression.
package seq

import (
	"context"

	"github.com/webitel/im-chat-service/api/chatpb"
)

// UserSeq is one row of the relational `sequence` table.
type UserSeq struct {
	UserID  string
	SendMax int64
	RecvMax int64
}

// Cache is the live-counter side (C3).
type Cache interface {
	// IncrRecvSeq atomically advances the receiver's inbound counter.
	// updated reports that the cached max crossed a checkpoint step and the
	// new max must be persisted.
	IncrRecvSeq(ctx context.Context, userID string) (cur, max int64, updated bool, err error)
	// IncrSendSeq is the symmetric sender-side allocation.
	IncrSendSeq(ctx context.Context, userID string) (cur, max int64, updated bool, err error)
	// GetSendSeq reads the sender's pair without advancing it.
	GetSendSeq(ctx context.Context, userID string) (cur, max int64, err error)
	// IncrGroupSeq advances every member's inbound counter in one pipeline
	// round-trip.
	IncrGroupSeq(ctx context.Context, memberIDs []string) ([]*chatpb.GroupMemSeq, error)
	// Loaded reports whether the one-shot warm-up already ran.
	Loaded(ctx context.Context) (bool, error)
	// SetSeq seeds counters from persisted marks; existing counters are left
	// untouched.
	SetSeq(ctx context.Context, rows []UserSeq) error
	// MarkLoaded flips the one-shot warm-up flag.
	MarkLoaded(ctx context.Context) error
}

// Checkpoints is the persistence side (C4).
type Checkpoints interface {
	SaveRecvMax(ctx context.Context, userID string, max int64) error
	SaveSendMax(ctx context.Context, userID string, max int64) error
	// SaveRecvMaxBatch persists marks for the group fan-out members whose
	// allocation crossed a step.
	SaveRecvMaxBatch(ctx context.Context, rows []UserSeq) error
	LoadAll(ctx context.Context) ([]UserSeq, error)
}

// SendCheckpointDue reports whether the sender's persisted max must be
// refreshed: true exactly on the first allocation past a checkpoint
// boundary, so the store sees one write per Step allocations.
func SendCheckpointDue(cur, max, step int64) bool {
	return cur == max-step+1
}

// Engine ties the cache to its checkpoint store and owns cold-start warm-up.
type Engine struct {
	Cache       Cache
	Checkpoints Checkpoints
	Step        int64
}

func NewEngine(cache Cache, cp Checkpoints, step int64) *Engine {
	return &Engine{Cache: cache, Checkpoints: cp, Step: step}
}

// WarmUp rehydrates live counters from persisted marks once per cache
// lifetime. live := persisted_max, headroom := persisted_max + Step.
func (e *Engine) WarmUp(ctx context.Context) error {
	loaded, err := e.Cache.Loaded(ctx)
	if err != nil {
		return err
	}
	if loaded {
		return nil
	}

	rows, err := e.Checkpoints.LoadAll(ctx)
	if err != nil {
		return err
	}
	if err := e.Cache.SetSeq(ctx, rows); err != nil {
		return err
	}
	return e.Cache.MarkLoaded(ctx)
}
