// Package group keeps the fan-out member sets: a short-lived in-process lru
// in front of a shared Redis set in front of the relational source of truth,
// with cache-invalidate semantics on every mutation. A cache miss falls
// through to the database behind a circuit breaker so a struggling database
// cannot stall the whole consumer.
package group

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const membersKeyPrefix = "group:members:"

const (
	hotCacheSize = 1024
	// hotCacheTTL caps how long a fan-out can run on a member set another
	// node has already mutated.
	hotCacheTTL = 30 * time.Second
)

// Members is the surface the consumer and the Db RPC depend on.
type Members interface {
	// Resolve returns the member set, serving from cache when hot and
	// falling back to the database (populating the cache) on a miss.
	Resolve(ctx context.Context, groupID string) ([]string, error)
	// Evict drops the cached set (group dismissed).
	Evict(ctx context.Context, groupID string) error
	// RemoveMember drops one member from both cache and database.
	RemoveMember(ctx context.Context, groupID, userID string) error
	// RemoveMemberBatch drops several members in one round-trip.
	RemoveMemberBatch(ctx context.Context, groupID string, userIDs []string) error
	// Create installs a new group with its initial member set.
	Create(ctx context.Context, groupID, adminID string, memberIDs []string) error
	// AddMembers extends an existing group.
	AddMembers(ctx context.Context, groupID string, memberIDs []string) error
	// Delete removes the group and its membership rows.
	Delete(ctx context.Context, groupID string) error
}

// Store implements Members.
//
//	CREATE TABLE groups (
//	    id        TEXT PRIMARY KEY,
//	    admin_id  TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE TABLE group_members (
//	    group_id  TEXT NOT NULL REFERENCES groups (id) ON DELETE CASCADE,
//	    user_id   TEXT NOT NULL,
//	    PRIMARY KEY (group_id, user_id)
//	);
type Store struct {
	hot     *expirable.LRU[string, []string]
	cache   *redis.Client
	pool    *pgxpool.Pool
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

func NewStore(cache *redis.Client, pool *pgxpool.Pool, logger *slog.Logger) *Store {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "group-members-db",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Store{
		hot:     expirable.NewLRU[string, []string](hotCacheSize, nil, hotCacheTTL),
		cache:   cache,
		pool:    pool,
		breaker: breaker,
		logger:  logger.With(slog.String("component", "group-store")),
	}
}

func (s *Store) Resolve(ctx context.Context, groupID string) ([]string, error) {
	if members, ok := s.hot.Get(groupID); ok {
		return members, nil
	}

	key := membersKeyPrefix + groupID

	members, err := s.cache.SMembers(ctx, key).Result()
	if err != nil && err != redis.Nil {
		s.logger.Warn("MEMBER_CACHE_READ_FAILED",
			slog.String("group_id", groupID), slog.Any("err", err))
	}
	if len(members) > 0 {
		s.hot.Add(groupID, members)
		return members, nil
	}

	res, err := s.breaker.Execute(func() (any, error) {
		return s.queryMembers(ctx, groupID)
	})
	if err != nil {
		return nil, fmt.Errorf("group: resolve %s: %w", groupID, err)
	}
	members = res.([]string)

	if len(members) > 0 {
		s.hot.Add(groupID, members)
		if err := s.saveToCache(ctx, groupID, members); err != nil {
			s.logger.Warn("MEMBER_CACHE_WRITE_FAILED",
				slog.String("group_id", groupID), slog.Any("err", err))
		}
	}
	return members, nil
}

func (s *Store) queryMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM group_members WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

func (s *Store) saveToCache(ctx context.Context, groupID string, members []string) error {
	key := membersKeyPrefix + groupID
	vals := make([]any, len(members))
	for i, m := range members {
		vals[i] = m
	}
	_, err := s.cache.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, vals...)
		return nil
	})
	return err
}

func (s *Store) Evict(ctx context.Context, groupID string) error {
	s.hot.Remove(groupID)
	if err := s.cache.Del(ctx, membersKeyPrefix+groupID).Err(); err != nil {
		return fmt.Errorf("group: evict %s: %w", groupID, err)
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, groupID, userID string) error {
	return s.RemoveMemberBatch(ctx, groupID, []string{userID})
}

func (s *Store) RemoveMemberBatch(ctx context.Context, groupID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	s.hot.Remove(groupID)

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = ANY($2)`,
		groupID, userIDs); err != nil {
		return fmt.Errorf("group: remove members %s: %w", groupID, err)
	}

	vals := make([]any, len(userIDs))
	for i, id := range userIDs {
		vals[i] = id
	}
	if err := s.cache.SRem(ctx, membersKeyPrefix+groupID, vals...).Err(); err != nil {
		return fmt.Errorf("group: uncache members %s: %w", groupID, err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, groupID, adminID string, memberIDs []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("group: create %s: %w", groupID, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO groups (id, admin_id) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		groupID, adminID); err != nil {
		return fmt.Errorf("group: create %s: %w", groupID, err)
	}

	batch := new(pgx.Batch)
	for _, id := range dedupe(append(memberIDs, adminID)) {
		batch.Queue(
			`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			groupID, id)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("group: create members %s: %w", groupID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("group: create %s: %w", groupID, err)
	}

	// Invalidate instead of populate: the next fan-out reloads the full set.
	return s.Evict(ctx, groupID)
}

func (s *Store) AddMembers(ctx context.Context, groupID string, memberIDs []string) error {
	if len(memberIDs) == 0 {
		return nil
	}

	batch := new(pgx.Batch)
	for _, id := range dedupe(memberIDs) {
		batch.Queue(
			`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			groupID, id)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("group: add members %s: %w", groupID, err)
	}
	return s.Evict(ctx, groupID)
}

func (s *Store) Delete(ctx context.Context, groupID string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM groups WHERE id = $1`, groupID); err != nil {
		return fmt.Errorf("group: delete %s: %w", groupID, err)
	}
	return s.Evict(ctx, groupID)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
