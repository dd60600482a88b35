package seq

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGCheckpoints persists sequence high-water marks.
//
//	CREATE TABLE sequence (
//	    user_id       TEXT PRIMARY KEY,
//	    send_max_seq  BIGINT NOT NULL DEFAULT 0,
//	    rec_max_seq   BIGINT NOT NULL DEFAULT 0
//	);
//
// GREATEST guards every update: checkpoints may be replayed out of order by
// retried consumer records, the mark only ever moves forward.
type PGCheckpoints struct {
	pool *pgxpool.Pool
}

func NewPGCheckpoints(pool *pgxpool.Pool) *PGCheckpoints {
	return &PGCheckpoints{pool: pool}
}

const saveRecvMaxSQL = `
INSERT INTO sequence (user_id, rec_max_seq) VALUES ($1, $2)
ON CONFLICT (user_id)
DO UPDATE SET rec_max_seq = GREATEST(sequence.rec_max_seq, EXCLUDED.rec_max_seq)`

const saveSendMaxSQL = `
INSERT INTO sequence (user_id, send_max_seq) VALUES ($1, $2)
ON CONFLICT (user_id)
DO UPDATE SET send_max_seq = GREATEST(sequence.send_max_seq, EXCLUDED.send_max_seq)`

func (s *PGCheckpoints) SaveRecvMax(ctx context.Context, userID string, max int64) error {
	if _, err := s.pool.Exec(ctx, saveRecvMaxSQL, userID, max); err != nil {
		return fmt.Errorf("seq checkpoints: save recv max %s: %w", userID, err)
	}
	return nil
}

func (s *PGCheckpoints) SaveSendMax(ctx context.Context, userID string, max int64) error {
	if _, err := s.pool.Exec(ctx, saveSendMaxSQL, userID, max); err != nil {
		return fmt.Errorf("seq checkpoints: save send max %s: %w", userID, err)
	}
	return nil
}

func (s *PGCheckpoints) SaveRecvMaxBatch(ctx context.Context, rows []UserSeq) error {
	if len(rows) == 0 {
		return nil
	}

	batch := new(pgx.Batch)
	for _, row := range rows {
		batch.Queue(saveRecvMaxSQL, row.UserID, row.RecvMax)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seq checkpoints: batch save: %w", err)
	}
	return nil
}

func (s *PGCheckpoints) LoadAll(ctx context.Context) ([]UserSeq, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, send_max_seq, rec_max_seq FROM sequence`)
	if err != nil {
		return nil, fmt.Errorf("seq checkpoints: load: %w", err)
	}
	defer rows.Close()

	var out []UserSeq
	for rows.Next() {
		var row UserSeq
		if err := rows.Scan(&row.UserID, &row.SendMax, &row.RecvMax); err != nil {
			return nil, fmt.Errorf("seq checkpoints: scan: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("seq checkpoints: load: %w", err)
	}
	return out, nil
}
