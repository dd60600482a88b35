// Package history implements the append-only message ledger. The ledger is
// the durable audit record; the replayable per-recipient view lives in the
// inbox store.
package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/webitel/im-chat-service/api/chatpb"
	"go.uber.org/fx"
)

// Ledger is the narrow surface the consumer pipeline depends on.
type Ledger interface {
	Save(ctx context.Context, msg *chatpb.Msg) error
}

// Store appends to the relational `messages` table.
//
//	CREATE TABLE messages (
//	    server_id     TEXT PRIMARY KEY,
//	    client_id     TEXT NOT NULL,
//	    send_id       TEXT NOT NULL,
//	    receiver_id   TEXT NOT NULL,
//	    group_id      TEXT,
//	    msg_type      INT NOT NULL,
//	    content_type  INT NOT NULL,
//	    content       BYTEA,
//	    send_time     BIGINT NOT NULL,
//	    send_seq      BIGINT NOT NULL
//	);
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const saveSQL = `
INSERT INTO messages
    (server_id, client_id, send_id, receiver_id, group_id,
     msg_type, content_type, content, send_time, send_seq)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)
ON CONFLICT (server_id) DO NOTHING`

// Save appends one message. The server_id conflict clause makes consumer
// retries a no-op, which is what allows the pipeline to redeliver freely.
func (s *Store) Save(ctx context.Context, msg *chatpb.Msg) error {
	_, err := s.pool.Exec(ctx, saveSQL,
		msg.ServerID, msg.ClientID, msg.SenderID, msg.ReceiverID, msg.GroupID,
		msg.MsgType, msg.ContentType, msg.Content, msg.SendTime, msg.SendSeq,
	)
	if err != nil {
		return fmt.Errorf("history: save %s: %w", msg.ServerID, err)
	}
	return nil
}

var Module = fx.Module("history",
	fx.Provide(
		NewStore,
		fx.Annotate(func(s *Store) Ledger { return s }, fx.As(new(Ledger))),
	),
)
