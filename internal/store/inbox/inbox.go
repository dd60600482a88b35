// Package inbox implements the per-recipient message archive: seq-indexed
// rows that offline clients replay on reconnect, plus the janitor that
// expires old rows.
package inbox

import (
	"context"
	"fmt"

	"github.com/webitel/im-chat-service/api/chatpb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mailbox is the surface the consumer pipeline and the Db RPC depend on.
type Mailbox interface {
	SaveMessage(ctx context.Context, msg *chatpb.Msg) error
	// SaveGroupMsg writes one row per member with that member's seq, plus a
	// sender-mirror row carrying send_seq with seq=0.
	SaveGroupMsg(ctx context.Context, msg *chatpb.Msg, memSeqs []*chatpb.GroupMemSeq) error
	// DeleteMessage purges the row a receipt-ack references.
	DeleteMessage(ctx context.Context, userID, serverID string) error
	DeleteMessages(ctx context.Context, userID string, seqs []int64) error
	// GetMessagesStream yields rows with seq in [start, end] ascending.
	GetMessagesStream(ctx context.Context, userID string, start, end int64, yield func(*chatpb.Msg) error) error
	// GetMsgs unions the receive range with the user's own sent range;
	// send_seq is zeroed on received rows so clients can tell mirrors apart.
	GetMsgs(ctx context.Context, userID string, sendStart, sendEnd, recStart, recEnd int64) ([]*chatpb.Msg, error)
	MsgRead(ctx context.Context, userID string, seqs []int64) error
}

// Store keeps the `single_msg_box` collection.
type Store struct {
	coll *mongo.Collection
}

func NewStore(db *mongo.Database, collection string) *Store {
	return &Store{coll: db.Collection(collection)}
}

// EnsureIndexes installs the two access paths: the replay range scan and the
// sender-side union scan.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "send_id", Value: 1}, {Key: "send_seq", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("inbox: ensure indexes: %w", err)
	}
	return nil
}

// SaveMessage upserts on (server_id, receiver_id): a redelivered record hits
// the existing row and changes nothing, so the freshly allocated seq of a
// retry is simply discarded.
func (s *Store) SaveMessage(ctx context.Context, msg *chatpb.Msg) error {
	filter := bson.M{"server_id": msg.ServerID, "receiver_id": msg.ReceiverID}
	_, err := s.coll.UpdateOne(ctx, filter,
		bson.M{"$setOnInsert": msg},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("inbox: save %s: %w", msg.ServerID, err)
	}
	return nil
}

func (s *Store) SaveGroupMsg(ctx context.Context, msg *chatpb.Msg, memSeqs []*chatpb.GroupMemSeq) error {
	models := make([]mongo.WriteModel, 0, len(memSeqs)+1)

	for _, mem := range memSeqs {
		row := msg.Clone()
		row.ReceiverID = mem.MemID
		row.Seq = mem.CurSeq
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"server_id": row.ServerID, "receiver_id": row.ReceiverID}).
			SetUpdate(bson.M{"$setOnInsert": row}).
			SetUpsert(true))
	}

	// Sender mirror: other platforms of the sender replay their own copy.
	mirror := msg.Clone()
	mirror.ReceiverID = msg.SenderID
	mirror.Seq = 0
	models = append(models, mongo.NewUpdateOneModel().
		SetFilter(bson.M{"server_id": mirror.ServerID, "receiver_id": mirror.ReceiverID}).
		SetUpdate(bson.M{"$setOnInsert": mirror}).
		SetUpsert(true))

	_, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("inbox: save group %s: %w", msg.ServerID, err)
	}
	return nil
}

func (s *Store) DeleteMessage(ctx context.Context, userID, serverID string) error {
	_, err := s.coll.DeleteOne(ctx,
		bson.M{"receiver_id": userID, "server_id": serverID})
	if err != nil {
		return fmt.Errorf("inbox: delete %s: %w", serverID, err)
	}
	return nil
}

func (s *Store) DeleteMessages(ctx context.Context, userID string, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}
	_, err := s.coll.DeleteMany(ctx,
		bson.M{"receiver_id": userID, "seq": bson.M{"$in": seqs}})
	if err != nil {
		return fmt.Errorf("inbox: delete seqs for %s: %w", userID, err)
	}
	return nil
}

func (s *Store) GetMessagesStream(ctx context.Context, userID string, start, end int64, yield func(*chatpb.Msg) error) error {
	cur, err := s.coll.Find(ctx,
		bson.M{"receiver_id": userID, "seq": bson.M{"$gte": start, "$lte": end}},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}),
	)
	if err != nil {
		return fmt.Errorf("inbox: range %s [%d,%d]: %w", userID, start, end, err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		msg := new(chatpb.Msg)
		if err := cur.Decode(msg); err != nil {
			return fmt.Errorf("inbox: decode row: %w", err)
		}
		if err := yield(msg); err != nil {
			return err
		}
	}
	return cur.Err()
}

func (s *Store) GetMsgs(ctx context.Context, userID string, sendStart, sendEnd, recStart, recEnd int64) ([]*chatpb.Msg, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"receiver_id": userID, "seq": bson.M{"$gte": recStart, "$lte": recEnd}},
		bson.M{"send_id": userID, "send_seq": bson.M{"$gte": sendStart, "$lte": sendEnd}},
	}}

	cur, err := s.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("inbox: union query %s: %w", userID, err)
	}
	defer cur.Close(ctx)

	var out []*chatpb.Msg
	for cur.Next(ctx) {
		msg := new(chatpb.Msg)
		if err := cur.Decode(msg); err != nil {
			return nil, fmt.Errorf("inbox: decode row: %w", err)
		}
		// Received rows report send_seq 0: only the user's own mirror rows
		// expose their outbound counter.
		if msg.SenderID != userID {
			msg.SendSeq = 0
		}
		out = append(out, msg)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) MsgRead(ctx context.Context, userID string, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}
	_, err := s.coll.UpdateMany(ctx,
		bson.M{"receiver_id": userID, "seq": bson.M{"$in": seqs}},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return fmt.Errorf("inbox: mark read for %s: %w", userID, err)
	}
	return nil
}
