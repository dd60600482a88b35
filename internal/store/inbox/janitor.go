package inbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/config"
	"go.mongodb.org/mongo-driver/bson"
)

const sweepInterval = 24 * time.Hour

// Janitor expires inbox rows past the retention window, skipping the
// configured excluded message types.
type Janitor struct {
	store  *Store
	cfg    config.CleanConfig
	logger *slog.Logger
}

func NewJanitor(store *Store, cfg config.CleanConfig, logger *slog.Logger) *Janitor {
	return &Janitor{
		store:  store,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "inbox-janitor")),
	}
}

// Run sweeps once a day until ctx is cancelled. The first sweep happens
// immediately so a long-stopped deployment catches up on start.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		if err := j.Sweep(ctx, time.Now()); err != nil {
			j.logger.Warn("SWEEP_FAILED", slog.Any("err", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep deletes rows with send_time before now − period whose msg_type is
// not excluded.
func (j *Janitor) Sweep(ctx context.Context, now time.Time) error {
	if j.cfg.Period <= 0 {
		return nil
	}

	cutoff := now.Add(-time.Duration(j.cfg.Period) * 24 * time.Hour).UnixMilli()
	res, err := j.store.coll.DeleteMany(ctx, BuildCleanFilter(cutoff, j.cfg.ExceptTypes))
	if err != nil {
		return err
	}

	j.logger.Info("SWEEP_DONE",
		slog.Int64("deleted", res.DeletedCount),
		slog.Int64("cutoff_ms", cutoff),
	)
	return nil
}

// BuildCleanFilter renders the janitor's delete predicate.
func BuildCleanFilter(cutoffMillis int64, exceptTypes []int32) bson.M {
	filter := bson.M{"send_time": bson.M{"$lt": cutoffMillis}}
	if len(exceptTypes) > 0 {
		types := make([]chatpb.MsgType, 0, len(exceptTypes))
		for _, t := range exceptTypes {
			types = append(types, chatpb.MsgType(t))
		}
		filter["msg_type"] = bson.M{"$nin": types}
	}
	return filter
}
