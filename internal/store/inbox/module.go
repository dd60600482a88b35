package inbox

import (
	"context"
	"log/slog"

	"github.com/webitel/im-chat-service/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
)

var Module = fx.Module("inbox",
	fx.Provide(
		func(db *mongo.Database, cfg *config.Config) *Store {
			return NewStore(db, cfg.DB.MongoDB.Collection)
		},
		fx.Annotate(func(s *Store) Mailbox { return s }, fx.As(new(Mailbox))),

		func(store *Store, cfg *config.Config, logger *slog.Logger) *Janitor {
			return NewJanitor(store, cfg.MongoDB.Clean, logger)
		},
	),

	fx.Invoke(func(lc fx.Lifecycle, store *Store, janitor *Janitor) {
		janitorCtx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := store.EnsureIndexes(ctx); err != nil {
					return err
				}
				go janitor.Run(janitorCtx)
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}),
)
