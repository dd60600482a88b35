// Package mongo provides the document-store client backing the inbox.
package mongo

import (
	"context"
	"fmt"

	"github.com/webitel/im-chat-service/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

func NewDatabase(lc fx.Lifecycle, cfg *config.Config) (*mongo.Database, error) {
	client, err := mongo.Connect(context.Background(),
		options.Client().ApplyURI(cfg.DB.MongoDB.URI()))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx, nil); err != nil {
				return fmt.Errorf("mongo: ping: %w", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return client.Database(cfg.DB.MongoDB.Database), nil
}

var Module = fx.Module("mongo", fx.Provide(NewDatabase))
