package seq

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"github.com/webitel/im-chat-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module("seq",
	fx.Provide(
		func(client *goredis.Client, cfg *config.Config) *RedisCache {
			return NewRedisCache(client, cfg.Redis.SeqStep)
		},
		fx.Annotate(func(c *RedisCache) Cache { return c }, fx.As(new(Cache))),

		NewPGCheckpoints,
		fx.Annotate(func(s *PGCheckpoints) Checkpoints { return s }, fx.As(new(Checkpoints))),

		func(cache Cache, cp Checkpoints, cfg *config.Config) *Engine {
			return NewEngine(cache, cp, cfg.Redis.SeqStep)
		},
	),

	// Counters must be warm before the first allocation.
	fx.Invoke(func(lc fx.Lifecycle, e *Engine) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return e.WarmUp(ctx)
			},
		})
	}),
)
