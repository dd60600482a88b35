package pusher

import (
	"context"

	"go.uber.org/fx"

	"github.com/webitel/im-chat-service/config"
	"github.com/webitel/im-chat-service/infra/discovery"
	"github.com/webitel/im-chat-service/internal/service/consumer"
)

var Module = fx.Module("pusher",
	fx.Provide(
		NewService,
		fx.Annotate(func(s *Service) consumer.Pusher { return s }, fx.As(new(consumer.Pusher))),
	),
	fx.Invoke(func(lc fx.Lifecycle, s *Service, reg *discovery.Registry, cfg *config.Config) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					defer close(done)
					s.Run(ctx, reg, cfg.RPC.WS.Name)
				}()
				return nil
			},
			OnStop: func(stopCtx context.Context) error {
				cancel()
				select {
				case <-done:
					return nil
				case <-stopCtx.Done():
					return stopCtx.Err()
				}
			},
		})
	}),
)
