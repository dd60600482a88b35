package kafka

import (
	"context"
	"log/slog"

	"github.com/IBM/sarama"
	"go.uber.org/fx"

	"github.com/webitel/im-chat-service/config"
	"github.com/webitel/im-chat-service/internal/service/consumer"
)

var Module = fx.Module("kafka-handler",
	fx.Provide(
		func(group sarama.ConsumerGroup, cfg *config.Config, svc *consumer.Service, logger *slog.Logger) *Runner {
			return NewRunner(group, cfg.Kafka.Topic, svc, logger)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, runner *Runner, group sarama.ConsumerGroup) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					defer close(done)
					runner.Run(ctx)
				}()
				return nil
			},
			OnStop: func(stopCtx context.Context) error {
				cancel()
				select {
				case <-done:
				case <-stopCtx.Done():
					return stopCtx.Err()
				}
				return group.Close()
			},
		})
	}),
)
