package ingress

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/webitel/im-chat-service/config"
	"github.com/webitel/im-chat-service/infra/broker/kafka"
	"github.com/webitel/im-chat-service/internal/store/seq"
)

var Module = fx.Module("ingress",
	fx.Provide(
		func(pub kafka.Publisher, seqs seq.Cache, cfg *config.Config, logger *slog.Logger) *Service {
			return NewService(pub, seqs, cfg.Kafka.Topic, logger)
		},
		fx.Annotate(func(s *Service) Sender { return s }, fx.As(new(Sender))),
	),
)
