package cmd

import (
	"context"
	"log/slog"

	"github.com/IBM/sarama"
	"go.uber.org/fx"

	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/config"
	"github.com/webitel/im-chat-service/infra/broker/kafka"
	"github.com/webitel/im-chat-service/infra/client"
	"github.com/webitel/im-chat-service/infra/discovery"
	"github.com/webitel/im-chat-service/infra/logging"
	grpcsrv "github.com/webitel/im-chat-service/infra/server/grpc"
	"github.com/webitel/im-chat-service/infra/storage/mongo"
	"github.com/webitel/im-chat-service/infra/storage/postgres"
	"github.com/webitel/im-chat-service/infra/storage/redis"
	"github.com/webitel/im-chat-service/infra/telemetry"
	"github.com/webitel/im-chat-service/internal/domain/registry"
	grpchandler "github.com/webitel/im-chat-service/internal/handler/grpc"
	kafkahandler "github.com/webitel/im-chat-service/internal/handler/kafka"
	"github.com/webitel/im-chat-service/internal/handler/ws"
	"github.com/webitel/im-chat-service/internal/service/consumer"
	"github.com/webitel/im-chat-service/internal/service/ingress"
	"github.com/webitel/im-chat-service/internal/service/pusher"
	"github.com/webitel/im-chat-service/internal/store/group"
	"github.com/webitel/im-chat-service/internal/store/history"
	"github.com/webitel/im-chat-service/internal/store/inbox"
	"github.com/webitel/im-chat-service/internal/store/seq"
)

// base carries what every role needs: the loaded config, the root logger and
// the service-center client.
func base(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideRegistry,
		),
		telemetry.Module,
	)
}

func ProvideLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(cfg.Log)
}

func ProvideRegistry(cfg *config.Config, logger *slog.Logger) (*discovery.Registry, error) {
	return discovery.New(cfg.ServiceCenter, logger)
}

// ProvideProducer builds the idempotent ingress producer, closed with the app.
func ProvideProducer(lc fx.Lifecycle, cfg *config.Config) (sarama.SyncProducer, error) {
	p, err := kafka.NewSyncProducer(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return p.Close() },
	})
	return p, nil
}

// ProvideChatClient opens the load-balanced channel to the ingress service.
// Connection establishment is lazy, so the gateway can boot before any chat
// instance is registered.
func ProvideChatClient(reg *discovery.Registry, cfg *config.Config, logger *slog.Logger) (chatpb.ChatClient, error) {
	conn, err := client.Dial(reg, cfg.RPC.Chat.Name, logger)
	if err != nil {
		return nil, err
	}
	return chatpb.NewChatClient(conn), nil
}

// chatRole: ingress RPC (C7). Shared infra modules are listed by the app, not
// here, so the all-in-one role composes without duplicate providers.
func chatRole() fx.Option {
	return fx.Options(
		fx.Provide(
			ProvideProducer,
			kafka.NewPublisher,
		),
		ingress.Module,
		fx.Provide(grpchandler.NewChatService),
		fx.Invoke(func(s *grpcsrv.Server, svc *grpchandler.ChatService) {
			chatpb.RegisterChatServer(s.Server, svc)
		}),
	)
}

// gatewayRole: WebSocket edge (C10) plus the gateway-side Msg RPC.
func gatewayRole() fx.Option {
	return fx.Options(
		registry.Module,
		fx.Provide(ProvideChatClient),
		ws.Module,
		fx.Provide(
			func(logger *slog.Logger, hub registry.Hubber, g *ws.Gateway) *grpchandler.MsgService {
				return grpchandler.NewMsgService(logger, hub, g.Broadcast())
			},
		),
		fx.Invoke(func(s *grpcsrv.Server, svc *grpchandler.MsgService) {
			chatpb.RegisterMsgServer(s.Server, svc)
		}),
	)
}

// consumerRole: topic drain (C8), pusher fan-out (C9) and the storage facade
// RPC, colocated because they share the stores.
func consumerRole() fx.Option {
	return fx.Options(
		history.Module,
		inbox.Module,
		group.Module,
		pusher.Module,
		consumer.Module,
		fx.Provide(
			func(cfg *config.Config) (sarama.ConsumerGroup, error) {
				return kafka.NewConsumerGroup(cfg.Kafka)
			},
			grpchandler.NewPushService,
			grpchandler.NewDbService,
		),
		kafkahandler.Module,
		fx.Invoke(func(s *grpcsrv.Server, push *grpchandler.PushService, db *grpchandler.DbService) {
			chatpb.RegisterPushServer(s.Server, push)
			chatpb.RegisterDbServer(s.Server, db)
		}),
	)
}

func ChatApp(cfg *config.Config) *fx.App {
	return fx.New(
		base(cfg),
		fx.Provide(func(cfg *config.Config) config.RPCEndpoint { return cfg.RPC.Chat }),
		redis.Module,
		postgres.Module,
		seq.Module,
		chatRole(),
		grpcsrv.Module,
	)
}

func GatewayApp(cfg *config.Config) *fx.App {
	return fx.New(
		base(cfg),
		fx.Provide(func(cfg *config.Config) config.RPCEndpoint { return cfg.RPC.WS }),
		gatewayRole(),
		grpcsrv.Module,
	)
}

func ConsumerApp(cfg *config.Config) *fx.App {
	return fx.New(
		base(cfg),
		fx.Provide(func(cfg *config.Config) config.RPCEndpoint { return cfg.RPC.DB }),
		redis.Module,
		postgres.Module,
		mongo.Module,
		seq.Module,
		consumerRole(),
		grpcsrv.Module,
	)
}

// AllApp runs every role in a single process for development. One gRPC
// server carries all four services on the chat endpoint.
func AllApp(cfg *config.Config) *fx.App {
	return fx.New(
		base(cfg),
		fx.Provide(func(cfg *config.Config) config.RPCEndpoint { return cfg.RPC.Chat }),
		redis.Module,
		postgres.Module,
		mongo.Module,
		seq.Module,
		chatRole(),
		gatewayRole(),
		consumerRole(),
		grpcsrv.Module,
	)
}
