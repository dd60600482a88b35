package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.uber.org/fx"

	"github.com/webitel/im-chat-service/config"
	"github.com/webitel/im-chat-service/infra/discovery"
)

// Module wires the gateway edge: the authenticator, the gateway itself, its
// HTTP listener and the websocket service registration.
var Module = fx.Module("ws",
	fx.Provide(
		func(cfg *config.Config) (*Authenticator, error) {
			return NewAuthenticator(cfg.Server.JwtSecret)
		},
		NewGateway,
	),
	fx.Invoke(runGateway),
)

func runGateway(lc fx.Lifecycle, g *Gateway, cfg *config.Config, reg *discovery.Registry, logger *slog.Logger) {
	srv := &http.Server{
		Addr:              cfg.Websocket.Addr(),
		Handler:           g.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go g.Run(ctx)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("WS_LISTENER_FAILED", slog.Any("err", err))
				}
			}()
			return reg.Register(discovery.Registration{
				Name:    cfg.Websocket.Name,
				Address: cfg.Websocket.Host,
				Port:    cfg.Websocket.Port,
				Tags:    cfg.Websocket.Tags,
			})
		},
		OnStop: func(stopCtx context.Context) error {
			if err := reg.Deregister(cfg.Websocket.Name); err != nil {
				logger.Warn("WS_DEREGISTER_FAILED", slog.Any("err", err))
			}
			cancel()
			return srv.Shutdown(stopCtx)
		},
	})
}
