// Package grpc hosts the shared fleet server: one grpc.Server with the
// standard health service, otel instrumentation, and registration in the
// service center tied to the fx lifecycle.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	grpclogging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpcrecovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/webitel/im-chat-service/config"
	"github.com/webitel/im-chat-service/infra/discovery"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

type Server struct {
	// Server is exported so handler modules can register their services.
	Server *grpc.Server

	cfg      config.RPCEndpoint
	health   *health.Server
	registry *discovery.Registry
	logger   *slog.Logger
	lis      net.Listener
}

func NewServer(cfg config.RPCEndpoint, registry *discovery.Registry, logger *slog.Logger) *Server {
	recoverOpt := grpcrecovery.WithRecoveryHandler(panicToStatus(logger))

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpclogging.UnaryServerInterceptor(interceptorLogger(logger),
				grpclogging.WithLogOnEvents(grpclogging.FinishCall)),
			grpcrecovery.UnaryServerInterceptor(recoverOpt),
		),
		grpc.ChainStreamInterceptor(
			grpclogging.StreamServerInterceptor(interceptorLogger(logger),
				grpclogging.WithLogOnEvents(grpclogging.FinishCall)),
			grpcrecovery.StreamServerInterceptor(recoverOpt),
		),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	)

	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)

	return &Server{
		Server:   srv,
		cfg:      cfg,
		health:   h,
		registry: registry,
		logger:   logger.With(slog.String("component", "grpc-server"), slog.String("service", cfg.Name)),
	}
}

// Start listens, serves in the background and announces the instance.
// Registration happens after the listener is live so the health check the
// service center installs has something to probe.
func (s *Server) Start(_ context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("grpc server: listen %s: %w", s.cfg.Addr(), err)
	}
	s.lis = lis

	go func() {
		if err := s.Server.Serve(lis); err != nil {
			s.logger.Error("GRPC_SERVE_STOPPED", slog.Any("err", err))
		}
	}()

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	if err := s.registry.Register(discovery.Registration{
		Name:            s.cfg.Name,
		Address:         s.cfg.Host,
		Port:            s.cfg.Port,
		Tags:            s.cfg.Tags,
		GRPCHealthCheck: s.cfg.GRPCHealthCheck,
	}); err != nil {
		s.Server.Stop()
		return err
	}

	s.logger.Info("GRPC_SERVER_STARTED", slog.String("addr", s.cfg.Addr()))
	return nil
}

// Stop deregisters first so peers stop routing here, then drains in-flight
// calls.
func (s *Server) Stop(ctx context.Context) error {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	if err := s.registry.Deregister(s.cfg.Name); err != nil {
		s.logger.Warn("DEREGISTER_FAILED", slog.Any("err", err))
	}

	done := make(chan struct{})
	go func() {
		s.Server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.Server.Stop()
	}

	s.logger.Info("GRPC_SERVER_STOPPED")
	return nil
}

// panicToStatus keeps a panicking handler from killing the whole process:
// the panic is logged and the caller sees codes.Internal.
func panicToStatus(logger *slog.Logger) func(any) error {
	return func(p any) error {
		logger.Error("HANDLER_PANIC", slog.Any("panic", p))
		return status.Error(codes.Internal, "internal error")
	}
}

// interceptorLogger bridges the middleware logging contract onto slog.
func interceptorLogger(l *slog.Logger) grpclogging.Logger {
	return grpclogging.LoggerFunc(func(ctx context.Context, lvl grpclogging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}

var Module = fx.Module("grpc-server",
	fx.Provide(NewServer),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: s.Start,
			OnStop:  s.Stop,
		})
	}),
)
