// Package telemetry installs the global tracer provider the gRPC stats
// handlers record into. Without a collector endpoint the provider still
// propagates trace context across the fleet; spans are dropped locally.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"

	"github.com/webitel/im-chat-service/config"
)

// New builds and installs the process-wide tracer provider. When
// cfg.Endpoint names an OTLP collector, spans are batched to it over gRPC.
func New(ctx context.Context, serviceName string, cfg config.TelemetryConfig) (*sdktrace.TracerProvider, error) {
	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(serviceName))

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.Endpoint != "" {
		exp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("telemetry: exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))
	return tp, nil
}

var Module = fx.Module("telemetry",
	fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
		tp, err := New(context.Background(), "im-chat-service", cfg.Telemetry)
		if err != nil {
			return err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error { return tp.Shutdown(ctx) },
		})
		return nil
	}),
)
