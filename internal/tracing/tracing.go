// Package tracing configures the process-wide OpenTelemetry TracerProvider
// with a zero-configuration setup: a resource carrying service identity,
// an OTLP exporter when an endpoint is configured, a stdout exporter
// otherwise, and no exporter at all when tracing is disabled.
package tracing

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config selects the exporter Setup wires up.
type Config struct {
	ServiceName string
	// OTLPEndpoint, when non-empty, routes spans to an OTLP/gRPC collector.
	// Empty selects the stdout exporter, or — when
	// Disabled is set — no exporter at all.
	OTLPEndpoint string
	// Disabled skips exporter setup entirely; spans are created (so call
	// sites need no nil checks) but dropped, matching
	// OTEL_SDK_DISABLED-style zero-configuration defaults.
	Disabled bool
}

// ConfigFromEnv mirrors the common OTEL_EXPORTER_OTLP_ENDPOINT /
// OTEL_SDK_DISABLED convention so operators don't need code changes to
// turn tracing on.
func ConfigFromEnv(serviceName string) Config {
	return Config{
		ServiceName:  serviceName,
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Disabled:     os.Getenv("OTEL_SDK_DISABLED") == "true",
	}
}

// Setup builds and installs the global TracerProvider, returning a shutdown
// func the caller should defer. On any exporter setup failure it falls back
// to the no-op provider rather than failing startup.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, tracer trace.Tracer) {
	if cfg.Disabled {
		return func(context.Context) error { return nil }, otel.Tracer("noop")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("pocket_omega.component", "reasoning-chain-engine"),
		),
	)
	if err != nil {
		res = resource.Default()
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return func(context.Context) error { return nil }, otel.Tracer("noop")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, tp.Tracer("pocket-omega")
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	if cfg.OTLPEndpoint != "" {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
	}
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}
