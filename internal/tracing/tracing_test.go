package tracing

import (
	"context"
	"testing"
)

func TestSetup_DisabledReturnsNoopTracer(t *testing.T) {
	shutdown, tracer := Setup(context.Background(), Config{ServiceName: "test", Disabled: true})
	defer shutdown(context.Background())

	if tracer == nil {
		t.Fatal("expected a non-nil tracer even when disabled")
	}
	_, span := tracer.Start(context.Background(), "op")
	span.End()
}

func TestConfigFromEnv_SetsServiceName(t *testing.T) {
	cfg := ConfigFromEnv("svc")
	if cfg.ServiceName != "svc" {
		t.Fatalf("expected service name to be set, got %q", cfg.ServiceName)
	}
}
