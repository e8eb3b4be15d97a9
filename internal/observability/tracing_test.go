package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/formconsole/internal/config"
)

func TestInitTracing_None(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Exporter: "none"})
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	ctx, span := StartSpan(context.Background(), "test")
	if span.SpanContext().IsSampled() {
		t.Error("no-op provider should not sample")
	}
	EndSpan(span, errors.New("boom"))
	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestBuildExporter(t *testing.T) {
	ctx := context.Background()
	if _, err := buildExporter(ctx, "zipkin", ""); err == nil {
		t.Error("expected error for unknown exporter")
	}
	exp, err := buildExporter(ctx, "stdout", "")
	if err != nil {
		t.Fatalf("stdout exporter: %v", err)
	}
	if err := exp.Shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
