package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupTracerProviderStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := SetupTracerProvider(context.Background(), TracerConfig{ServiceName: "incidentd-test", StdoutFallback: true, Writer: &buf})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "incident.reconstruct")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "incident.reconstruct") {
		t.Fatalf("expected span in stdout export, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "incidentd-test") {
		t.Fatalf("expected service name resource, got %q", buf.String())
	}
}

func TestSetupTracerProviderDisabledWithoutEndpoint(t *testing.T) {
	before := otel.GetTracerProvider()
	var buf bytes.Buffer
	shutdown, err := SetupTracerProvider(context.Background(), TracerConfig{ServiceName: "incidentd-test", Writer: &buf})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("expected global tracer provider to stay unchanged")
	}

	_, span := otel.Tracer("test").Start(context.Background(), "incident.reconstruct")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no span output, got %q", buf.String())
	}
}

func TestNewLogger(t *testing.T) {
	for _, dev := range []bool{true, false} {
		logger, err := NewLogger(dev)
		if err != nil {
			t.Fatalf("NewLogger(%v): %v", dev, err)
		}
		if logger == nil {
			t.Fatalf("NewLogger(%v) returned nil", dev)
		}
	}
}
