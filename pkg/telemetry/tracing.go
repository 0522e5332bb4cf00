package telemetry

import (
	"context"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	otelsemconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// TracerConfig selects the span exporter. A non-empty Endpoint sends spans to
// the OTLP/gRPC collector. Without one, spans are written to Writer (stdout
// when nil) only if StdoutFallback is set; otherwise tracing stays disabled.
type TracerConfig struct {
	ServiceName    string
	Endpoint       string
	StdoutFallback bool
	Writer         io.Writer
}

// SetupTracerProvider installs a global tracer provider and returns its shutdown func.
// When tracing is disabled the global provider is left untouched.
func SetupTracerProvider(ctx context.Context, cfg TracerConfig) (func(context.Context) error, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" && !cfg.StdoutFallback {
		return func(context.Context) error { return nil }, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "rsm-incident-toolkit"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			otelsemconv.SchemaURL,
			otelsemconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	var exporter sdktrace.SpanExporter
	if strings.TrimSpace(cfg.Endpoint) == "" {
		writer := cfg.Writer
		if writer == nil {
			writer = os.Stdout
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(writer), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
	} else {
		clean := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(clean),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
