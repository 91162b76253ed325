package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ServiceName identifies this service in emitted spans.
	ServiceName    = "impact-etl"
	ServiceVersion = "v1.0.0"
	// TracerName is the instrumentation scope for pipeline spans.
	TracerName = "impactetl.pipeline"
)

// TracingProviders holds the tracing provider and its tracer.
type TracingProviders struct {
	TracerProvider *sdktrace.TracerProvider
	Tracer         trace.Tracer
}

// InitializeTracing sets up a stdout-exporting tracer provider. Spans go
// to the given writer (typically the log file) so pipeline step timings
// are inspectable without an external collector.
func InitializeTracing(w io.Writer, logger *slog.Logger) (*TracingProviders, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	if logger != nil {
		logger.Debug("tracing initialized", slog.String("service", ServiceName))
	}

	return &TracingProviders{
		TracerProvider: tp,
		Tracer:         tp.Tracer(TracerName),
	}, nil
}

// Shutdown flushes and stops the tracer provider.
func (p *TracingProviders) Shutdown(ctx context.Context) error {
	if p == nil || p.TracerProvider == nil {
		return nil
	}
	return p.TracerProvider.Shutdown(ctx)
}
