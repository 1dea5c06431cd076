// Package observability wires OpenTelemetry tracing for pipeline stages.
//
// Until Init installs a provider, spans come from the global no-op tracer,
// so instrumented code runs unchanged with tracing off.
package observability

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

const instrumentationName = "github.com/Dawood-ML/uv-project-management"

// Exporters accepted by Config.Exporter.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// Config controls tracing and metric export.
type Config struct {
	Exporter    string  `yaml:"exporter" mapstructure:"exporter" validate:"omitempty,oneof=none stdout"`
	SampleRatio float64 `yaml:"sample_ratio" mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
	ServiceName string  `yaml:"service_name" mapstructure:"service_name"`
	// PushGateway, when set, receives the run's Prometheus metrics on exit.
	PushGateway string `yaml:"push_gateway" mapstructure:"push_gateway"`
}

// DefaultConfig returns tracing off, full sampling when enabled.
func DefaultConfig() Config {
	return Config{
		Exporter:    ExporterNone,
		SampleRatio: 1.0,
		ServiceName: "churn",
	}
}

// ShutdownFunc flushes buffered spans and releases the provider.
type ShutdownFunc func(context.Context) error

// Init installs a global tracer provider per cfg. Spans from the stdout
// exporter are written to w, or os.Stderr when w is nil. The returned
// ShutdownFunc must be called before exit to flush batched spans.
func Init(ctx context.Context, cfg Config, w io.Writer) (ShutdownFunc, error) {
	switch cfg.Exporter {
	case "", ExporterNone:
		return func(context.Context) error { return nil }, nil
	case ExporterStdout:
	default:
		return nil, errors.Configuration("unknown trace exporter").
			WithDetail("exporter", cfg.Exporter).
			WithDetail("supported", []string{ExporterNone, ExporterStdout})
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		return nil, errors.Configuration("sample ratio must be in [0, 1]").
			WithDetail("sample_ratio", cfg.SampleRatio)
	}
	if w == nil {
		w = os.Stderr
	}
	name := cfg.ServiceName
	if name == "" {
		name = "churn"
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(name)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create trace resource")
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create stdout exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to shutdown tracer")
		}
		return nil
	}, nil
}

// StartSpan starts a span named after a pipeline stage.
func StartSpan(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, stage, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TraceID returns the hex trace id of the span in ctx, or "" if unsampled.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || !sc.IsSampled() {
		return ""
	}
	return sc.TraceID().String()
}
