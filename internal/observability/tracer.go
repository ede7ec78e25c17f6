package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// TracerConfig holds configuration for OpenTelemetry tracing
type TracerConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`     // OTLP endpoint (e.g., "localhost:4317")
	ServiceName string  `mapstructure:"service_name"` // Service name for traces
	Environment string  `mapstructure:"environment"`  // Environment (local, ci)
	SampleRate  float64 `mapstructure:"sample_rate"`  // Sample rate 0.0-1.0 (1.0 = 100%)
	Insecure    bool    `mapstructure:"insecure"`     // Use insecure connection (for local collectors)
}

// DefaultTracerConfig returns sensible defaults for tracing
func DefaultTracerConfig() TracerConfig {
	return TracerConfig{
		Enabled:     false,
		Endpoint:    "localhost:4317",
		ServiceName: "libbuild",
		Environment: "local",
		SampleRate:  1.0,
		Insecure:    true,
	}
}

// Tracer wraps OpenTelemetry tracer functionality
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	enabled  bool
}

// NewTracer creates a new OpenTelemetry tracer. When tracing is disabled the
// returned tracer is a no-op and nothing is exported.
func NewTracer(ctx context.Context, cfg TracerConfig, version string) (*Tracer, error) {
	if !cfg.Enabled {
		log.Debug().Msg("OpenTelemetry tracing is disabled")
		return &Tracer{
			tracer:  otel.Tracer("libbuild-noop"),
			enabled: false,
		}, nil
	}

	defaults := DefaultTracerConfig()
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaults.ServiceName
	}
	if cfg.Environment == "" {
		cfg.Environment = defaults.Environment
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaults.SampleRate
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaults.Endpoint
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts,
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			otlptracegrpc.WithInsecure(),
		)
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)

	log.Debug().
		Str("endpoint", cfg.Endpoint).
		Str("service_name", cfg.ServiceName).
		Float64("sample_rate", cfg.SampleRate).
		Msg("OpenTelemetry tracing initialized")

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer("libbuild"),
		enabled:  true,
	}, nil
}

// NewTracerFromProvider wraps an existing provider, mainly for tests
func NewTracerFromProvider(provider *sdktrace.TracerProvider) *Tracer {
	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer("libbuild"),
		enabled:  true,
	}
}

// Shutdown flushes pending spans. The CLI exits right after a build, so this
// must run before returning from main.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// IsEnabled returns whether tracing is enabled
func (t *Tracer) IsEnabled() bool {
	return t.enabled
}

// Tracer returns the underlying OpenTelemetry tracer
func (t *Tracer) Tracer() trace.Tracer {
	return t.tracer
}

// StartPassSpan starts a span for one build pass
func StartPassSpan(ctx context.Context, tracer trace.Tracer, pass, entry string, formats []string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "build."+pass,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("build.pass", pass),
			attribute.String("build.entry", entry),
			attribute.StringSlice("build.formats", formats),
		),
	)
}

// EndSpan records the outcome of a span and ends it
func EndSpan(span trace.Span, duration time.Duration, err error) {
	span.SetAttributes(attribute.Int64("build.duration_ms", duration.Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// ExtractTraceID extracts the trace ID from context as a string
func ExtractTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
