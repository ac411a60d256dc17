package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Span names are the stable tracing contract: one per act execution, one
// per narrative execution, one per processor invocation, one per limiter
// acquire.
const (
	SpanActExecute        = "botticelli.act.execute"
	SpanNarrativeExecute  = "botticelli.narrative.execute"
	SpanProcessorProcess  = "botticelli.processor.process"
	SpanLimiterAcquire    = "botticelli.limiter.acquire"
)

// TraceConfig configures NewTracer.
type TraceConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP gRPC collector address; empty disables export
	// (spans are still created and can be inspected by tests via the
	// returned Tracer, they are just never flushed anywhere).
	Endpoint       string
	EnableInsecure bool
}

// Tracer wraps an OpenTelemetry tracer with botticelli's fixed span
// vocabulary. There is no sampling-rate knob: every execution is worth
// tracing at this system's scale.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer builds a Tracer. If cfg.Endpoint is empty, spans are created
// against a provider with no exporter attached (a no-op sink).
func NewTracer(ctx context.Context, cfg TraceConfig) (*Tracer, func(context.Context) error, error) {
	opts := []sdktrace.TracerProviderOption{}

	if cfg.Endpoint != "" {
		clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.EnableInsecure {
			clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(clientOpts...))
		if err != nil {
			return nil, nil, fmt.Errorf("observability: build otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	t := &Tracer{provider: provider, tracer: provider.Tracer(cfg.ServiceName)}
	shutdown := func(ctx context.Context) error { return provider.Shutdown(ctx) }
	return t, shutdown, nil
}

// Start begins a span named name, returning the derived context and the
// span itself so the caller can record errors/attributes before ending it.
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// end finishes span, recording err if non-nil.
func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// StartActSpan begins the per-act-execution span.
func (t *Tracer) StartActSpan(ctx context.Context, actName string) (context.Context, func(error)) {
	ctx, span := t.Start(ctx, SpanActExecute, attribute.String("act", actName))
	return ctx, func(err error) { end(span, err) }
}

// StartNarrativeSpan begins the per-narrative-execution span.
func (t *Tracer) StartNarrativeSpan(ctx context.Context, narrativeName string) (context.Context, func(error)) {
	ctx, span := t.Start(ctx, SpanNarrativeExecute, attribute.String("narrative", narrativeName))
	return ctx, func(err error) { end(span, err) }
}

// StartLimiterSpan begins the per-acquire-call span.
func (t *Tracer) StartLimiterSpan(ctx context.Context, provider string) (context.Context, func(error)) {
	ctx, span := t.Start(ctx, SpanLimiterAcquire, attribute.String("provider", provider))
	return ctx, func(err error) { end(span, err) }
}

// StartProcessorSpan implements processor.Recorder's tracing half: it
// returns the derived context and a no-argument closer, matching
// processor.Registry's defer-free call site.
func (t *Tracer) StartProcessorSpan(ctx context.Context, processorName string) (context.Context, func()) {
	ctx, span := t.Start(ctx, SpanProcessorProcess, attribute.String("processor", processorName))
	return ctx, func() { span.End() }
}
