package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/fyrsmithlabs/promptwright/internal/telemetry"
)

// instrumented records a span and latency metrics around each call.
type instrumented struct {
	next     Client
	provider string
	tracer   trace.Tracer
	metrics  *telemetry.Metrics
}

// Instrument wraps c with tracing and metrics. Either may be nil.
func Instrument(c Client, provider string, tracer trace.Tracer, m *telemetry.Metrics) Client {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("llm")
	}
	return &instrumented{next: c, provider: provider, tracer: tracer, metrics: m}
}

func (i *instrumented) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := i.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.provider", i.provider),
		attribute.String("llm.model", req.Model),
		attribute.Float64("llm.temperature", req.Temperature),
	))
	defer span.End()

	start := time.Now()
	text, err := i.next.Complete(ctx, req)
	i.metrics.RecordCompletion(i.provider, "single", time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("llm.response_chars", len(text)))
	return text, nil
}

// BatchComplete records the batch as one observation and fans out to the
// wrapped client directly.
func (i *instrumented) BatchComplete(ctx context.Context, reqs []Request) ([]string, error) {
	ctx, span := i.tracer.Start(ctx, "llm.batch_complete", trace.WithAttributes(
		attribute.String("llm.provider", i.provider),
		attribute.Int("llm.batch_size", len(reqs)),
	))
	defer span.End()

	start := time.Now()
	out, err := fanOut(ctx, i.next, reqs)
	i.metrics.RecordCompletion(i.provider, "batch", time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

var (
	_ Client  = (*instrumented)(nil)
	_ Batcher = (*instrumented)(nil)
)
