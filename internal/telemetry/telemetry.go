package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Telemetry owns the tracer provider and the run metrics.
type Telemetry struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	metrics        *Metrics
	degraded       error
}

// Option configures New.
type Option func(*options)

type options struct {
	exporter sdktrace.SpanExporter
}

// WithTraceExporter replaces the OTLP exporter.
func WithTraceExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = exp }
}

// New creates telemetry from cfg. Exporter setup failures leave tracing
// disabled and are reported by Degraded rather than returned.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Telemetry, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	t := &Telemetry{config: cfg, metrics: NewMetrics()}
	if !cfg.Enabled {
		return t, nil
	}

	tp, err := newTracerProvider(ctx, cfg, o.exporter)
	if err != nil {
		t.degraded = err
		return t, nil
	}
	t.tracerProvider = tp
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

// Tracer returns a tracer for the named scope, or a no-op tracer when
// tracing is off.
func (t *Telemetry) Tracer(name string) oteltrace.Tracer {
	if t == nil || t.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return t.tracerProvider.Tracer(name)
}

// Metrics returns the run metrics. Never nil for a non-nil Telemetry.
func (t *Telemetry) Metrics() *Metrics {
	if t == nil {
		return nil
	}
	return t.metrics
}

// Degraded returns the exporter setup error, if any.
func (t *Telemetry) Degraded() error {
	if t == nil {
		return nil
	}
	return t.degraded
}

// ForceFlush exports every span ended so far without stopping the provider.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil || t.tracerProvider == nil {
		return nil
	}
	return t.tracerProvider.ForceFlush(ctx)
}

// Shutdown flushes spans and pushes metrics when a Pushgateway is configured.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok && t.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.ShutdownTimeout)
		defer cancel()
	}

	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}
	if url := t.config.Metrics.PushgatewayURL; url != "" {
		if err := t.metrics.Push(ctx, url, t.config.Metrics.Job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
