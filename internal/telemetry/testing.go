package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry records spans in memory.
type TestTelemetry struct {
	*Telemetry
	SpanRecorder *tracetest.SpanRecorder
}

// NewTestTelemetry returns enabled telemetry backed by a span recorder and
// a fresh metrics registry.
func NewTestTelemetry() *TestTelemetry {
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return &TestTelemetry{
		Telemetry: &Telemetry{
			config:         cfg,
			tracerProvider: tp,
			metrics:        NewMetrics(),
		},
		SpanRecorder: rec,
	}
}

// Spans returns all ended spans.
func (t *TestTelemetry) Spans() []sdktrace.ReadOnlySpan {
	return t.SpanRecorder.Ended()
}

// SpansNamed returns ended spans with the given name.
func (t *TestTelemetry) SpansNamed(name string) []sdktrace.ReadOnlySpan {
	var out []sdktrace.ReadOnlySpan
	for _, s := range t.Spans() {
		if s.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

// AssertSpanExists fails tb unless a span with name has ended.
func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	if len(t.SpansNamed(name)) == 0 {
		names := make([]string, 0, len(t.Spans()))
		for _, s := range t.Spans() {
			names = append(names, s.Name())
		}
		tb.Errorf("expected span %q not found, got: %v", name, names)
	}
}

// AssertSpanAttribute fails tb unless the first span named spanName carries key=expected.
func (t *TestTelemetry) AssertSpanAttribute(tb testing.TB, spanName, key string, expected attribute.Value) {
	tb.Helper()
	spans := t.SpansNamed(spanName)
	if len(spans) == 0 {
		tb.Fatalf("span %q not found", spanName)
	}
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) == key {
			if kv.Value != expected {
				tb.Errorf("span %q attribute %q = %v, want %v", spanName, key, kv.Value.Emit(), expected.Emit())
			}
			return
		}
	}
	tb.Errorf("span %q has no attribute %q", spanName, key)
}
