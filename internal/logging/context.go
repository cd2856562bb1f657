// internal/logging/context.go
package logging

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type runIDCtxKey struct{}
type stepCtxKey struct{}
type topicPathCtxKey struct{}
type loggerCtxKey struct{}

// ContextFields extracts run correlation data from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields := make([]zap.Field, 0, 5)

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := RunIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("run.id", id))
	}
	if step, ok := StepFromContext(ctx); ok {
		fields = append(fields, zap.Int("step", step))
	}
	if path := TopicPathFromContext(ctx); len(path) > 0 {
		fields = append(fields, zap.String("topic.path", strings.Join(path, " -> ")))
	}
	return fields
}

// WithRunID tags ctx with the id of the current generation run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDCtxKey{}, runID)
}

// RunIDFromContext returns the run id or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDCtxKey{}).(string)
	return id
}

// WithStep tags ctx with the zero-based generation step.
func WithStep(ctx context.Context, step int) context.Context {
	return context.WithValue(ctx, stepCtxKey{}, step)
}

// StepFromContext returns the generation step, if set.
func StepFromContext(ctx context.Context) (int, bool) {
	step, ok := ctx.Value(stepCtxKey{}).(int)
	return step, ok
}

// WithTopicPath tags ctx with the topic tree node being expanded.
func WithTopicPath(ctx context.Context, path []string) context.Context {
	cp := make([]string, len(path))
	copy(cp, path)
	return context.WithValue(ctx, topicPathCtxKey{}, cp)
}

// TopicPathFromContext returns the topic path or nil.
func TopicPathFromContext(ctx context.Context) []string {
	path, _ := ctx.Value(topicPathCtxKey{}).([]string)
	return path
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves the logger stored in ctx, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return NewNop()
}
