// Package logging wraps zap with context-aware helpers for promptwright runs.
//
// Every log call takes a context so run-scoped fields (run id, generation
// step, topic path, trace id) are attached without threading them through
// call sites:
//
//	logger.Info(ctx, "step complete", zap.Int("samples", n))
//
// Library packages accept a *Logger through their options and fall back to
// a nop logger. Tests use NewTestLogger to assert on emitted entries.
package logging
