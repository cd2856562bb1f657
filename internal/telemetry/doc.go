// Package telemetry provides OpenTelemetry tracing and Prometheus metrics
// for generation runs.
//
// Tracing is exported over OTLP (gRPC or HTTP) when enabled and is a no-op
// otherwise. Metrics live in a private Prometheus registry so a finished
// batch run can push them to a Pushgateway:
//
//	tel, err := telemetry.New(ctx, cfg)
//	defer tel.Shutdown(ctx)
//	tracer := tel.Tracer("promptwright/engine")
//	tel.Metrics().RecordSample()
//
// Telemetry failures never abort a run; the instance degrades to no-op.
package telemetry
