// Package tracing provides OpenTelemetry tracing for Crucible.
//
// New builds a tracer provider from the telemetry.tracing configuration:
// a ParentBased sampler (always, never, or a trace ID ratio) and, for the
// otlp exporter, a batching OTLP/gRPC exporter. With tracing disabled every
// span is a no-op.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithServiceVersion(version))
//	defer tracer.Shutdown(ctx)
//
//	ctx, span := tracer.Start(ctx, "manager.start")
//	defer func() { tracing.End(span, err) }()
//
// HTTPMiddleware joins traces propagated with W3C traceparent headers and
// returns the trace ID in the X-Trace-ID response header. Span attributes
// live under the crucible.* namespace.
package tracing
