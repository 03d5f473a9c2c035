// Package telemetry groups Crucible's observability packages.
//
//   - logging: *slog.Logger construction, request-scoped context fields and
//     attribute redaction
//   - metrics: Prometheus collectors on a private registry
//   - tracing: OpenTelemetry tracer provider with OTLP/gRPC export
//   - health: liveness, readiness and version endpoints
//
// All four are configured from the telemetry section of pkg/config and
// wired together by the serve command.
package telemetry
