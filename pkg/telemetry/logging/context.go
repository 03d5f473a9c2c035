package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	// RequestIDKey is the context key for HTTP request IDs.
	RequestIDKey contextKey = "request_id"

	// ExperimentIDKey is the context key for the experiment being operated on.
	ExperimentIDKey contextKey = "experiment_id"

	// ActorKey is the context key for the caller performing an operation.
	ActorKey contextKey = "actor"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithExperimentID adds an experiment ID to the context.
func WithExperimentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ExperimentIDKey, id)
}

// GetExperimentID retrieves the experiment ID from the context.
func GetExperimentID(ctx context.Context) string {
	if id, ok := ctx.Value(ExperimentIDKey).(string); ok {
		return id
	}
	return ""
}

// WithActor adds the acting principal to the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor retrieves the acting principal from the context.
func GetActor(ctx context.Context) string {
	if actor, ok := ctx.Value(ActorKey).(string); ok {
		return actor
	}
	return ""
}

// contextAttrs returns the request-scoped attributes carried by ctx,
// including the active OpenTelemetry trace and span IDs.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if v := GetRequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(RequestIDKey), v))
	}
	if v := GetExperimentID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(ExperimentIDKey), v))
	}
	if v := GetActor(ctx); v != "" {
		attrs = append(attrs, slog.String(string(ActorKey), v))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return attrs
}

// ContextHandler decorates records with the request-scoped fields found in
// the context passed to the *Context logging methods.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
