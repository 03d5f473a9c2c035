package tracing

import (
	"errors"

	"mercator-hq/crucible/pkg/catalog"
	"mercator-hq/crucible/pkg/experiment"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. Custom keys use the "crucible.*" namespace.
const (
	AttrExperimentID    = "crucible.experiment.id"
	AttrExperimentType  = "crucible.experiment.type"
	AttrExperimentState = "crucible.experiment.state"
	AttrFromState       = "crucible.transition.from"
	AttrToState         = "crucible.transition.to"

	AttrBudgetUsed      = "crucible.budget.used"
	AttrBudgetAllocated = "crucible.budget.allocated"
	AttrQualityScore    = "crucible.quality.score"
	AttrActive          = "crucible.admission.active"
	AttrLimit           = "crucible.admission.limit"

	AttrErrorType = "crucible.error.type"

	AttrHTTPMethod = "http.request.method"
	AttrHTTPPath   = "url.path"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.response.status_code"
)

// ServerSpan marks a span as the server side of a request.
func ServerSpan() trace.SpanStartOption {
	return trace.WithSpanKind(trace.SpanKindServer)
}

// SetExperimentAttributes records the experiment a span operates on.
func SetExperimentAttributes(span trace.Span, id string, typ experiment.Type) {
	span.SetAttributes(
		attribute.String(AttrExperimentID, id),
		attribute.String(AttrExperimentType, string(typ)),
	)
}

// SetTransitionAttributes records a state change.
func SetTransitionAttributes(span trace.Span, from, to experiment.State) {
	span.SetAttributes(
		attribute.String(AttrFromState, string(from)),
		attribute.String(AttrToState, string(to)),
		attribute.String(AttrExperimentState, string(to)),
	)
}

// SetBudgetAttributes records spend and quality after a result.
func SetBudgetAttributes(span trace.Span, used, allocated, quality float64) {
	span.SetAttributes(
		attribute.Float64(AttrBudgetUsed, used),
		attribute.Float64(AttrBudgetAllocated, allocated),
		attribute.Float64(AttrQualityScore, quality),
	)
}

// SetAdmissionAttributes records slot usage at an admission decision.
func SetAdmissionAttributes(span trace.Span, active, limit int) {
	span.SetAttributes(
		attribute.Int(AttrActive, active),
		attribute.Int(AttrLimit, limit),
	)
}

// SetHTTPAttributes records request attributes on a server span.
func SetHTTPAttributes(span trace.Span, method, path string) {
	span.SetAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPPath, path),
	)
}

// ErrorType classifies err for span attributes and metric labels.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, experiment.ErrValidation):
		return "validation"
	case errors.Is(err, experiment.ErrAdmissionDenied):
		return "admission_denied"
	case errors.Is(err, experiment.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, experiment.ErrNotFound):
		return "not_found"
	case errors.Is(err, catalog.ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
