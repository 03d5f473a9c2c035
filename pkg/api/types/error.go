package types

import (
	"net/http"

	"mercator-hq/crucible/pkg/experiment"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Type categorizes the error. See the ErrorType constants.
	Type string `json:"type"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Violations lists every validation problem for validation errors.
	Violations []experiment.Violation `json:"violations,omitempty"`
}

// Error type constants.
const (
	// ErrorTypeInvalidRequest indicates a malformed request body or query (400).
	ErrorTypeInvalidRequest = "invalid_request"

	// ErrorTypeValidation indicates a definition or result failed validation (422).
	ErrorTypeValidation = "validation_error"

	// ErrorTypeAdmissionDenied indicates the concurrency ceiling is reached (429).
	ErrorTypeAdmissionDenied = "admission_denied"

	// ErrorTypeInvalidState indicates the operation is illegal in the current state (409).
	ErrorTypeInvalidState = "invalid_state"

	// ErrorTypeNotFound indicates an unknown experiment (404).
	ErrorTypeNotFound = "not_found"

	// ErrorTypeCatalogUnavailable indicates the catalog could not be consulted (503).
	ErrorTypeCatalogUnavailable = "catalog_unavailable"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"
)

// NewErrorResponse creates an error response.
func NewErrorResponse(errorType, message string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Type:    errorType,
			Message: message,
		},
	}
}

// NewInvalidRequestError creates an invalid request error response.
func NewInvalidRequestError(message string) *ErrorResponse {
	return NewErrorResponse(ErrorTypeInvalidRequest, message)
}

// NewValidationError creates a validation error response carrying every
// violation.
func NewValidationError(message string, violations []experiment.Violation) *ErrorResponse {
	resp := NewErrorResponse(ErrorTypeValidation, message)
	resp.Error.Violations = violations
	return resp
}

// NewServerError creates a server error response.
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(ErrorTypeServerError, message)
}

// HTTPStatusCode returns the HTTP status for the error type.
func (e ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeInvalidState:
		return http.StatusConflict
	case ErrorTypeValidation:
		return http.StatusUnprocessableEntity
	case ErrorTypeAdmissionDenied:
		return http.StatusTooManyRequests
	case ErrorTypeCatalogUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
