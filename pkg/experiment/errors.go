package experiment

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is matching against the typed errors below.
var (
	ErrValidation      = errors.New("validation failed")
	ErrAdmissionDenied = errors.New("admission denied")
	ErrInvalidState    = errors.New("invalid state")
	ErrNotFound        = errors.New("experiment not found")
)

// Violation is one problem found in an experiment definition or request.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// String returns "field: message".
func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationError carries every violation found, never just the first.
type ValidationError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("validation failed with %d violation(s): %s", len(e.Violations), strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError from a list of violations.
func NewValidationError(violations ...Violation) *ValidationError {
	return &ValidationError{Violations: append([]Violation(nil), violations...)}
}

// AdmissionDeniedError reports that the concurrency ceiling is reached.
// Callers should retry once a slot frees.
type AdmissionDeniedError struct {
	ID     string // Experiment that was denied
	Active int    // Running experiments at the time of the check
	Limit  int    // Configured ceiling
}

// Error implements the error interface.
func (e *AdmissionDeniedError) Error() string {
	return fmt.Sprintf("admission denied for experiment %s: %d of %d slots in use", e.ID, e.Active, e.Limit)
}

// Is makes errors.Is(err, ErrAdmissionDenied) hold.
func (e *AdmissionDeniedError) Is(target error) bool {
	return target == ErrAdmissionDenied
}

// Retryable always returns true.
func (e *AdmissionDeniedError) Retryable() bool {
	return true
}

// NewAdmissionDeniedError creates a new AdmissionDeniedError.
func NewAdmissionDeniedError(id string, active, limit int) *AdmissionDeniedError {
	return &AdmissionDeniedError{ID: id, Active: active, Limit: limit}
}

// InvalidStateError reports a transition attempted from a state that does not
// permit it.
type InvalidStateError struct {
	ID    string // Experiment ID
	Op    string // Attempted operation ("start", "promote", ...)
	State State  // State at the time of the attempt
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s experiment %s in state %s", e.Op, e.ID, e.State)
}

// Is makes errors.Is(err, ErrInvalidState) hold.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// NewInvalidStateError creates a new InvalidStateError.
func NewInvalidStateError(id, op string, state State) *InvalidStateError {
	return &InvalidStateError{ID: id, Op: op, State: state}
}

// NotFoundError reports an unknown experiment identifier.
type NotFoundError struct {
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("experiment %s not found", e.ID)
}

// Is makes errors.Is(err, ErrNotFound) hold.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(id string) *NotFoundError {
	return &NotFoundError{ID: id}
}
