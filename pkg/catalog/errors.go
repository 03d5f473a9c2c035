package catalog

import (
	"errors"
	"fmt"
)

// ErrUnavailable matches any *UnavailableError via errors.Is.
var ErrUnavailable = errors.New("catalog unavailable")

// UnavailableError reports that a registry could not be consulted. It is
// retryable and must never be treated as "not found".
type UnavailableError struct {
	Catalog string // Catalog implementation ("file", "remote", ...)
	Kind    Kind   // Lookup kind that failed
	Name    string // Name being looked up, if any
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	msg := fmt.Sprintf("%s catalog unavailable", e.Catalog)
	if e.Kind != "" && e.Name != "" {
		msg = fmt.Sprintf("%s (%s %q)", msg, e.Kind, e.Name)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error.
func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrUnavailable) hold for every UnavailableError.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Retryable always returns true.
func (e *UnavailableError) Retryable() bool {
	return true
}

// NewUnavailableError creates a new UnavailableError.
func NewUnavailableError(catalog string, kind Kind, name string, cause error) *UnavailableError {
	return &UnavailableError{
		Catalog: catalog,
		Kind:    kind,
		Name:    name,
		Cause:   cause,
	}
}
