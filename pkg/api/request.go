package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mercator-hq/crucible/pkg/api/types"
)

// DefaultMaxBodyBytes is used when a handler is given no body limit.
const DefaultMaxBodyBytes = 1 << 20

// DecodeJSON decodes the request body into v. The body is limited to
// maxBytes, unknown fields are rejected and trailing data is an error. All
// failures are *RequestError.
//
// Example usage:
//
//	var req types.FailRequest
//	if err := DecodeJSON(w, r, h.maxBody, &req); err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return &RequestError{Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes)}
		case errors.Is(err, io.EOF):
			return &RequestError{Message: "request body is empty"}
		default:
			return &RequestError{Message: fmt.Sprintf("invalid JSON: %v", err)}
		}
	}
	if dec.More() {
		return &RequestError{Message: "request body must contain a single JSON object"}
	}
	return nil
}

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to an API error response.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Message)
}
