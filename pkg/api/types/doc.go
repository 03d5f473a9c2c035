// Package types defines the JSON request and response bodies of the
// experiment API.
//
// Durations travel as seconds (time_limit_seconds, duration_seconds). Every
// error response has the shape
//
//	{"error": {"type": "validation_error", "message": "...", "violations": [...]}}
//
// where violations is present only for validation errors.
package types
