// Package middleware provides the HTTP middleware chain of the experiment
// API.
//
// The server applies it outermost first:
//
//  1. RecoveryMiddleware turns handler panics into 500 responses
//  2. RequestIDMiddleware assigns X-Request-ID
//  3. tracing.HTTPMiddleware opens the server span
//  4. ActorMiddleware carries X-Actor into the context
//  5. LoggingMiddleware logs each request
//  6. MetricsMiddleware records per-route counts and latencies
//
// MetricsMiddleware must wrap the ServeMux directly so it can read the matched
// route pattern.
package middleware
