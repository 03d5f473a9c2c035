// Package server provides the HTTP server for the experiment API.
//
// This package ties the API handlers, middleware and telemetry endpoints
// together and manages the server lifecycle.
//
// # Basic Usage
//
//	handler := server.NewHandler(server.Routes{
//	    Experiments:   handlers.NewExperimentHandler(mgr, handlers.Config{Logger: logger}),
//	    Health:        &cfg.Telemetry.Health,
//	    Checker:       checker,
//	    Metrics:       collector,
//	    MetricsConfig: &cfg.Telemetry.Metrics,
//	    Tracer:        tracer,
//	    Logger:        logger,
//	})
//
//	srv := server.NewServer(cfg.Server, handler, logger)
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// # Graceful Shutdown
//
// Start blocks until ctx is cancelled. The caller owns signal handling,
// usually through signal.NotifyContext. On cancellation the server:
//  1. Stops accepting new connections
//  2. Waits for in-flight requests up to ShutdownTimeout
//  3. Closes remaining connections
//
// # Routes
//
// Besides the /v1 experiment routes documented in package handlers, the
// server mounts the liveness, readiness and version probes and the
// Prometheus scrape endpoint at their configured paths.
//
// # Middleware Chain
//
// Requests pass through, outermost first:
//  1. Recovery: turns panics into 500 responses
//  2. RequestID: assigns or propagates X-Request-ID
//  3. Tracing: extracts trace context and opens a server span
//  4. Actor: reads X-Actor into the context for evidence records
//  5. Logging: logs request completion
//  6. Metrics: counts requests by route pattern
package server
