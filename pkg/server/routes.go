package server

import (
	"log/slog"
	"net/http"

	"mercator-hq/crucible/pkg/api/handlers"
	"mercator-hq/crucible/pkg/api/middleware"
	"mercator-hq/crucible/pkg/config"
	"mercator-hq/crucible/pkg/telemetry/health"
	"mercator-hq/crucible/pkg/telemetry/metrics"
	"mercator-hq/crucible/pkg/telemetry/tracing"
)

// Routes collects everything mounted on the server's mux. Experiments is
// required; the rest is optional.
type Routes struct {
	Experiments *handlers.ExperimentHandler

	Health  *config.HealthConfig
	Checker *health.Checker
	Version health.VersionInfo

	Metrics       *metrics.Collector
	MetricsConfig *config.MetricsConfig

	Tracer *tracing.Tracer
	Logger *slog.Logger
}

// NewHandler builds the mux and wraps it in the middleware chain:
//
//	Recovery → RequestID → Tracing → Actor → Logging → Metrics → mux
//
// Metrics sits directly on the mux so it can read the matched route pattern.
func NewHandler(r Routes) http.Handler {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	r.Experiments.Register(mux)

	if r.Health != nil && r.Health.Enabled && r.Checker != nil {
		health.Register(mux, r.Health, r.Checker, r.Version)
	}
	if r.MetricsConfig != nil && r.MetricsConfig.Enabled && r.Metrics != nil && r.MetricsConfig.Path != "" {
		mux.Handle("GET "+r.MetricsConfig.Path, r.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.MetricsMiddleware(r.Metrics)(handler)
	handler = middleware.LoggingMiddleware(logger)(handler)
	handler = middleware.ActorMiddleware(handler)
	handler = tracing.HTTPMiddleware(r.Tracer, handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	return handler
}
