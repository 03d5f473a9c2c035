package metrics

import (
	"time"

	"mercator-hq/crucible/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PromotionMetrics tracks promotion payload publishing.
//
// Metrics:
//   - crucible_promotion_publishes_total: publish attempts by backend and status
//   - crucible_promotion_publish_duration_seconds: publish latency by backend
type PromotionMetrics struct {
	publishesTotal  *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec
}

// NewPromotionMetrics creates and registers promotion metrics.
func NewPromotionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PromotionMetrics {
	pm := &PromotionMetrics{
		publishesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "promotion_publishes_total",
				Help:      "Total number of promotion publish attempts",
			},
			[]string{"backend", "status"},
		),

		publishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "promotion_publish_duration_seconds",
				Help:      "Duration of promotion publishes in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to 2s
			},
			[]string{"backend"},
		),
	}

	registry.MustRegister(
		pm.publishesTotal,
		pm.publishDuration,
	)

	return pm
}

// RecordPublish records a publish attempt. A nil err counts as success.
func (pm *PromotionMetrics) RecordPublish(backend string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	pm.publishesTotal.WithLabelValues(backend, status).Inc()
	pm.publishDuration.WithLabelValues(backend).Observe(duration.Seconds())
}
