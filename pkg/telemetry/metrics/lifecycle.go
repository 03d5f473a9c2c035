package metrics

import (
	"mercator-hq/crucible/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics tracks experiment state transitions and admission.
//
// Metrics:
//   - crucible_transitions_total: lifecycle operations by op and result
//   - crucible_active_experiments: experiments currently running
//   - crucible_admission_limit: configured concurrency ceiling
//   - crucible_admission_denied_total: starts refused at the ceiling
type LifecycleMetrics struct {
	transitionsTotal *prometheus.CounterVec
	active           prometheus.Gauge
	limit            prometheus.Gauge
	deniedTotal      prometheus.Counter
}

// NewLifecycleMetrics creates and registers lifecycle metrics.
func NewLifecycleMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *LifecycleMetrics {
	lm := &LifecycleMetrics{
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "transitions_total",
				Help:      "Total number of experiment lifecycle operations",
			},
			[]string{"op", "result"},
		),

		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "active_experiments",
				Help:      "Number of experiments currently running",
			},
		),

		limit: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "admission_limit",
				Help:      "Maximum number of concurrently running experiments (0 = unlimited)",
			},
		),

		deniedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "admission_denied_total",
				Help:      "Total number of experiment starts denied by the concurrency ceiling",
			},
		),
	}

	registry.MustRegister(
		lm.transitionsTotal,
		lm.active,
		lm.limit,
		lm.deniedTotal,
	)

	return lm
}

// RecordTransition increments the transition counter.
func (lm *LifecycleMetrics) RecordTransition(op, result string) {
	lm.transitionsTotal.WithLabelValues(op, result).Inc()
}

// SetActive sets the running experiment gauge.
func (lm *LifecycleMetrics) SetActive(active int) {
	lm.active.Set(float64(active))
}

// SetLimit sets the admission ceiling gauge.
func (lm *LifecycleMetrics) SetLimit(limit int) {
	lm.limit.Set(float64(limit))
}

// RecordDenied increments the admission denial counter.
func (lm *LifecycleMetrics) RecordDenied() {
	lm.deniedTotal.Inc()
}
