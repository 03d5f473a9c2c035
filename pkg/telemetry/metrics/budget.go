package metrics

import (
	"strconv"

	"mercator-hq/crucible/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// BudgetMetrics tracks trial results, spend, and quality.
//
// Metrics:
//   - crucible_results_total: recorded trial results by success
//   - crucible_cost_total: cumulative cost of recorded results
//   - crucible_quality_score: quality score distribution at completion
//   - crucible_budget_alerts_total: experiments crossing the alert threshold
//   - crucible_budget_exceeded_total: budget overages by action taken
type BudgetMetrics struct {
	resultsTotal  *prometheus.CounterVec
	costTotal     prometheus.Counter
	qualityScore  prometheus.Histogram
	alertsTotal   prometheus.Counter
	exceededTotal *prometheus.CounterVec
}

// NewBudgetMetrics creates and registers budget metrics.
func NewBudgetMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BudgetMetrics {
	bm := &BudgetMetrics{
		resultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "results_total",
				Help:      "Total number of trial results recorded",
			},
			[]string{"success"},
		),

		costTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_total",
				Help:      "Total cost of recorded trial results",
			},
		),

		qualityScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "quality_score",
				Help:      "Quality score of experiments at completion",
				Buckets:   cfg.QualityScoreBuckets,
			},
		),

		alertsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "budget_alerts_total",
				Help:      "Total number of budget alert threshold crossings",
			},
		),

		exceededTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "budget_exceeded_total",
				Help:      "Total number of budget overages",
			},
			[]string{"action"},
		),
	}

	registry.MustRegister(
		bm.resultsTotal,
		bm.costTotal,
		bm.qualityScore,
		bm.alertsTotal,
		bm.exceededTotal,
	)

	return bm
}

// RecordResult counts a result and adds its cost. Non-positive cost is not
// added.
func (bm *BudgetMetrics) RecordResult(success bool, cost float64) {
	bm.resultsTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
	if cost > 0 {
		bm.costTotal.Add(cost)
	}
}

// ObserveQuality records a quality score.
func (bm *BudgetMetrics) ObserveQuality(score float64) {
	bm.qualityScore.Observe(score)
}

// RecordAlert increments the alert counter.
func (bm *BudgetMetrics) RecordAlert() {
	bm.alertsTotal.Inc()
}

// RecordExceeded increments the overage counter.
func (bm *BudgetMetrics) RecordExceeded(action string) {
	bm.exceededTotal.WithLabelValues(action).Inc()
}
