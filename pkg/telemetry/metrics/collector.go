package metrics

import (
	"strconv"
	"time"

	"mercator-hq/crucible/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Prometheus metric Crucible exports and the registry
// they live in. All methods are safe on a nil *Collector, so components can
// treat metrics as optional.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	lifecycleMetrics *LifecycleMetrics
	budgetMetrics    *BudgetMetrics
	requestMetrics   *RequestMetrics
	catalogMetrics   *CatalogMetrics
	promotionMetrics *PromotionMetrics
}

// NewCollector creates a collector and registers its metrics. If registry is
// nil a fresh private registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "crucible"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		// API calls are in-memory transitions plus a store write (1ms - 5s)
		cfg.RequestDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0}
	}
	if len(cfg.QualityScoreBuckets) == 0 {
		cfg.QualityScoreBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.lifecycleMetrics = NewLifecycleMetrics(cfg, registry)
	c.budgetMetrics = NewBudgetMetrics(cfg, registry)
	c.requestMetrics = NewRequestMetrics(cfg, registry)
	c.catalogMetrics = NewCatalogMetrics(cfg, registry)
	c.promotionMetrics = NewPromotionMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordTransition counts a lifecycle operation.
//
// Parameters:
//   - op: operation name ("create", "start", "complete", "cancel", ...)
//   - result: "ok" or the error class ("invalid_state", "validation", ...)
func (c *Collector) RecordTransition(op, result string) {
	if !c.enabled() {
		return
	}
	c.lifecycleMetrics.RecordTransition(op, result)
}

// SetActive reports the number of running experiments.
func (c *Collector) SetActive(active int) {
	if !c.enabled() {
		return
	}
	c.lifecycleMetrics.SetActive(active)
}

// SetAdmissionLimit reports the concurrency ceiling. Zero means unlimited.
func (c *Collector) SetAdmissionLimit(limit int) {
	if !c.enabled() {
		return
	}
	c.lifecycleMetrics.SetLimit(limit)
}

// RecordAdmissionDenied counts a start refused by the concurrency ceiling.
func (c *Collector) RecordAdmissionDenied() {
	if !c.enabled() {
		return
	}
	c.lifecycleMetrics.RecordDenied()
}

// RecordResult counts one recorded trial result and its cost.
func (c *Collector) RecordResult(success bool, cost float64) {
	if !c.enabled() {
		return
	}
	c.budgetMetrics.RecordResult(success, cost)
}

// ObserveQualityScore records a quality score at completion time.
func (c *Collector) ObserveQualityScore(score float64) {
	if !c.enabled() {
		return
	}
	c.budgetMetrics.ObserveQuality(score)
}

// RecordBudgetAlert counts an experiment crossing its alert threshold.
func (c *Collector) RecordBudgetAlert() {
	if !c.enabled() {
		return
	}
	c.budgetMetrics.RecordAlert()
}

// RecordBudgetExceeded counts an experiment exceeding its budget. action is
// the configured overage action ("flag" or "cancel").
func (c *Collector) RecordBudgetExceeded(action string) {
	if !c.enabled() {
		return
	}
	c.budgetMetrics.RecordExceeded(action)
}

// RecordHTTPRequest records one API request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.RecordRequest(method, route, strconv.Itoa(status), duration)
}

// RecordCatalogLookup counts a catalog lookup.
//
// Parameters:
//   - kind: "skill" or "tool"
//   - outcome: "found", "not_found" or "unavailable"
func (c *Collector) RecordCatalogLookup(kind, outcome string) {
	if !c.enabled() {
		return
	}
	c.catalogMetrics.RecordLookup(kind, outcome)
}

// RecordCatalogReload counts a file catalog reload attempt.
func (c *Collector) RecordCatalogReload(success bool) {
	if !c.enabled() {
		return
	}
	c.catalogMetrics.RecordReload(success)
}

// UpdateCatalogSize reports the number of known entries per kind.
func (c *Collector) UpdateCatalogSize(kind string, size int) {
	if !c.enabled() {
		return
	}
	c.catalogMetrics.UpdateSize(kind, size)
}

// RecordPromotionPublish records a promotion publish attempt.
func (c *Collector) RecordPromotionPublish(backend string, err error, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.promotionMetrics.RecordPublish(backend, err, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
