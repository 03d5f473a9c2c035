package metrics

import (
	"strconv"

	"mercator-hq/crucible/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics tracks capability catalog lookups.
//
// Metrics:
//   - crucible_catalog_lookups_total: lookups by kind and outcome
//   - crucible_catalog_reloads_total: file catalog reloads by success
//   - crucible_catalog_entries: known entries by kind
type CatalogMetrics struct {
	lookupsTotal *prometheus.CounterVec
	reloadsTotal *prometheus.CounterVec
	entries      *prometheus.GaugeVec
}

// NewCatalogMetrics creates and registers catalog metrics.
func NewCatalogMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CatalogMetrics {
	cm := &CatalogMetrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "catalog_lookups_total",
				Help:      "Total number of catalog lookups",
			},
			[]string{"kind", "outcome"},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "catalog_reloads_total",
				Help:      "Total number of catalog file reloads",
			},
			[]string{"success"},
		),

		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "catalog_entries",
				Help:      "Current number of catalog entries",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		cm.lookupsTotal,
		cm.reloadsTotal,
		cm.entries,
	)

	return cm
}

// RecordLookup counts a lookup.
func (cm *CatalogMetrics) RecordLookup(kind, outcome string) {
	cm.lookupsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordReload counts a reload attempt.
func (cm *CatalogMetrics) RecordReload(success bool) {
	cm.reloadsTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// UpdateSize sets the entry gauge for kind.
func (cm *CatalogMetrics) UpdateSize(kind string, size int) {
	cm.entries.WithLabelValues(kind).Set(float64(size))
}
