// Package metrics provides Prometheus metrics collection for Crucible.
//
// # Metrics Categories
//
//   - Lifecycle: transitions by op and result, running experiments, the
//     admission ceiling, and admission denials
//   - Budget: results recorded, cumulative cost, quality scores, budget
//     alerts and overages
//   - Request: HTTP API request count and latency by route
//   - Catalog: lookups by outcome, file reloads, entry counts
//   - Promotion: publish attempts and latency by backend
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.SetAdmissionLimit(cfg.Policy.MaxConcurrent)
//	collector.RecordTransition("start", "ok")
//
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Every metric lives on the collector's private registry; nothing is
// registered with the global default registry. A nil *Collector is valid and
// records nothing.
package metrics
