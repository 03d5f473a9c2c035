package manager

import (
	"context"

	"mercator-hq/crucible/pkg/experiment"
	"mercator-hq/crucible/pkg/store"
)

// Statistics summarizes the experiments the manager owns.
type Statistics struct {
	Total   int                      `json:"total"`
	Active  int                      `json:"active"`
	Limit   int                      `json:"limit"`
	ByState map[experiment.State]int `json:"by_state"`

	// MeanQuality averages the quality score over experiments whose score is
	// non-zero. It is 0 when there are none.
	MeanQuality float64 `json:"mean_quality"`

	BudgetAllocated float64 `json:"budget_allocated"`
	BudgetUsed      float64 `json:"budget_used"`
}

// Statistics returns counts per state and aggregate quality and spend.
// Limit is 0 when no concurrency ceiling is configured.
func (m *Manager) Statistics(ctx context.Context) Statistics {
	stats := Statistics{
		ByState: make(map[experiment.State]int, len(experiment.AllStates())),
		Active:  m.slots.Active(),
		Limit:   m.policy.MaxConcurrent,
	}
	for _, s := range experiment.AllStates() {
		stats.ByState[s] = 0
	}

	var (
		qualitySum float64
		scored     int
	)
	for _, snap := range m.List(ctx, store.Filter{}) {
		stats.Total++
		stats.ByState[snap.State]++
		stats.BudgetAllocated += snap.Definition.Budget
		stats.BudgetUsed += snap.BudgetUsed
		if q := snap.Metrics.QualityScore; q != 0 {
			qualitySum += q
			scored++
		}
	}
	if scored > 0 {
		stats.MeanQuality = qualitySum / float64(scored)
	}
	return stats
}
