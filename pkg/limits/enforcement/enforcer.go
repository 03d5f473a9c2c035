package enforcement

import (
	"fmt"

	"mercator-hq/crucible/pkg/experiment"
)

// Enforcer decides what happens when an experiment's spend crosses its
// alert threshold or its allocation.
//
// Overage is never prevented: the result that caused it is already recorded.
// The Enforcer only reports it and, with ActionCancel, asks the caller to
// cancel the experiment.
type Enforcer struct {
	config Config
}

// NewEnforcer creates a new budget enforcer.
//
// Example:
//
//	enforcer := NewEnforcer(Config{
//	    Action:         ActionCancel,
//	    AlertThreshold: 0.8,
//	})
func NewEnforcer(config Config) *Enforcer {
	// Apply defaults
	if config.Action == "" {
		config.Action = ActionFlag
	}
	if config.AlertThreshold <= 0 {
		config.AlertThreshold = experiment.DefaultAlertThreshold
	}

	return &Enforcer{
		config: config,
	}
}

// Evaluate compares spend before and after a result.
//
// Parameters:
//   - allocated: The experiment's budget
//   - before: Spend before the result was recorded
//   - after: Spend including the result
func (e *Enforcer) Evaluate(allocated, before, after float64) *Result {
	prev := experiment.NewBudgetStatus(allocated, before, e.config.AlertThreshold)
	curr := experiment.NewBudgetStatus(allocated, after, e.config.AlertThreshold)

	result := &Result{
		Allocated:       allocated,
		Used:            after,
		Alert:           curr.Alert,
		Exceeded:        curr.Exceeded,
		AlertCrossed:    curr.Alert && !prev.Alert,
		ExceededCrossed: curr.Exceeded && !prev.Exceeded,
		Action:          e.config.Action,
	}

	switch {
	case curr.Exceeded:
		result.Reason = fmt.Sprintf("budget exceeded: used %.4f of %.4f", after, allocated)
		result.Cancel = e.config.Action == ActionCancel
	case curr.Alert:
		result.Reason = fmt.Sprintf("budget alert: used %.0f%% of %.4f", curr.Percentage*100, allocated)
	}

	return result
}

// Status returns the budget status for the given spend.
func (e *Enforcer) Status(allocated, used float64) experiment.BudgetStatus {
	return experiment.NewBudgetStatus(allocated, used, e.config.AlertThreshold)
}

// GetConfig returns the enforcer configuration.
func (e *Enforcer) GetConfig() Config {
	return e.config
}
