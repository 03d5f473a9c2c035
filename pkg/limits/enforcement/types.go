package enforcement

import "fmt"

// Action defines what to do when an experiment spends more than its budget.
type Action string

const (
	// ActionFlag records the overage and lets the experiment keep running.
	ActionFlag Action = "flag"

	// ActionCancel force-cancels the experiment once the budget is exceeded.
	ActionCancel Action = "cancel"
)

// ParseAction converts a configuration string to an Action.
// An empty string selects ActionFlag.
func ParseAction(v string) (Action, error) {
	switch Action(v) {
	case "", ActionFlag:
		return ActionFlag, nil
	case ActionCancel:
		return ActionCancel, nil
	default:
		return "", fmt.Errorf("unknown overage action %q", v)
	}
}

// Config contains configuration for the enforcer.
type Config struct {
	// Action is taken when spend exceeds the allocation.
	Action Action

	// AlertThreshold is the fraction of the allocation that raises an alert.
	AlertThreshold float64
}

// Result describes the budget consequences of one recorded result.
type Result struct {
	// Allocated and Used are the budget figures after the result.
	Allocated float64
	Used      float64

	// Alert and Exceeded reflect the state after the result.
	Alert    bool
	Exceeded bool

	// AlertCrossed and ExceededCrossed are set only by the result that moved
	// spend across the threshold, so each is reported once per experiment.
	AlertCrossed    bool
	ExceededCrossed bool

	// Action is the configured overage action.
	Action Action

	// Cancel is set when the experiment must be cancelled.
	Cancel bool

	// Reason explains an alert or overage.
	Reason string
}
