package experiment

// DefaultAlertThreshold is the fraction of the allocation at which a budget
// alert is raised.
const DefaultAlertThreshold = 0.8

// BudgetStatus describes budget consumption after a result is recorded.
type BudgetStatus struct {
	Allocated float64 `json:"allocated"`
	Used      float64 `json:"used"`

	// Remaining is negative when the budget is overspent.
	Remaining float64 `json:"remaining"`

	// Percentage is Used/Allocated, or 0 when nothing was allocated.
	Percentage float64 `json:"percentage"`

	// Alert is set once usage reaches the alert threshold.
	Alert bool `json:"alert"`

	// Exceeded is set once Used is strictly greater than Allocated.
	Exceeded bool `json:"exceeded"`
}

// NewBudgetStatus computes the budget status for the given usage.
// A non-positive alertThreshold selects DefaultAlertThreshold.
func NewBudgetStatus(allocated, used, alertThreshold float64) BudgetStatus {
	if alertThreshold <= 0 {
		alertThreshold = DefaultAlertThreshold
	}

	status := BudgetStatus{
		Allocated: allocated,
		Used:      used,
		Remaining: allocated - used,
		Exceeded:  used > allocated,
	}
	if allocated > 0 {
		status.Percentage = used / allocated
		status.Alert = status.Percentage >= alertThreshold
	} else {
		status.Alert = used > 0
	}
	return status
}
