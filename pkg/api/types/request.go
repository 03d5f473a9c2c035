package types

import (
	"fmt"
	"math"
	"time"

	"mercator-hq/crucible/pkg/experiment"
)

// CreateExperimentRequest is the body of POST /v1/experiments.
type CreateExperimentRequest struct {
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	Creator          string         `json:"creator"`
	Type             string         `json:"type"`
	Skills           []string       `json:"skills"`
	Tools            []string       `json:"tools"`
	Parameters       map[string]any `json:"parameters,omitempty"`
	BudgetAllocated  float64        `json:"budget_allocated"`
	TimeLimitSeconds float64        `json:"time_limit_seconds"`
}

// Validate rejects values that cannot be represented. Field checks are left
// to experiment validation so every problem is reported together.
func (r *CreateExperimentRequest) Validate() error {
	return checkSeconds("time_limit_seconds", r.TimeLimitSeconds)
}

// Definition converts the request to an experiment definition.
func (r *CreateExperimentRequest) Definition() experiment.Definition {
	return experiment.Definition{
		Name:        r.Name,
		Description: r.Description,
		Creator:     r.Creator,
		Type:        experiment.Type(r.Type),
		Skills:      r.Skills,
		Tools:       r.Tools,
		Parameters:  r.Parameters,
		Budget:      r.BudgetAllocated,
		TimeLimit:   seconds(r.TimeLimitSeconds),
	}
}

// RecordResultRequest is the body of POST /v1/experiments/{id}/results.
type RecordResultRequest struct {
	Success         bool       `json:"success"`
	Cost            float64    `json:"cost"`
	DurationSeconds float64    `json:"duration_seconds"`
	OutputRef       string     `json:"output_ref,omitempty"`
	Errors          []string   `json:"errors,omitempty"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
}

// Validate rejects values that cannot be represented.
func (r *RecordResultRequest) Validate() error {
	return checkSeconds("duration_seconds", r.DurationSeconds)
}

// Result converts the request to an experiment result.
func (r *RecordResultRequest) Result() experiment.Result {
	res := experiment.Result{
		Success:   r.Success,
		Cost:      r.Cost,
		Duration:  seconds(r.DurationSeconds),
		OutputRef: r.OutputRef,
		Errors:    r.Errors,
	}
	if r.Timestamp != nil {
		res.Timestamp = *r.Timestamp
	}
	return res
}

// FailRequest is the body of POST /v1/experiments/{id}/fail.
type FailRequest struct {
	Reason string `json:"reason"`
}

// Validate checks the request.
func (r *FailRequest) Validate() error {
	if r.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	return nil
}

// ValidationNoteRequest is the body of POST /v1/experiments/{id}/validation-notes.
type ValidationNoteRequest struct {
	Note   string `json:"note"`
	Author string `json:"author"`
}

// maxSeconds is the largest whole number of seconds a time.Duration holds.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// checkSeconds reports a seconds field whose duration would overflow.
func checkSeconds(field string, v float64) error {
	if math.Abs(v) > float64(maxSeconds) {
		return fmt.Errorf("%s must be within ±%d, got %g", field, maxSeconds, v)
	}
	return nil
}

// seconds converts wire seconds to a duration. Negative values are kept so
// validation can reject them. Callers range-check v with checkSeconds.
func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
