package types

import (
	"time"

	"mercator-hq/crucible/pkg/experiment"
	"mercator-hq/crucible/pkg/manager"
)

// Experiment is the wire form of an experiment snapshot. Durations are
// expressed in seconds.
type Experiment struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Creator     string         `json:"creator"`
	Type        string         `json:"type"`
	Skills      []string       `json:"skills"`
	Tools       []string       `json:"tools"`
	Parameters  map[string]any `json:"parameters,omitempty"`

	State            string  `json:"state"`
	BudgetAllocated  float64 `json:"budget_allocated"`
	BudgetUsed       float64 `json:"budget_used"`
	TimeLimitSeconds float64 `json:"time_limit_seconds"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	PromotedAt  *time.Time `json:"promoted_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`

	FailureReason string `json:"failure_reason,omitempty"`

	Results []Result `json:"results"`
	Metrics Metrics  `json:"metrics"`

	SafetyChecksPassed bool                        `json:"safety_checks_passed"`
	ValidationNotes    []experiment.ValidationNote `json:"validation_notes"`
	AutoValidated      bool                        `json:"auto_validated"`
}

// Result is the wire form of one recorded result.
type Result struct {
	Timestamp       time.Time `json:"timestamp"`
	Success         bool      `json:"success"`
	Cost            float64   `json:"cost"`
	DurationSeconds float64   `json:"duration_seconds"`
	OutputRef       string    `json:"output_ref,omitempty"`
	Errors          []string  `json:"errors,omitempty"`
}

// Metrics is the wire form of derived experiment metrics.
type Metrics struct {
	SuccessRate        float64 `json:"success_rate"`
	AvgCost            float64 `json:"avg_cost"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
	TotalRuns          int     `json:"total_runs"`
	CostEfficiency     float64 `json:"cost_efficiency"`
	SpeedScore         float64 `json:"speed_score"`
	QualityScore       float64 `json:"quality_score"`
}

// NewExperiment converts a snapshot to its wire form.
func NewExperiment(s experiment.Snapshot) Experiment {
	def := s.Definition
	out := Experiment{
		ID:                 s.ID,
		Name:               def.Name,
		Description:        def.Description,
		Creator:            def.Creator,
		Type:               string(def.Type),
		Skills:             nonNil(def.Skills),
		Tools:              nonNil(def.Tools),
		Parameters:         def.Parameters,
		State:              string(s.State),
		BudgetAllocated:    def.Budget,
		BudgetUsed:         s.BudgetUsed,
		TimeLimitSeconds:   def.TimeLimit.Seconds(),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		StartedAt:          s.StartedAt,
		CompletedAt:        s.CompletedAt,
		PromotedAt:         s.PromotedAt,
		CancelledAt:        s.CancelledAt,
		FailedAt:           s.FailedAt,
		FailureReason:      s.FailureReason,
		Results:            make([]Result, len(s.Results)),
		Metrics:            newMetrics(s.Metrics),
		SafetyChecksPassed: s.SafetyChecksPassed,
		ValidationNotes:    s.ValidationNotes,
		AutoValidated:      s.AutoValidated,
	}
	if out.ValidationNotes == nil {
		out.ValidationNotes = []experiment.ValidationNote{}
	}
	for i, r := range s.Results {
		out.Results[i] = Result{
			Timestamp:       r.Timestamp,
			Success:         r.Success,
			Cost:            r.Cost,
			DurationSeconds: r.Duration.Seconds(),
			OutputRef:       r.OutputRef,
			Errors:          r.Errors,
		}
	}
	return out
}

func newMetrics(m experiment.Metrics) Metrics {
	return Metrics{
		SuccessRate:        m.SuccessRate,
		AvgCost:            m.AvgCost,
		AvgDurationSeconds: m.AvgDuration.Seconds(),
		TotalRuns:          m.TotalRuns,
		CostEfficiency:     m.CostEfficiency,
		SpeedScore:         m.SpeedScore,
		QualityScore:       m.QualityScore,
	}
}

// ListExperimentsResponse is the body of GET /v1/experiments.
type ListExperimentsResponse struct {
	Experiments []Experiment `json:"experiments"`
	Count       int          `json:"count"`
}

// RecordResultResponse is the body of POST /v1/experiments/{id}/results.
type RecordResultResponse struct {
	Experiment   Experiment              `json:"experiment"`
	Budget       experiment.BudgetStatus `json:"budget"`
	ForcedCancel bool                    `json:"forced_cancel"`
}

// NewRecordResultResponse converts a record outcome to its wire form.
func NewRecordResultResponse(out manager.RecordOutcome) RecordResultResponse {
	return RecordResultResponse{
		Experiment:   NewExperiment(out.Snapshot),
		Budget:       out.Budget,
		ForcedCancel: out.ForcedCancel,
	}
}

// PromoteResponse is the body of POST /v1/experiments/{id}/promote.
type PromoteResponse struct {
	Experiment   Experiment                  `json:"experiment"`
	Payload      experiment.PromotionPayload `json:"payload"`
	Published    bool                        `json:"published"`
	PublishError string                      `json:"publish_error,omitempty"`
}

// NewPromoteResponse converts a promotion outcome to its wire form.
func NewPromoteResponse(out manager.PromotionOutcome) PromoteResponse {
	return PromoteResponse{
		Experiment:   NewExperiment(out.Snapshot),
		Payload:      out.Payload,
		Published:    out.Published,
		PublishError: out.PublishError,
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
