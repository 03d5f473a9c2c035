package experiment

import (
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle state of an experiment.
type State string

const (
	StateDraft     State = "draft"
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateValidated State = "validated"
	StatePromoted  State = "promoted"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// AllStates lists every state in lifecycle order.
func AllStates() []State {
	return []State{
		StateDraft,
		StatePending,
		StateRunning,
		StateCompleted,
		StateValidated,
		StatePromoted,
		StateFailed,
		StateCancelled,
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	switch s {
	case StatePromoted, StateFailed, StateCancelled:
		return true
	case StateDraft, StatePending, StateRunning, StateCompleted, StateValidated:
		return false
	default:
		return false
	}
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateDraft, StatePending, StateRunning, StateCompleted,
		StateValidated, StatePromoted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// ParseState converts a string to a State.
func ParseState(v string) (State, error) {
	s := State(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown experiment state %q", v)
	}
	return s, nil
}

// CanTransition reports whether the state machine permits moving from one
// state to another.
func CanTransition(from, to State) bool {
	switch from {
	case StateDraft:
		return to == StatePending || to == StateRunning || to == StateCancelled
	case StatePending:
		return to == StateRunning || to == StateCancelled
	case StateRunning:
		return to == StateCompleted || to == StateFailed || to == StateCancelled
	case StateCompleted:
		return to == StateValidated || to == StateCancelled
	case StateValidated:
		return to == StatePromoted || to == StateCancelled
	case StatePromoted, StateFailed, StateCancelled:
		return false
	default:
		return false
	}
}

// Type is the declared intent of an experiment.
type Type string

const (
	TypeSkillTrial           Type = "skill_trial"
	TypeToolCombinationTrial Type = "tool_combination_trial"
	TypeParameterTuning      Type = "parameter_tuning"
	TypeSafetyValidation     Type = "safety_validation"
)

// AllTypes lists every experiment type.
func AllTypes() []Type {
	return []Type{TypeSkillTrial, TypeToolCombinationTrial, TypeParameterTuning, TypeSafetyValidation}
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeSkillTrial, TypeToolCombinationTrial, TypeParameterTuning, TypeSafetyValidation:
		return true
	default:
		return false
	}
}

// ParseType converts a string to a Type.
func ParseType(v string) (Type, error) {
	t := Type(v)
	if !t.Valid() {
		valid := make([]string, 0, 4)
		for _, known := range AllTypes() {
			valid = append(valid, string(known))
		}
		return "", fmt.Errorf("unknown experiment type %q (valid: %s)", v, strings.Join(valid, ", "))
	}
	return t, nil
}

// Definition is what a creator declares about an experiment. It is immutable
// once the experiment is registered.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Creator     string         `json:"creator"`
	Type        Type           `json:"type"`
	Skills      []string       `json:"skills"`
	Tools       []string       `json:"tools"`
	Parameters  map[string]any `json:"parameters,omitempty"`

	// Budget is the ceiling on cumulative result cost.
	Budget float64 `json:"budget_allocated"`

	// TimeLimit is the wall-clock ceiling for the whole experiment.
	TimeLimit time.Duration `json:"time_limit"`
}

// Normalized returns a deep copy with duplicate skill and tool names removed.
// The order of first appearance is kept.
func (d Definition) Normalized() Definition {
	out := d.clone()
	out.Skills = dedupe(out.Skills)
	out.Tools = dedupe(out.Tools)
	return out
}

func (d Definition) clone() Definition {
	out := d
	out.Skills = cloneStrings(d.Skills)
	out.Tools = cloneStrings(d.Tools)
	out.Parameters = cloneParameters(d.Parameters)
	return out
}

// Result is one completed run reported by the execution harness.
type Result struct {
	Timestamp time.Time     `json:"timestamp"`
	Success   bool          `json:"success"`
	Cost      float64       `json:"cost"`
	Duration  time.Duration `json:"duration"`
	OutputRef string        `json:"output_ref,omitempty"`
	Errors    []string      `json:"errors,omitempty"`
}

// ValidationNote is a reviewer's entry in the governance trail.
type ValidationNote struct {
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
	Author    string    `json:"author"`
}

// Metrics are derived from the result sequence and recomputed on every append.
type Metrics struct {
	SuccessRate    float64       `json:"success_rate"`
	AvgCost        float64       `json:"avg_cost"`
	AvgDuration    time.Duration `json:"avg_duration"`
	TotalRuns      int           `json:"total_runs"`
	CostEfficiency float64       `json:"cost_efficiency"`
	SpeedScore     float64       `json:"speed_score"`
	QualityScore   float64       `json:"quality_score"`
}

// Snapshot is a point-in-time copy of an experiment's full state. It is also
// the unit of persistence.
type Snapshot struct {
	ID         string     `json:"id"`
	Definition Definition `json:"definition"`
	State      State      `json:"state"`
	BudgetUsed float64    `json:"budget_used"`

	// Revision counts mutations. Stores use it to refuse stale writes.
	Revision int64 `json:"revision"`

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

	SafetyChecksPassed bool             `json:"safety_checks_passed"`
	ValidationNotes    []ValidationNote `json:"validation_notes"`
	AutoValidated      bool             `json:"auto_validated"`
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Definition = s.Definition.clone()
	out.StartedAt = cloneTime(s.StartedAt)
	out.CompletedAt = cloneTime(s.CompletedAt)
	out.PromotedAt = cloneTime(s.PromotedAt)
	out.CancelledAt = cloneTime(s.CancelledAt)
	out.FailedAt = cloneTime(s.FailedAt)

	if s.Results != nil {
		out.Results = make([]Result, len(s.Results))
		for i, r := range s.Results {
			r.Errors = cloneStrings(r.Errors)
			out.Results[i] = r
		}
	}
	if s.ValidationNotes != nil {
		out.ValidationNotes = append([]ValidationNote(nil), s.ValidationNotes...)
	}
	return out
}

// PromotionPayload is the artifact handed to the production catalog on
// promotion. It is a detached copy and never changes after it is produced.
type PromotionPayload struct {
	ExperimentID string         `json:"experiment_id"`
	Name         string         `json:"name"`
	Type         Type           `json:"type"`
	Skills       []string       `json:"skills"`
	Tools        []string       `json:"tools"`
	Parameters   map[string]any `json:"parameters"`
	Metrics      Metrics        `json:"metrics"`
	PromotedAt   time.Time      `json:"promoted_at"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneParameters(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container shapes produced by JSON and YAML decoding.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneParameters(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return cloneStrings(val)
	default:
		return val
	}
}

func dedupe(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
