package experiment

import (
	"context"
	"strings"
	"sync"
	"time"

	"mercator-hq/crucible/pkg/catalog"
)

// Experiment is the unit of governed work. All methods are safe for
// concurrent use.
type Experiment struct {
	mu sync.Mutex
	s  Snapshot
}

// New creates a draft experiment from a definition.
func New(id string, def Definition, now time.Time) *Experiment {
	return &Experiment{
		s: Snapshot{
			ID:              id,
			Definition:      def.Normalized(),
			State:           StateDraft,
			Revision:        1,
			CreatedAt:       now,
			UpdatedAt:       now,
			Results:         []Result{},
			ValidationNotes: []ValidationNote{},
		},
	}
}

// Restore rebuilds an experiment from a persisted snapshot.
func Restore(s Snapshot) *Experiment {
	s = s.Clone()
	if s.Results == nil {
		s.Results = []Result{}
	}
	if s.ValidationNotes == nil {
		s.ValidationNotes = []ValidationNote{}
	}
	return &Experiment{s: s}
}

// ID returns the experiment identifier.
func (e *Experiment) ID() string {
	return e.s.ID
}

// State returns the current lifecycle state.
func (e *Experiment) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.State
}

// Definition returns a copy of the declared definition.
func (e *Experiment) Definition() Definition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Definition.clone()
}

// Snapshot returns a deep copy of the experiment state.
func (e *Experiment) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone()
}

// ValidateDefinition checks this experiment's definition. It may be called in
// any state and never mutates the experiment.
func (e *Experiment) ValidateDefinition(ctx context.Context, v catalog.Validator, p Policy) ([]Violation, error) {
	return ValidateDefinition(ctx, e.Definition(), v, p)
}

// Submit queues a draft experiment for admission.
func (e *Experiment) Submit(now time.Time) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.transition("submit", StatePending, now); err != nil {
		return Snapshot{}, err
	}
	return e.s.Clone(), nil
}

// Start moves a draft or pending experiment to running. violations is the
// outcome of definition validation; a non-empty list fails the transition
// with *ValidationError. Admission must already have been granted.
func (e *Experiment) Start(now time.Time, violations []Violation) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !CanTransition(e.s.State, StateRunning) {
		return Snapshot{}, NewInvalidStateError(e.s.ID, "start", e.s.State)
	}
	if len(violations) > 0 {
		return Snapshot{}, NewValidationError(violations...)
	}

	e.s.State = StateRunning
	e.s.StartedAt = stamp(e.s.StartedAt, now)
	e.touch(now)
	return e.s.Clone(), nil
}

// RecordResult appends a result in any state, adds its cost to BudgetUsed and
// recomputes metrics. A zero Timestamp is replaced with now. Malformed
// results are rejected with *ValidationError and nothing is recorded.
func (e *Experiment) RecordResult(now time.Time, r Result) (Snapshot, error) {
	if violations := ValidateResult(r); len(violations) > 0 {
		return Snapshot{}, NewValidationError(violations...)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
	r.Errors = cloneStrings(r.Errors)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.s.Results = append(e.s.Results, r)
	e.s.BudgetUsed += r.Cost
	e.s.Metrics = ComputeMetrics(e.s.Results, e.s.Definition.Budget, e.s.Definition.TimeLimit)
	e.touch(now)
	return e.s.Clone(), nil
}

// Complete moves a running experiment to completed and, when the metrics
// clear the auto-validation threshold, straight on to validated.
func (e *Experiment) Complete(now time.Time) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.s.State != StateRunning {
		return Snapshot{}, NewInvalidStateError(e.s.ID, "complete", e.s.State)
	}
	e.s.State = StateCompleted
	e.s.CompletedAt = stamp(e.s.CompletedAt, now)
	e.touch(now)

	if ShouldAutoValidate(e.s.Metrics.QualityScore, e.s.Metrics.SuccessRate) {
		e.s.State = StateValidated
		e.s.AutoValidated = true
	}
	return e.s.Clone(), nil
}

// Fail moves a running experiment to failed, recording the harness-reported
// reason.
func (e *Experiment) Fail(now time.Time, reason string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.s.State != StateRunning {
		return Snapshot{}, NewInvalidStateError(e.s.ID, "fail", e.s.State)
	}
	e.s.State = StateFailed
	e.s.FailedAt = stamp(e.s.FailedAt, now)
	e.s.FailureReason = reason
	e.touch(now)
	return e.s.Clone(), nil
}

// AddValidationNote records a reviewer's sign-off on a completed experiment,
// marks safety checks as passed and advances it to validated.
func (e *Experiment) AddValidationNote(now time.Time, note, author string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.s.State != StateCompleted {
		return Snapshot{}, NewInvalidStateError(e.s.ID, "validate", e.s.State)
	}

	var violations []Violation
	if strings.TrimSpace(note) == "" {
		violations = append(violations, Violation{Field: "note", Message: "is required"})
	}
	if strings.TrimSpace(author) == "" {
		violations = append(violations, Violation{Field: "author", Message: "is required"})
	}
	if len(violations) > 0 {
		return Snapshot{}, NewValidationError(violations...)
	}

	e.s.ValidationNotes = append(e.s.ValidationNotes, ValidationNote{
		Timestamp: now,
		Note:      note,
		Author:    author,
	})
	e.s.SafetyChecksPassed = true
	e.s.State = StateValidated
	e.touch(now)
	return e.s.Clone(), nil
}

// Promote moves a validated experiment to promoted and returns the payload
// for the production catalog.
func (e *Experiment) Promote(now time.Time) (PromotionPayload, Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.s.State != StateValidated {
		return PromotionPayload{}, Snapshot{}, NewInvalidStateError(e.s.ID, "promote", e.s.State)
	}
	e.s.State = StatePromoted
	e.s.PromotedAt = stamp(e.s.PromotedAt, now)
	e.touch(now)

	def := e.s.Definition.clone()
	payload := PromotionPayload{
		ExperimentID: e.s.ID,
		Name:         def.Name,
		Type:         def.Type,
		Skills:       def.Skills,
		Tools:        def.Tools,
		Parameters:   def.Parameters,
		Metrics:      e.s.Metrics,
		PromotedAt:   *e.s.PromotedAt,
	}
	return payload, e.s.Clone(), nil
}

// Cancel moves a non-terminal experiment to cancelled. Cancelling a terminal
// experiment fails with *InvalidStateError.
func (e *Experiment) Cancel(now time.Time) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.transition("cancel", StateCancelled, now); err != nil {
		return Snapshot{}, err
	}
	e.s.CancelledAt = stamp(e.s.CancelledAt, now)
	return e.s.Clone(), nil
}

// transition applies a plain state change. Callers hold e.mu.
func (e *Experiment) transition(op string, to State, now time.Time) error {
	if !CanTransition(e.s.State, to) {
		return NewInvalidStateError(e.s.ID, op, e.s.State)
	}
	e.s.State = to
	e.touch(now)
	return nil
}

// touch records a mutation. Callers hold e.mu.
func (e *Experiment) touch(now time.Time) {
	e.s.UpdatedAt = now
	e.s.Revision++
}

// stamp sets a lifecycle timestamp once and never overwrites it.
func stamp(current *time.Time, now time.Time) *time.Time {
	if current != nil {
		return current
	}
	t := now
	return &t
}
