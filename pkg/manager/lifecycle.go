package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/crucible/pkg/evidence"
	"mercator-hq/crucible/pkg/evidence/recorder"
	"mercator-hq/crucible/pkg/experiment"
	"mercator-hq/crucible/pkg/telemetry/tracing"
)

// RecordOutcome is the result of recording one harness result.
type RecordOutcome struct {
	Snapshot experiment.Snapshot    `json:"experiment"`
	Budget   experiment.BudgetStatus `json:"budget"`

	// ForcedCancel is set when the result pushed spend over the allocation
	// and the overage action cancelled the experiment.
	ForcedCancel bool `json:"forced_cancel"`
}

// PromotionOutcome is the result of promoting an experiment.
type PromotionOutcome struct {
	Snapshot experiment.Snapshot         `json:"experiment"`
	Payload  experiment.PromotionPayload `json:"payload"`

	// Published reports whether the payload reached the publisher.
	Published bool `json:"published"`

	// PublishError describes a failed publish. The promotion still stands.
	PublishError string `json:"publish_error,omitempty"`
}

// Create validates def and registers it as a draft experiment.
//
// Every violation is reported together in a *experiment.ValidationError. A
// catalog outage is returned as is and nothing is registered.
func (m *Manager) Create(ctx context.Context, def experiment.Definition) (snap experiment.Snapshot, err error) {
	ctx, span := m.startSpan(ctx, opCreate, "")
	defer func() { m.finish(span, opCreate, err) }()

	def = def.Normalized()
	violations, err := experiment.ValidateDefinition(ctx, def, m.catalog, m.policy)
	if err != nil {
		return snap, err
	}
	if len(violations) > 0 {
		return snap, experiment.NewValidationError(violations...)
	}

	id := m.newID()
	e := &entry{exp: experiment.New(id, def, m.now())}

	m.mu.Lock()
	if _, exists := m.experiments[id]; exists {
		m.mu.Unlock()
		return snap, fmt.Errorf("duplicate experiment id %q", id)
	}
	m.experiments[id] = e
	m.mu.Unlock()

	snap = e.exp.Snapshot()
	tracing.SetExperimentAttributes(span, id, def.Type)
	m.logger.InfoContext(ctx, "experiment created",
		"experiment_id", id,
		"name", def.Name,
		"type", def.Type,
		"creator", def.Creator,
	)

	m.persist(ctx, e)
	m.emit(ctx, newRecord(evidence.EventCreated, snap, "", actor(ctx, def.Creator)))
	return snap, nil
}

// Submit queues a draft experiment for admission.
func (m *Manager) Submit(ctx context.Context, id string) (snap experiment.Snapshot, err error) {
	ctx, span := m.startSpan(ctx, opSubmit, id)
	defer func() { m.finish(span, opSubmit, err) }()

	m.mu.Lock()
	e, err := m.lookupLocked(id)
	if err != nil {
		m.mu.Unlock()
		return snap, err
	}
	from := e.exp.State()
	snap, err = e.exp.Submit(m.now())
	m.mu.Unlock()
	if err != nil {
		return snap, err
	}

	tracing.SetTransitionAttributes(span, from, snap.State)
	m.persist(ctx, e)
	m.emit(ctx, newRecord(evidence.EventSubmitted, snap, from, actor(ctx, snap.Definition.Creator)))
	return snap, nil
}

// Start admits a draft or pending experiment and moves it to running.
//
// The definition is re-validated first because the catalog may have changed
// since creation. The admission check and the transition then run together
// under the manager lock; a denied start returns
// *experiment.AdmissionDeniedError and consumes nothing.
func (m *Manager) Start(ctx context.Context, id string) (snap experiment.Snapshot, err error) {
	ctx, span := m.startSpan(ctx, opStart, id)
	defer func() { m.finish(span, opStart, err) }()

	e, err := m.lookup(id)
	if err != nil {
		return snap, err
	}
	if state := e.exp.State(); !experiment.CanTransition(state, experiment.StateRunning) {
		return snap, experiment.NewInvalidStateError(id, opStart, state)
	}

	violations, err := e.exp.ValidateDefinition(ctx, m.catalog, m.policy)
	if err != nil {
		return snap, err
	}
	if len(violations) > 0 {
		return snap, experiment.NewValidationError(violations...)
	}

	m.mu.Lock()
	from := e.exp.State()
	if !experiment.CanTransition(from, experiment.StateRunning) {
		m.mu.Unlock()
		return snap, experiment.NewInvalidStateError(id, opStart, from)
	}
	if !m.slots.TryAcquire() {
		denied := experiment.NewAdmissionDeniedError(id, m.slots.Active(), m.slots.Limit())
		m.mu.Unlock()
		m.denyAdmission(ctx, e, denied)
		return snap, denied
	}
	snap, err = e.exp.Start(m.now(), nil)
	if err != nil {
		m.releaseSlot(id)
		m.mu.Unlock()
		return snap, err
	}
	active, limit := m.slots.Active(), m.slots.Limit()
	m.metrics.SetActive(active)
	m.mu.Unlock()

	tracing.SetTransitionAttributes(span, from, snap.State)
	tracing.SetAdmissionAttributes(span, active, limit)
	m.logger.InfoContext(ctx, "experiment started",
		"experiment_id", id,
		"active", active,
	)

	m.persist(ctx, e)
	m.emit(ctx, newRecord(evidence.EventStarted, snap, from, actor(ctx, snap.Definition.Creator)))
	return snap, nil
}

// denyAdmission logs and records a start refused by the concurrency ceiling.
func (m *Manager) denyAdmission(ctx context.Context, e *entry, denied *experiment.AdmissionDeniedError) {
	m.metrics.RecordAdmissionDenied()
	m.logger.WarnContext(ctx, "experiment admission denied",
		"experiment_id", denied.ID,
		"active", denied.Active,
		"limit", denied.Limit,
	)

	snap := e.exp.Snapshot()
	rec := newRecord(evidence.EventAdmissionDenied, snap, snap.State, actor(ctx, snap.Definition.Creator))
	rec.Message = fmt.Sprintf("%d of %d slots in use", denied.Active, denied.Limit)
	m.emit(ctx, rec)
}

// RecordResult appends a harness result to an experiment.
//
// Results are accepted in any state; a result for an experiment that is not
// running is kept and logged as a warning. Budget overage is reported in the
// outcome, never prevented. With the cancel overage action the experiment is
// cancelled once its spend exceeds the allocation.
func (m *Manager) RecordResult(ctx context.Context, id string, result experiment.Result) (out RecordOutcome, err error) {
	ctx, span := m.startSpan(ctx, opRecord, id)
	defer func() { m.finish(span, opRecord, err) }()

	e, err := m.lookup(id)
	if err != nil {
		return out, err
	}

	snap, err := e.exp.RecordResult(m.now(), result)
	if err != nil {
		return out, err
	}
	if snap.State != experiment.StateRunning {
		m.logger.WarnContext(ctx, "result recorded for experiment that is not running",
			"experiment_id", id,
			"state", snap.State,
		)
	}

	allocated := snap.Definition.Budget
	decision := m.enforcer.Evaluate(allocated, spentBefore(snap), snap.BudgetUsed)
	out = RecordOutcome{
		Snapshot: snap,
		Budget:   m.enforcer.Status(allocated, snap.BudgetUsed),
	}

	tracing.SetBudgetAttributes(span, snap.BudgetUsed, allocated, snap.Metrics.QualityScore)
	m.metrics.RecordResult(result.Success, result.Cost)
	m.persist(ctx, e)

	who := actor(ctx, SystemActor)
	rec := newRecord(evidence.EventResultRecorded, snap, snap.State, who)
	rec.Cost = result.Cost
	if !result.Success && len(result.Errors) > 0 {
		rec.Message = result.Errors[0]
	}
	m.emit(ctx, rec)

	if decision.AlertCrossed {
		m.metrics.RecordBudgetAlert()
		m.logger.InfoContext(ctx, "experiment budget alert",
			"experiment_id", id,
			"budget_used", snap.BudgetUsed,
			"budget_allocated", allocated,
		)
		alert := newRecord(evidence.EventBudgetAlert, snap, snap.State, SystemActor)
		alert.Message = decision.Reason
		m.emit(ctx, alert)
	}

	if decision.ExceededCrossed {
		m.metrics.RecordBudgetExceeded(string(decision.Action))
		m.logger.WarnContext(ctx, "experiment budget exceeded",
			"experiment_id", id,
			"budget_used", snap.BudgetUsed,
			"budget_allocated", allocated,
			"action", decision.Action,
		)
		exceeded := newRecord(evidence.EventBudgetExceeded, snap, snap.State, SystemActor)
		exceeded.Message = decision.Reason
		m.emit(ctx, exceeded)
	}

	if decision.Cancel && !snap.State.IsTerminal() {
		cancelled, cerr := m.cancel(ctx, e, SystemActor, decision.Reason)
		switch {
		case cerr == nil:
			out.Snapshot = cancelled
			out.ForcedCancel = true
		case errors.Is(cerr, experiment.ErrInvalidState):
			// Another caller moved it to a terminal state first.
		default:
			m.logger.ErrorContext(ctx, "failed to cancel experiment over budget",
				"experiment_id", id,
				"error", cerr,
			)
		}
	}

	return out, nil
}

// spentBefore returns the spend before the last result in snap, summed in the
// same order BudgetUsed was accumulated.
func spentBefore(snap experiment.Snapshot) float64 {
	var used float64
	for _, r := range snap.Results[:len(snap.Results)-1] {
		used += r.Cost
	}
	return used
}

// Complete finishes a running experiment and frees its slot. Metrics that
// clear the auto-validation threshold move it straight on to validated.
func (m *Manager) Complete(ctx context.Context, id string) (snap experiment.Snapshot, err error) {
	ctx, span := m.startSpan(ctx, opComplete, id)
	defer func() { m.finish(span, opComplete, err) }()

	m.mu.Lock()
	e, err := m.lookupLocked(id)
	if err != nil {
		m.mu.Unlock()
		return snap, err
	}
	from := e.exp.State()
	snap, err = e.exp.Complete(m.now())
	if err == nil && (snap.State == experiment.StateCompleted || snap.State == experiment.StateValidated) {
		m.releaseSlot(id)
	}
	m.mu.Unlock()
	if err != nil {
		return snap, err
	}

	tracing.SetTransitionAttributes(span, from, snap.State)
	tracing.SetBudgetAttributes(span, snap.BudgetUsed, snap.Definition.Budget, snap.Metrics.QualityScore)
	m.metrics.ObserveQualityScore(snap.Metrics.QualityScore)
	m.logger.InfoContext(ctx, "experiment completed",
		"experiment_id", id,
		"quality_score", snap.Metrics.QualityScore,
		"success_rate", snap.Metrics.SuccessRate,
		"auto_validated", snap.AutoValidated,
	)

	m.persist(ctx, e)
	who := actor(ctx, snap.Definition.Creator)
	completed := newRecord(evidence.EventCompleted, snap, from, who)
	completed.ToState = string(experiment.StateCompleted)
	m.emit(ctx, completed)
	if snap.AutoValidated {
		auto := newRecord(evidence.EventAutoValidated, snap, experiment.StateCompleted, SystemActor)
		auto.Message = fmt.Sprintf("quality %.4f, success rate %.4f", snap.Metrics.QualityScore, snap.Metrics.SuccessRate)
		m.emit(ctx, auto)
	}
	return snap, nil
}

// Fail aborts a running experiment with a harness-reported reason and frees
// its slot.
func (m *Manager) Fail(ctx context.Context, id, reason string) (snap experiment.Snapshot, err error) {
	ctx, span := m.startSpan(ctx, opFail, id)
	defer func() { m.finish(span, opFail, err) }()

	m.mu.Lock()
	e, err := m.lookupLocked(id)
	if err != nil {
		m.mu.Unlock()
		return snap, err
	}
	from := e.exp.State()
	snap, err = e.exp.Fail(m.now(), reason)
	if err == nil {
		m.releaseSlot(id)
	}
	m.mu.Unlock()
	if err != nil {
		return snap, err
	}

	tracing.SetTransitionAttributes(span, from, snap.State)
	m.logger.WarnContext(ctx, "experiment failed",
		"experiment_id", id,
		"reason", reason,
	)

	m.persist(ctx, e)
	rec := newRecord(evidence.EventFailed, snap, from, actor(ctx, SystemActor))
	rec.Message = reason
	m.emit(ctx, rec)
	return snap, nil
}

// Cancel stops a non-terminal experiment. A running experiment's slot is
// released in the same critical section as the transition, so a repeated
// cancel fails with *experiment.InvalidStateError and never releases twice.
func (m *Manager) Cancel(ctx context.Context, id string) (snap experiment.Snapshot, err error) {
	ctx, span := m.startSpan(ctx, opCancel, id)
	defer func() { m.finish(span, opCancel, err) }()

	e, err := m.lookup(id)
	if err != nil {
		return snap, err
	}
	return m.cancel(ctx, e, actor(ctx, SystemActor), "")
}

// cancel performs the cancel transition, releases the slot of a running
// experiment, then persists and records evidence.
func (m *Manager) cancel(ctx context.Context, e *entry, who, reason string) (experiment.Snapshot, error) {
	m.mu.Lock()
	from := e.exp.State()
	snap, err := e.exp.Cancel(m.now())
	if err == nil && from == experiment.StateRunning {
		m.releaseSlot(snap.ID)
	}
	m.mu.Unlock()
	if err != nil {
		return snap, err
	}

	tracing.SetTransitionAttributes(trace.SpanFromContext(ctx), from, snap.State)
	m.logger.InfoContext(ctx, "experiment cancelled",
		"experiment_id", snap.ID,
		"from_state", from,
		"actor", who,
	)

	m.persist(ctx, e)
	rec := newRecord(evidence.EventCancelled, snap, from, who)
	rec.Message = reason
	m.emit(ctx, rec)
	return snap, nil
}

// AddValidationNote records a human reviewer's sign-off on a completed
// experiment and moves it to validated.
func (m *Manager) AddValidationNote(ctx context.Context, id, note, author string) (snap experiment.Snapshot, err error) {
	ctx, span := m.startSpan(ctx, opValidate, id)
	defer func() { m.finish(span, opValidate, err) }()

	m.mu.Lock()
	e, err := m.lookupLocked(id)
	if err != nil {
		m.mu.Unlock()
		return snap, err
	}
	from := e.exp.State()
	snap, err = e.exp.AddValidationNote(m.now(), note, author)
	m.mu.Unlock()
	if err != nil {
		return snap, err
	}

	tracing.SetTransitionAttributes(span, from, snap.State)
	m.logger.InfoContext(ctx, "experiment validated",
		"experiment_id", id,
		"author", author,
	)

	m.persist(ctx, e)
	rec := newRecord(evidence.EventValidated, snap, from, author)
	rec.Message = note
	m.emit(ctx, rec)
	return snap, nil
}

// Promote moves a validated experiment to promoted and publishes the
// resulting payload. A publish failure is logged and recorded as evidence;
// the promotion is not rolled back.
func (m *Manager) Promote(ctx context.Context, id string) (out PromotionOutcome, err error) {
	ctx, span := m.startSpan(ctx, opPromote, id)
	defer func() { m.finish(span, opPromote, err) }()

	m.mu.Lock()
	e, err := m.lookupLocked(id)
	if err != nil {
		m.mu.Unlock()
		return out, err
	}
	from := e.exp.State()
	payload, snap, err := e.exp.Promote(m.now())
	m.mu.Unlock()
	if err != nil {
		return out, err
	}
	out = PromotionOutcome{Snapshot: snap, Payload: payload}

	tracing.SetTransitionAttributes(span, from, snap.State)
	m.logger.InfoContext(ctx, "experiment promoted",
		"experiment_id", id,
		"quality_score", snap.Metrics.QualityScore,
	)

	m.persist(ctx, e)

	hash, herr := recorder.HashJSON(payload)
	if herr != nil {
		m.logger.WarnContext(ctx, "failed to hash promotion payload", "experiment_id", id, "error", herr)
	}
	promoted := newRecord(evidence.EventPromoted, snap, from, actor(ctx, SystemActor))
	promoted.PayloadHash = hash
	m.emit(ctx, promoted)

	if m.publisher == nil {
		return out, nil
	}

	start := time.Now()
	perr := m.publisher.Publish(ctx, payload)
	m.metrics.RecordPromotionPublish(m.backend, perr, time.Since(start))

	if perr != nil {
		out.PublishError = perr.Error()
		m.logger.ErrorContext(ctx, "failed to publish promotion",
			"experiment_id", id,
			"backend", m.backend,
			"error", perr,
		)
		failed := newRecord(evidence.EventPromotionPublishFailed, snap, snap.State, SystemActor)
		failed.PayloadHash = hash
		failed.Message = perr.Error()
		m.emit(ctx, failed)
		return out, nil
	}

	out.Published = true
	published := newRecord(evidence.EventPromotionPublished, snap, snap.State, SystemActor)
	published.PayloadHash = hash
	published.Message = m.backend
	m.emit(ctx, published)
	return out, nil
}
