package manager

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/crucible/pkg/catalog"
	"mercator-hq/crucible/pkg/evidence"
	"mercator-hq/crucible/pkg/experiment"
	"mercator-hq/crucible/pkg/limits/admission"
	"mercator-hq/crucible/pkg/limits/enforcement"
	"mercator-hq/crucible/pkg/promotion"
	"mercator-hq/crucible/pkg/store"
	"mercator-hq/crucible/pkg/telemetry/logging"
	"mercator-hq/crucible/pkg/telemetry/metrics"
	"mercator-hq/crucible/pkg/telemetry/tracing"
)

// ErrNoCatalog is returned by New when Config.Catalog is nil.
var ErrNoCatalog = errors.New("manager: catalog validator is required")

// SystemActor is the actor recorded for transitions the manager makes on its
// own, such as a cancel forced by budget overage.
const SystemActor = "system"

// Operation names used for spans, metrics and errors.
const (
	opCreate   = "create"
	opSubmit   = "submit"
	opStart    = "start"
	opRecord   = "record_result"
	opComplete = "complete"
	opFail     = "fail"
	opCancel   = "cancel"
	opValidate = "validate"
	opPromote  = "promote"
)

// Recorder receives lifecycle evidence. *recorder.Recorder satisfies it.
type Recorder interface {
	Record(ctx context.Context, record *evidence.Record) error
}

// Config contains the manager's policy and collaborators. Only Catalog is
// required.
type Config struct {
	// Policy holds the static ceilings. A zero MaxConcurrent means no ceiling.
	Policy experiment.Policy

	// AlertThreshold is the budget fraction that raises a budget alert.
	// Default: 0.8
	AlertThreshold float64

	// OverageAction is applied when spend exceeds the allocation.
	// Default: flag
	OverageAction enforcement.Action

	Catalog   catalog.Validator
	Store     store.Store
	Recorder  Recorder
	Publisher promotion.Publisher

	// PublisherBackend labels promotion publish metrics.
	// Default: "log"
	PublisherBackend string

	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Logger  *slog.Logger

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time

	// NewID generates experiment IDs. Default: uuid v4
	NewID func() string
}

// entry pairs an experiment with the lock that orders its store writes.
type entry struct {
	exp       *experiment.Experiment
	persistMu sync.Mutex
	saved     int64 // last revision written to the store
}

// Manager owns all experiments and coordinates their lifecycle.
//
// All methods are safe for concurrent use.
type Manager struct {
	policy    experiment.Policy
	catalog   catalog.Validator
	store     store.Store
	recorder  Recorder
	publisher promotion.Publisher
	backend   string
	metrics   *metrics.Collector
	tracer    *tracing.Tracer
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	enforcer *enforcement.Enforcer
	slots    *admission.Slots

	experiments map[string]*entry
	mu          sync.RWMutex
}

// New creates a manager. Call Restore before serving requests to reload
// persisted experiments.
func New(cfg Config) (*Manager, error) {
	if cfg.Catalog == nil {
		return nil, ErrNoCatalog
	}

	m := &Manager{
		policy:      cfg.Policy,
		catalog:     cfg.Catalog,
		store:       cfg.Store,
		recorder:    cfg.Recorder,
		publisher:   cfg.Publisher,
		backend:     cfg.PublisherBackend,
		metrics:     cfg.Metrics,
		tracer:      cfg.Tracer,
		logger:      cfg.Logger,
		now:         cfg.Clock,
		newID:       cfg.NewID,
		experiments: make(map[string]*entry),
	}

	// Apply defaults
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "manager")
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = func() string { return uuid.New().String() }
	}
	if m.backend == "" {
		m.backend = "log"
	}

	limit := cfg.Policy.MaxConcurrent
	if limit <= 0 {
		limit = math.MaxInt
	}
	m.slots = admission.NewSlots(limit)
	m.enforcer = enforcement.NewEnforcer(enforcement.Config{
		Action:         cfg.OverageAction,
		AlertThreshold: cfg.AlertThreshold,
	})

	m.metrics.SetAdmissionLimit(cfg.Policy.MaxConcurrent)
	m.metrics.SetActive(0)

	m.logger.Info("experiment manager initialized",
		"max_concurrent", cfg.Policy.MaxConcurrent,
		"max_budget", cfg.Policy.MaxBudget,
		"max_duration", cfg.Policy.MaxDuration,
		"overage_action", m.enforcer.GetConfig().Action,
	)
	return m, nil
}

// Policy returns the static policy the manager enforces.
func (m *Manager) Policy() experiment.Policy {
	return m.policy
}

// ActiveCount returns the number of running experiments.
func (m *Manager) ActiveCount() int {
	return m.slots.Active()
}

// Restore loads every persisted experiment from the store and recomputes
// the active count from the running ones. Experiments already registered are
// left untouched. Restore returns the number of experiments loaded.
//
// If the ceiling was lowered since the snapshots were written, the active
// count may exceed it; new starts are denied until enough experiments leave
// the running state.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	if m.store == nil {
		return 0, nil
	}

	snapshots, err := m.store.List(ctx, store.Filter{})
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, snap := range snapshots {
		if _, ok := m.experiments[snap.ID]; ok {
			continue
		}
		m.experiments[snap.ID] = &entry{exp: experiment.Restore(snap), saved: snap.Revision}
		loaded++
	}

	running := 0
	for _, e := range m.experiments {
		if e.exp.State() == experiment.StateRunning {
			running++
		}
	}
	m.slots.Set(running)
	m.metrics.SetActive(running)

	if running > m.slots.Limit() {
		m.logger.Warn("running experiments exceed concurrency ceiling after restore",
			"running", running,
			"limit", m.slots.Limit(),
		)
	}
	m.logger.Info("experiments restored", "loaded", loaded, "running", running)
	return loaded, nil
}

// Get returns a snapshot of one experiment.
func (m *Manager) Get(ctx context.Context, id string) (experiment.Snapshot, error) {
	e, err := m.lookup(id)
	if err != nil {
		return experiment.Snapshot{}, err
	}
	return e.exp.Snapshot(), nil
}

// List returns snapshots matching filter ordered by creation time, then ID.
func (m *Manager) List(ctx context.Context, filter store.Filter) []experiment.Snapshot {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.experiments))
	for _, e := range m.experiments {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	out := make([]experiment.Snapshot, 0, len(entries))
	for _, e := range entries {
		snap := e.exp.Snapshot()
		if filter.Matches(snap) {
			out = append(out, snap)
		}
	}
	store.SortSnapshots(out)
	return out
}

// lookup returns the registered entry for id.
func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookupLocked(id)
}

// lookupLocked is lookup for callers already holding m.mu.
func (m *Manager) lookupLocked(id string) (*entry, error) {
	e, ok := m.experiments[id]
	if !ok {
		return nil, experiment.NewNotFoundError(id)
	}
	return e, nil
}

// releaseSlot gives back a running experiment's slot. Callers hold m.mu.
func (m *Manager) releaseSlot(id string) {
	if err := m.slots.Release(); err != nil {
		m.logger.Error("admission slot release failed",
			"experiment_id", id,
			"error", err,
		)
	}
	m.metrics.SetActive(m.slots.Active())
}

// persist writes the experiment's current snapshot to the store. Taking the
// snapshot under persistMu keeps the last write the newest state. A revision
// already written by a concurrent persist is skipped.
func (m *Manager) persist(ctx context.Context, e *entry) {
	if m.store == nil {
		return
	}

	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	snap := e.exp.Snapshot()
	if snap.Revision <= e.saved {
		return
	}
	err := m.store.Save(context.WithoutCancel(ctx), snap)
	switch {
	case err == nil:
		e.saved = snap.Revision
	case errors.Is(err, store.ErrStale):
		m.logger.ErrorContext(ctx, "stored experiment is newer than this process' copy; write refused",
			"experiment_id", snap.ID,
			"state", snap.State,
			"revision", snap.Revision,
			"error", err,
		)
	default:
		m.logger.ErrorContext(ctx, "failed to persist experiment",
			"experiment_id", snap.ID,
			"state", snap.State,
			"error", err,
		)
	}
}

// emit records lifecycle evidence for snap. Failures are logged.
func (m *Manager) emit(ctx context.Context, rec *evidence.Record) {
	if m.recorder == nil {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = m.now().UTC()
	}
	if err := m.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		m.logger.WarnContext(ctx, "failed to record evidence",
			"experiment_id", rec.ExperimentID,
			"type", rec.Type,
			"error", err,
		)
	}
}

// newRecord builds an evidence record describing snap after an event.
func newRecord(typ evidence.EventType, snap experiment.Snapshot, from experiment.State, actor string) *evidence.Record {
	return &evidence.Record{
		ExperimentID:    snap.ID,
		Type:            typ,
		Actor:           actor,
		FromState:       string(from),
		ToState:         string(snap.State),
		BudgetUsed:      snap.BudgetUsed,
		BudgetAllocated: snap.Definition.Budget,
		QualityScore:    snap.Metrics.QualityScore,
	}
}

// actor returns the caller identity carried in ctx, or fallback.
func actor(ctx context.Context, fallback string) string {
	if a := logging.GetActor(ctx); a != "" {
		return a
	}
	if fallback != "" {
		return fallback
	}
	return SystemActor
}

// startSpan opens a span for a manager operation on id.
func (m *Manager) startSpan(ctx context.Context, op, id string) (context.Context, trace.Span) {
	ctx, span := m.tracer.Start(ctx, "manager."+op)
	if id != "" {
		ctx = logging.WithExperimentID(ctx, id)
	}
	return ctx, span
}

// finish ends span and counts the operation's outcome.
func (m *Manager) finish(span trace.Span, op string, err error) {
	m.metrics.RecordTransition(op, tracing.ErrorType(err))
	tracing.End(span, err)
}
