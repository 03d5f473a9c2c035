package handlers

import (
	"context"

	"mercator-hq/crucible/pkg/experiment"
	"mercator-hq/crucible/pkg/manager"
	"mercator-hq/crucible/pkg/store"
)

// ExperimentService is the lifecycle surface the handlers call.
// *manager.Manager satisfies it.
type ExperimentService interface {
	Create(ctx context.Context, def experiment.Definition) (experiment.Snapshot, error)
	Submit(ctx context.Context, id string) (experiment.Snapshot, error)
	Start(ctx context.Context, id string) (experiment.Snapshot, error)
	RecordResult(ctx context.Context, id string, result experiment.Result) (manager.RecordOutcome, error)
	Complete(ctx context.Context, id string) (experiment.Snapshot, error)
	Fail(ctx context.Context, id, reason string) (experiment.Snapshot, error)
	Cancel(ctx context.Context, id string) (experiment.Snapshot, error)
	AddValidationNote(ctx context.Context, id, note, author string) (experiment.Snapshot, error)
	Promote(ctx context.Context, id string) (manager.PromotionOutcome, error)
	Get(ctx context.Context, id string) (experiment.Snapshot, error)
	List(ctx context.Context, filter store.Filter) []experiment.Snapshot
	Statistics(ctx context.Context) manager.Statistics
}
