// Package manager owns the set of experiments and enforces the governance
// rules that span them.
//
// # Overview
//
// The Manager is the single entry point for lifecycle operations. It holds
// every experiment in memory, gates starts on the concurrency ceiling, and
// after each transition persists the snapshot, records lifecycle evidence and
// updates metrics:
//
//	mgr, err := manager.New(manager.Config{
//	    Policy:   experiment.Policy{MaxBudget: 100, MaxConcurrent: 5},
//	    Catalog:  validator,
//	    Store:    st,
//	    Recorder: rec,
//	    Logger:   logger,
//	})
//
//	snap, err := mgr.Create(ctx, def)
//	snap, err = mgr.Start(ctx, snap.ID)
//	outcome, err := mgr.RecordResult(ctx, snap.ID, result)
//	snap, err = mgr.Complete(ctx, snap.ID)
//
// # Concurrency
//
// A single mutex serializes every state transition together with the
// admission check, so the number of running experiments never exceeds the
// ceiling. Recording a result only takes the target experiment's own lock.
// Catalog lookups for Start run before the mutex is taken. Persistence,
// evidence and promotion publishing run after it is released.
//
// # Failure handling
//
// Store and evidence failures are logged and never fail the operation that
// caused them; in-memory state stays authoritative. A promotion that cannot be
// published stays promoted and the failure is recorded as evidence.
package manager
