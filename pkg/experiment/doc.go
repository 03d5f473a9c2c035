// Package experiment models a single governed trial of a skill, tool
// combination, or parameter set under a bounded budget and time limit.
//
// # Lifecycle
//
//	draft ──► pending ──► running ──► completed ──► validated ──► promoted
//	  │          │           │  │          (auto when quality ≥ 0.8
//	  │          │           │  └──► failed      and success ≥ 0.9)
//	  └──────────┴───────────┴─────► cancelled
//
// Draft and pending are pre-admission states. Running is the only state that
// counts against the concurrency ceiling. Failed, cancelled and promoted are
// terminal. Every transition is guarded by an exhaustive switch over State;
// an illegal transition returns *InvalidStateError and leaves the experiment
// untouched.
//
// # Scoring
//
// Each appended Result recomputes Metrics from the full result sequence:
//
//	success_rate    = successes / total_runs
//	cost_efficiency = max(0, 1 - avg_cost/budget_allocated)
//	speed_score     = max(0, 1 - avg_duration/time_limit)
//	quality_score   = 0.5*success_rate + 0.3*cost_efficiency + 0.2*speed_score
//
// ShouldAutoValidate holds the auto-validation threshold as a pure function.
//
// # Budget
//
// Budget overage is never clamped. A result whose cost pushes BudgetUsed past
// the allocation is still recorded; BudgetStatus reports the overage so the
// caller can react.
//
// # Thread Safety
//
// Experiment guards its own state with a mutex. Snapshot returns a deep copy
// that callers may keep and modify freely.
package experiment
