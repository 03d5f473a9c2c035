// Package enforcement decides the consequences of experiment budget usage.
//
// # Overview
//
// Each recorded result adds its cost to the experiment's spend. The enforcer
// compares spend before and after the result and reports:
//
//   - Alert: spend reached the configured fraction of the allocation
//   - Exceeded: spend is strictly greater than the allocation
//
// Crossings are reported once, by the result that caused them. Overage is
// never clamped; the configured Action decides whether the experiment is
// flagged (the default) or cancelled.
//
// # Usage
//
//	enforcer := enforcement.NewEnforcer(enforcement.Config{
//	    Action:         enforcement.ActionCancel,
//	    AlertThreshold: 0.8,
//	})
//
//	result := enforcer.Evaluate(allocated, before, after)
//	if result.Cancel {
//	    // cancel the experiment
//	}
//
// # Thread Safety
//
// The Enforcer is immutable after construction and can be used concurrently.
package enforcement
