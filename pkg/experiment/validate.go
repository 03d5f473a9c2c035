package experiment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mercator-hq/crucible/pkg/catalog"
)

// Policy holds the static ceilings checked at creation and start time.
// A zero ceiling disables that check.
type Policy struct {
	MaxBudget     float64
	MaxConcurrent int
	MaxDuration   time.Duration
}

// ValidateDefinition checks a definition against the catalog and the policy.
//
// Every violation is collected; the check does not stop at the first one. The
// returned error is non-nil only when the catalog could not be consulted, in
// which case it wraps a *catalog.UnavailableError and the violation list is
// incomplete and must not be used.
func ValidateDefinition(ctx context.Context, def Definition, v catalog.Validator, p Policy) ([]Violation, error) {
	var violations []Violation
	add := func(field, format string, args ...any) {
		violations = append(violations, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(def.Name) == "" {
		add("name", "is required")
	}
	if strings.TrimSpace(def.Creator) == "" {
		add("creator", "is required")
	}
	if !def.Type.Valid() {
		add("type", "unknown experiment type %q", def.Type)
	}

	// Blank names never reach the catalog: a registry could answer for its
	// collection URL and report them as present.
	for _, name := range dedupe(def.Skills) {
		if strings.TrimSpace(name) == "" {
			add("skills", "skill name must not be blank")
			continue
		}
		ok, err := v.SkillExists(ctx, name)
		if err != nil {
			return nil, catalogError(catalog.KindSkill, name, err)
		}
		if !ok {
			add("skills", "unknown skill %q", name)
		}
	}
	for _, name := range dedupe(def.Tools) {
		if strings.TrimSpace(name) == "" {
			add("tools", "tool name must not be blank")
			continue
		}
		ok, err := v.ToolExists(ctx, name)
		if err != nil {
			return nil, catalogError(catalog.KindTool, name, err)
		}
		if !ok {
			add("tools", "unknown tool %q", name)
		}
	}

	switch {
	case def.Budget < 0:
		add("budget_allocated", "must be non-negative, got %g", def.Budget)
	case p.MaxBudget > 0 && def.Budget > p.MaxBudget:
		add("budget_allocated", "%g exceeds policy maximum %g", def.Budget, p.MaxBudget)
	}

	switch {
	case def.TimeLimit <= 0:
		add("time_limit", "must be positive, got %s", def.TimeLimit)
	case p.MaxDuration > 0 && def.TimeLimit > p.MaxDuration:
		add("time_limit", "%s exceeds policy maximum %s", def.TimeLimit, p.MaxDuration)
	}

	return violations, nil
}

// catalogError makes sure the returned error always matches
// catalog.ErrUnavailable, whatever the validator returned.
func catalogError(kind catalog.Kind, name string, err error) error {
	if errors.Is(err, catalog.ErrUnavailable) {
		return err
	}
	return catalog.NewUnavailableError("unknown", kind, name, err)
}

// ValidateResult checks that a harness-reported result is well formed.
func ValidateResult(r Result) []Violation {
	var violations []Violation
	if r.Cost < 0 {
		violations = append(violations, Violation{Field: "cost", Message: fmt.Sprintf("must be non-negative, got %g", r.Cost)})
	}
	if r.Duration < 0 {
		violations = append(violations, Violation{Field: "duration", Message: fmt.Sprintf("must be non-negative, got %s", r.Duration)})
	}
	return violations
}
