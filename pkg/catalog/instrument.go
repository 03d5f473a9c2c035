package catalog

import (
	"context"
)

// Observer receives one call per lookup. *metrics.Collector satisfies it.
type Observer interface {
	RecordCatalogLookup(kind, outcome string)
}

// Lookup outcomes reported to an Observer.
const (
	OutcomeFound       = "found"
	OutcomeNotFound    = "not_found"
	OutcomeUnavailable = "unavailable"
)

type instrumented struct {
	next     Validator
	observer Observer
}

// Instrument wraps v so every lookup is reported to observer. A nil observer
// returns v unchanged. The wrapper forwards Check when v implements Checker.
func Instrument(v Validator, observer Observer) Validator {
	if observer == nil {
		return v
	}
	return &instrumented{next: v, observer: observer}
}

func (i *instrumented) SkillExists(ctx context.Context, name string) (bool, error) {
	ok, err := i.next.SkillExists(ctx, name)
	i.observe(KindSkill, ok, err)
	return ok, err
}

func (i *instrumented) ToolExists(ctx context.Context, name string) (bool, error) {
	ok, err := i.next.ToolExists(ctx, name)
	i.observe(KindTool, ok, err)
	return ok, err
}

// Check implements Checker. Catalogs without a health check are always
// healthy.
func (i *instrumented) Check(ctx context.Context) error {
	if c, ok := i.next.(Checker); ok {
		return c.Check(ctx)
	}
	return nil
}

func (i *instrumented) observe(kind Kind, ok bool, err error) {
	switch {
	case err != nil:
		i.observer.RecordCatalogLookup(string(kind), OutcomeUnavailable)
	case ok:
		i.observer.RecordCatalogLookup(string(kind), OutcomeFound)
	default:
		i.observer.RecordCatalogLookup(string(kind), OutcomeNotFound)
	}
}
