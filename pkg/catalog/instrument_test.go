package catalog

import (
	"context"
	"errors"
	"testing"
)

type recordingObserver struct {
	lookups []string
}

func (r *recordingObserver) RecordCatalogLookup(kind, outcome string) {
	r.lookups = append(r.lookups, kind+"/"+outcome)
}

type failingCatalog struct{}

func (failingCatalog) SkillExists(ctx context.Context, name string) (bool, error) {
	return false, NewUnavailableError("test", KindSkill, name, errors.New("down"))
}

func (failingCatalog) ToolExists(ctx context.Context, name string) (bool, error) {
	return false, NewUnavailableError("test", KindTool, name, errors.New("down"))
}

func TestInstrument(t *testing.T) {
	obs := &recordingObserver{}
	v := Instrument(NewStatic([]string{"summarize"}, []string{"search"}), obs)
	ctx := context.Background()

	_, _ = v.SkillExists(ctx, "summarize")
	_, _ = v.SkillExists(ctx, "translate")
	_, _ = v.ToolExists(ctx, "search")
	_, _ = Instrument(failingCatalog{}, obs).ToolExists(ctx, "browser")

	want := []string{"skill/found", "skill/not_found", "tool/found", "tool/unavailable"}
	if len(obs.lookups) != len(want) {
		t.Fatalf("lookups = %v, want %v", obs.lookups, want)
	}
	for i := range want {
		if obs.lookups[i] != want[i] {
			t.Errorf("lookup %d = %q, want %q", i, obs.lookups[i], want[i])
		}
	}
}

func TestInstrument_NilObserver(t *testing.T) {
	s := NewStatic(nil, nil)
	if Instrument(s, nil) != Validator(s) {
		t.Error("nil observer should return the catalog unchanged")
	}
}

func TestInstrument_Check(t *testing.T) {
	v := Instrument(NewStatic(nil, nil), &recordingObserver{})
	checker, ok := v.(Checker)
	if !ok {
		t.Fatal("instrumented catalog does not implement Checker")
	}
	if err := checker.Check(context.Background()); err != nil {
		t.Errorf("Check() error = %v", err)
	}
}
