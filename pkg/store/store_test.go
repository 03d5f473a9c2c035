package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/crucible/pkg/experiment"
)

var base = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func snapshot(id, creator string, typ experiment.Type, state experiment.State, offset time.Duration) experiment.Snapshot {
	started := base.Add(offset + time.Minute)
	return experiment.Snapshot{
		ID: id,
		Definition: experiment.Definition{
			Name:       "trial " + id,
			Creator:    creator,
			Type:       typ,
			Skills:     []string{"summarize"},
			Tools:      []string{"web_search", "fetch"},
			Parameters: map[string]any{"temperature": 0.3, "nested": map[string]any{"k": "v"}},
			Budget:     50,
			TimeLimit:  30 * time.Second,
		},
		State:      state,
		BudgetUsed: 12.5,
		Revision:   1,
		CreatedAt:  base.Add(offset),
		UpdatedAt:  base.Add(offset + time.Hour),
		StartedAt:  &started,
		Results: []experiment.Result{
			{Timestamp: started, Success: true, Cost: 12.5, Duration: 4 * time.Second, OutputRef: "s3://out/1"},
		},
		Metrics:         experiment.Metrics{SuccessRate: 1, AvgCost: 12.5, AvgDuration: 4 * time.Second, TotalRuns: 1},
		ValidationNotes: []experiment.ValidationNote{},
	}
}

// runStoreContract exercises behavior every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("save and load round trip", func(t *testing.T) {
		s := newStore(t)
		want := snapshot("a", "alice", experiment.TypeSkillTrial, experiment.StateRunning, 0)

		if err := s.Save(ctx, want); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := s.Load(ctx, "a")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Load() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("save replaces", func(t *testing.T) {
		s := newStore(t)
		snap := snapshot("a", "alice", experiment.TypeSkillTrial, experiment.StateRunning, 0)
		_ = s.Save(ctx, snap)

		snap.State = experiment.StateCompleted
		snap.BudgetUsed = 40
		snap.Revision++
		if err := s.Save(ctx, snap); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, _ := s.Load(ctx, "a")
		if got.State != experiment.StateCompleted || got.BudgetUsed != 40 {
			t.Errorf("Load() = state %s used %v, want completed 40", got.State, got.BudgetUsed)
		}
		all, _ := s.List(ctx, Filter{})
		if len(all) != 1 {
			t.Errorf("List() returned %d snapshots, want 1", len(all))
		}
	})

	t.Run("stale revision refused", func(t *testing.T) {
		s := newStore(t)
		newer := snapshot("a", "alice", experiment.TypeSkillTrial, experiment.StateRunning, 0)
		newer.Revision = 3
		if err := s.Save(ctx, newer); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		tests := []struct {
			name     string
			revision int64
		}{
			{"older", 2},
			{"same", 3},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				stale := snapshot("a", "alice", experiment.TypeSkillTrial, experiment.StateCancelled, 0)
				stale.Revision = tt.revision
				stale.Results = nil

				err := s.Save(ctx, stale)
				var serr *StorageError
				if !errors.Is(err, ErrStale) || !errors.As(err, &serr) {
					t.Fatalf("Save() error = %v, want *StorageError wrapping ErrStale", err)
				}
				got, _ := s.Load(ctx, "a")
				if diff := cmp.Diff(newer, got); diff != "" {
					t.Errorf("stored snapshot changed (-want +got):\n%s", diff)
				}
			})
		}
	})

	t.Run("load unknown", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Load() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("empty id rejected", func(t *testing.T) {
		s := newStore(t)
		var serr *StorageError
		if err := s.Save(ctx, experiment.Snapshot{}); !errors.As(err, &serr) {
			t.Errorf("Save() error = %v, want *StorageError", err)
		}
	})

	t.Run("list filters and order", func(t *testing.T) {
		s := newStore(t)
		fixtures := []experiment.Snapshot{
			snapshot("c", "alice", experiment.TypeSkillTrial, experiment.StateRunning, 2*time.Minute),
			snapshot("a", "bob", experiment.TypeParameterTuning, experiment.StateDraft, 0),
			snapshot("b", "alice", experiment.TypeSkillTrial, experiment.StateDraft, time.Minute),
			snapshot("d", "alice", experiment.TypeSafetyValidation, experiment.StateRunning, 2*time.Minute),
		}
		for _, f := range fixtures {
			if err := s.Save(ctx, f); err != nil {
				t.Fatal(err)
			}
		}

		tests := []struct {
			name   string
			filter Filter
			want   []string
		}{
			{"all", Filter{}, []string{"a", "b", "c", "d"}},
			{"by state", Filter{State: experiment.StateRunning}, []string{"c", "d"}},
			{"by creator", Filter{Creator: "alice"}, []string{"b", "c", "d"}},
			{"by type", Filter{Type: experiment.TypeSkillTrial}, []string{"b", "c"}},
			{"combined", Filter{State: experiment.StateDraft, Creator: "alice"}, []string{"b"}},
			{"no match", Filter{Creator: "carol"}, []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := s.List(ctx, tt.filter)
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				ids := make([]string, len(got))
				for i, g := range got {
					ids[i] = g.ID
				}
				if diff := cmp.Diff(tt.want, ids); diff != "" {
					t.Errorf("List() ids mismatch (-want +got):\n%s", diff)
				}
			})
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		_ = s.Save(ctx, snapshot("a", "alice", experiment.TypeSkillTrial, experiment.StateDraft, 0))
		if err := s.Delete(ctx, "a"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := s.Delete(ctx, "a"); err != nil {
			t.Errorf("second Delete() error = %v", err)
		}
		if _, err := s.Load(ctx, "a"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Load() after delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("stored copy is detached", func(t *testing.T) {
		s := newStore(t)
		snap := snapshot("a", "alice", experiment.TypeSkillTrial, experiment.StateDraft, 0)
		_ = s.Save(ctx, snap)
		snap.Definition.Skills[0] = "mutated"

		got, _ := s.Load(ctx, "a")
		if got.Definition.Skills[0] != "summarize" {
			t.Error("mutating a saved snapshot changed the stored copy")
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s := NewMemoryStore()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "experiments.db")})
		if err != nil {
			t.Fatalf("NewSQLiteStore() error = %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "experiments.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	want := snapshot("a", "alice", experiment.TypeSkillTrial, experiment.StateValidated, 0)
	if err := s.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	reopened, err := NewSQLiteStore(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load(ctx, "a")
	if err != nil {
		t.Fatalf("Load() after reopen error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() after reopen mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStore_ExclusiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiments.db")
	cfg := SQLiteConfig{Path: path, LockTimeout: 50 * time.Millisecond}

	owner, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	if second, err := NewSQLiteStore(cfg); !errors.Is(err, ErrLocked) {
		if second != nil {
			_ = second.Close()
		}
		t.Fatalf("second NewSQLiteStore() error = %v, want ErrLocked", err)
	}

	if err := owner.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	next, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStore() after owner closed error = %v", err)
	}
	_ = next.Close()
}

func TestSQLiteStore_MigratesRevisionColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiments.db")
	ctx := context.Background()

	legacy, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = legacy.Exec(`CREATE TABLE experiments (
		id TEXT PRIMARY KEY, name TEXT NOT NULL, creator TEXT NOT NULL, type TEXT NOT NULL,
		state TEXT NOT NULL, created_at INTEGER NOT NULL, updated_at INTEGER NOT NULL,
		snapshot TEXT NOT NULL)`)
	_ = legacy.Close()
	if err != nil {
		t.Fatal(err)
	}

	s, err := NewSQLiteStore(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStore() on legacy schema error = %v", err)
	}
	defer s.Close()
	if err := s.Save(ctx, snapshot("a", "alice", experiment.TypeSkillTrial, experiment.StateDraft, 0)); err != nil {
		t.Errorf("Save() error = %v", err)
	}
}

func TestNew(t *testing.T) {
	if s, err := New(Config{}); err != nil || s == nil {
		t.Errorf("New(default) = %v, %v", s, err)
	}
	if _, err := New(Config{Backend: "sqlite"}); err == nil {
		t.Error("New(sqlite) without path should fail")
	}
	if _, err := New(Config{Backend: "postgres"}); err == nil {
		t.Error("New(postgres) should fail")
	}
	s, err := New(Config{Backend: "sqlite", SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "x.db")}})
	if err != nil {
		t.Fatalf("New(sqlite) error = %v", err)
	}
	_ = s.Close()
}
