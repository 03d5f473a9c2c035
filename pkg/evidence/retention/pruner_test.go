package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/crucible/pkg/evidence"
	"mercator-hq/crucible/pkg/evidence/storage"
)

var now = time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)

// seed stores one record per entry in ages, aged that many days.
func seed(t *testing.T, s evidence.Storage, ages ...int) {
	t.Helper()
	for i, days := range ages {
		ts := now.AddDate(0, 0, -days).Add(time.Duration(i) * time.Second)
		err := s.Store(context.Background(), &evidence.Record{
			ID:           fmt.Sprintf("r%02d", i),
			ExperimentID: "exp",
			Type:         evidence.EventResultRecorded,
			Timestamp:    ts,
			RecordedAt:   ts,
		})
		if err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}
}

func newPruner(s evidence.Storage, cfg *Config) *Pruner {
	p := NewPruner(s, cfg)
	p.SetClock(func() time.Time { return now })
	return p
}

// ==================== Age ====================

func TestPrune_ByAge(t *testing.T) {
	s := storage.NewMemoryStorage()
	seed(t, s, 100, 95, 30, 1, 0)

	deleted, err := newPruner(s, &Config{RetentionDays: 90}).Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if s.Size() != 3 {
		t.Errorf("remaining = %d, want 3", s.Size())
	}
}

func TestPrune_Disabled(t *testing.T) {
	s := storage.NewMemoryStorage()
	seed(t, s, 1000, 500)

	deleted, err := newPruner(s, &Config{}).Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 0 || s.Size() != 2 {
		t.Errorf("disabled pruner deleted %d records", deleted)
	}
}

// ==================== Count ====================

func TestPrune_ByCount(t *testing.T) {
	s := storage.NewMemoryStorage()
	seed(t, s, 10, 9, 8, 7, 6, 5)

	deleted, err := newPruner(s, &Config{MaxRecords: 4}).Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	remaining, _ := s.Query(context.Background(), &evidence.Query{SortOrder: "asc"})
	if len(remaining) != 4 || remaining[0].ID != "r02" {
		t.Errorf("oldest remaining = %v, want r02 of 4", remaining)
	}
}

func TestPrune_AgeThenCount(t *testing.T) {
	s := storage.NewMemoryStorage()
	seed(t, s, 200, 150, 20, 10, 5, 1)

	deleted, err := newPruner(s, &Config{RetentionDays: 90, MaxRecords: 3}).Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	if s.Size() != 3 {
		t.Errorf("remaining = %d, want 3", s.Size())
	}
}

// ==================== Archive ====================

func TestPrune_Archive(t *testing.T) {
	s := storage.NewMemoryStorage()
	seed(t, s, 100, 99, 1)
	dir := t.TempDir()

	_, err := newPruner(s, &Config{
		RetentionDays:       30,
		ArchiveBeforeDelete: true,
		ArchivePath:         dir,
	}).Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "evidence-age-*.json"))
	if len(files) != 1 {
		t.Fatalf("archive files = %v, want 1", files)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	var archived []evidence.Record
	if err := json.Unmarshal(data, &archived); err != nil {
		t.Fatalf("archive is not a JSON array: %v", err)
	}
	if len(archived) != 2 {
		t.Errorf("archived %d records, want 2", len(archived))
	}
}

// ==================== Scheduler ====================

func TestScheduler(t *testing.T) {
	t.Run("invalid schedule", func(t *testing.T) {
		p := newPruner(storage.NewMemoryStorage(), &Config{PruneSchedule: "not a cron"})
		if err := p.Start(context.Background()); err == nil {
			t.Error("expected error for invalid schedule")
		}
	})

	t.Run("empty schedule", func(t *testing.T) {
		p := newPruner(storage.NewMemoryStorage(), &Config{})
		if err := p.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if p.NextPruning() != nil {
			t.Error("NextPruning() should be nil without a schedule")
		}
	})

	t.Run("valid schedule", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		p := newPruner(storage.NewMemoryStorage(), &Config{PruneSchedule: "0 3 * * *"})
		if err := p.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		defer p.Stop()

		if !p.scheduler.IsRunning() {
			t.Error("scheduler should be running")
		}
		next := p.NextPruning()
		if next == nil {
			t.Fatal("NextPruning() = nil")
		}
		if next.Hour() != 3 || next.Minute() != 0 {
			t.Errorf("NextPruning() = %v, want 03:00", next)
		}
	})
}

// failingStorage fails every delete.
type failingStorage struct {
	evidence.Storage
}

func (failingStorage) Delete(ctx context.Context, q *evidence.Query) (int64, error) {
	return 0, fmt.Errorf("disk I/O error")
}

func TestScheduler_RunRecordsStatus(t *testing.T) {
	s := storage.NewMemoryStorage()
	seed(t, s, 100, 1)

	p := newPruner(s, &Config{RetentionDays: 90, PruneSchedule: "0 3 * * *"})
	if last := p.scheduler.LastRun(); !last.At.IsZero() {
		t.Fatalf("LastRun() before any run = %+v", last)
	}

	p.scheduler.run(context.Background())
	last := p.scheduler.LastRun()
	if !last.At.Equal(now) || last.Deleted != 1 || last.Err != nil {
		t.Errorf("LastRun() = %+v, want one deletion at %v", last, now)
	}
	if err := p.Check(context.Background()); err != nil {
		t.Errorf("Check() = %v after a clean run", err)
	}

	broken := newPruner(failingStorage{Storage: s}, &Config{RetentionDays: 90})
	broken.scheduler.run(context.Background())
	if err := broken.Check(context.Background()); err == nil {
		t.Error("Check() = nil after a failed run")
	}
}

func TestValidateSchedule(t *testing.T) {
	for _, tt := range []struct {
		schedule string
		wantErr  bool
	}{
		{"", false},
		{"0 3 * * *", false},
		{"*/15 * * * *", false},
		{"0 3 * *", true},
		{"every day", true},
	} {
		if err := ValidateSchedule(tt.schedule); (err != nil) != tt.wantErr {
			t.Errorf("ValidateSchedule(%q) error = %v, wantErr %v", tt.schedule, err, tt.wantErr)
		}
	}
}
