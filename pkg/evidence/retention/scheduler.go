package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RunStatus describes the most recent scheduled prune.
type RunStatus struct {
	At      time.Time
	Deleted int64
	Err     error
}

// Scheduler runs a Pruner on a cron schedule. A run that is still going when
// the next one is due causes that next run to be skipped.
type Scheduler struct {
	pruner *Pruner
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	running bool
	last    RunStatus
}

// NewScheduler creates a scheduler for pruner.
func NewScheduler(pruner *Pruner) *Scheduler {
	logger := slog.Default().With("component", "evidence.scheduler")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))
	return &Scheduler{
		pruner: pruner,
		logger: logger,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}
}

// Start schedules pruning on the pruner's PruneSchedule until ctx is
// cancelled or Stop is called. An empty schedule is a no-op and a second
// Start is ignored.
func (s *Scheduler) Start(ctx context.Context) error {
	schedule := s.pruner.config.PruneSchedule

	s.mu.Lock()
	defer s.mu.Unlock()

	if schedule == "" {
		s.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	id, err := s.cron.AddFunc(schedule, func() { s.run(ctx) })
	if err != nil {
		return fmt.Errorf("schedule pruning: %w", err)
	}
	s.entry = id
	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", schedule,
		"retention_days", s.pruner.config.RetentionDays,
		"max_records", s.pruner.config.MaxRecords,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// run executes one scheduled prune and records its outcome.
func (s *Scheduler) run(ctx context.Context) {
	started := s.pruner.now()
	deleted, err := s.pruner.Prune(ctx)

	s.mu.Lock()
	s.last = RunStatus{At: started, Deleted: deleted, Err: err}
	s.mu.Unlock()

	switch {
	case err != nil:
		s.logger.Error("scheduled pruning failed", "error", err, "deleted_count", deleted)
	case deleted > 0:
		s.logger.Info("scheduled pruning completed", "deleted_count", deleted)
	default:
		s.logger.Debug("scheduled pruning completed, no records deleted")
	}
}

// Stop stops the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	// run takes s.mu to record its status, so wait without holding it.
	<-s.cron.Stop().Done()
	s.logger.Info("retention scheduler stopped")
}

// IsRunning reports whether the schedule is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled pruning time, or nil when no schedule
// is active.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

// LastRun returns the outcome of the most recent scheduled prune. At is zero
// before the first run.
func (s *Scheduler) LastRun() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// ValidateSchedule reports whether schedule is a valid five-field cron
// expression. An empty schedule is valid.
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}
