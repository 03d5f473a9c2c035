package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/crucible/pkg/evidence"
)

// ErrClosed is returned by Record after Close.
var ErrClosed = errors.New("evidence recorder closed")

// Config contains configuration for the evidence recorder.
type Config struct {
	// Enabled enables evidence recording. A disabled recorder accepts and
	// discards every record.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds both the wait for buffer space and each storage
	// write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder records lifecycle evidence without blocking the caller on storage.
type Recorder struct {
	storage    evidence.Storage
	config     *Config
	recordChan chan *evidence.Record
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
	now        func() time.Time
	onWrite    func(*evidence.Record, error)
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithLogger sets the recorder's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger.With("component", "evidence.recorder")
		}
	}
}

// WithClock overrides the clock used for default timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithWriteHook registers fn to run after every storage write with its
// result. It runs on the worker goroutine.
func WithWriteHook(fn func(*evidence.Record, error)) Option {
	return func(r *Recorder) { r.onWrite = fn }
}

// NewRecorder creates a recorder and starts its background worker.
func NewRecorder(storage evidence.Storage, config *Config, opts ...Option) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *evidence.Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "evidence.recorder"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("evidence recorder initialized",
		"enabled", config.Enabled,
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)
	return r
}

// Record enqueues record for writing. It fills in ID and Timestamp when they
// are empty and returns once the record is queued.
func (r *Recorder) Record(ctx context.Context, record *evidence.Record) error {
	if !r.config.Enabled {
		return nil
	}

	select {
	case <-r.done:
		return evidence.NewRecorderError(record.ID, ErrClosed)
	default:
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = r.now().UTC()
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- record:
		r.logger.Debug("evidence record enqueued",
			"record_id", record.ID,
			"experiment_id", record.ExperimentID,
			"type", record.Type,
		)
		return nil
	case <-timer.C:
		r.logger.Error("evidence record channel full, dropping record",
			"record_id", record.ID,
			"experiment_id", record.ExperimentID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return evidence.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-ctx.Done():
		return evidence.NewRecorderError(record.ID, ctx.Err())
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping record",
			"record_id", record.ID,
			"experiment_id", record.ExperimentID,
		)
		return evidence.NewRecorderError(record.ID, ErrClosed)
	}
}

// Close stops accepting records, drains the queue and waits for the worker.
// It is safe to call more than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down evidence recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("evidence recorder shut down complete")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			r.logger.Info("draining evidence channel before shutdown",
				"pending_count", len(r.recordChan),
			)
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					r.logger.Info("evidence channel drained")
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *evidence.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	record.RecordedAt = r.now().UTC()

	err := r.storage.Store(ctx, record)
	if r.onWrite != nil {
		r.onWrite(record, err)
	}
	if err != nil {
		r.logger.Error("failed to store evidence record",
			"record_id", record.ID,
			"experiment_id", record.ExperimentID,
			"type", record.Type,
			"error", err,
		)
		return
	}

	duration := time.Since(start)
	r.logger.Debug("evidence recorded",
		"record_id", record.ID,
		"experiment_id", record.ExperimentID,
		"type", record.Type,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow evidence write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}
