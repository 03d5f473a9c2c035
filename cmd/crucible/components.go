package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"mercator-hq/crucible/pkg/catalog"
	"mercator-hq/crucible/pkg/cli"
	"mercator-hq/crucible/pkg/config"
	"mercator-hq/crucible/pkg/evidence"
	"mercator-hq/crucible/pkg/evidence/recorder"
	"mercator-hq/crucible/pkg/evidence/retention"
	"mercator-hq/crucible/pkg/evidence/storage"
	"mercator-hq/crucible/pkg/experiment"
	"mercator-hq/crucible/pkg/limits/enforcement"
	"mercator-hq/crucible/pkg/manager"
	"mercator-hq/crucible/pkg/promotion"
	"mercator-hq/crucible/pkg/store"
	"mercator-hq/crucible/pkg/telemetry/health"
	"mercator-hq/crucible/pkg/telemetry/logging"
	"mercator-hq/crucible/pkg/telemetry/metrics"
	"mercator-hq/crucible/pkg/telemetry/tracing"
)

// components holds everything built from configuration. Close releases it in
// reverse order of construction.
type components struct {
	cfg    *config.Config
	logger *slog.Logger

	metrics *metrics.Collector
	tracer  *tracing.Tracer
	checker *health.Checker

	catalog     catalog.Validator
	catalogFile *catalog.File

	store     store.Store
	evidence  evidence.Storage
	recorder  *recorder.Recorder
	publisher promotion.Publisher
	manager   *manager.Manager

	closers []func() error
}

// componentOptions selects the optional parts. One-shot commands skip
// telemetry that only matters to a long-running server.
type componentOptions struct {
	telemetry bool
	logWriter io.Writer

	// quiet raises the log level to warn unless --verbose is set.
	quiet bool
}

// newLogger builds the process logger from the telemetry section and makes
// it the slog default.
func newLogger(cfg *config.Config, w io.Writer, quiet bool) (*slog.Logger, error) {
	logCfg := cfg.Telemetry.Logging
	switch {
	case verbose:
		logCfg.Level = "debug"
	case quiet:
		logCfg.Level = "warn"
	}
	logger, err := logging.New(logging.FromConfig(&logCfg, w))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)
	return logger, nil
}

func buildComponents(ctx context.Context, cfg *config.Config, opts componentOptions) (c *components, err error) {
	c = &components{cfg: cfg}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if opts.logWriter == nil {
		opts.logWriter = os.Stderr
	}
	if c.logger, err = newLogger(cfg, opts.logWriter, opts.quiet); err != nil {
		return nil, err
	}

	if opts.telemetry {
		if cfg.Telemetry.Metrics.Enabled {
			c.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		}
		if c.tracer, err = tracing.New(&cfg.Telemetry.Tracing, tracing.WithServiceVersion(Version)); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		tracer := c.tracer
		c.closers = append(c.closers, func() error { return tracer.Shutdown(context.Background()) })
		c.checker = health.New(cfg.Telemetry.Health.CheckTimeout)
	}

	if err := c.buildCatalog(); err != nil {
		return nil, err
	}
	if err := c.buildStore(); err != nil {
		return nil, err
	}
	if err := c.buildEvidence(); err != nil {
		return nil, err
	}
	if err := c.buildPublisher(); err != nil {
		return nil, err
	}
	if err := c.buildManager(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *components) buildCatalog() error {
	cfg := c.cfg.Catalog
	v, err := catalog.New(catalog.Config{
		Mode:             catalog.Mode(cfg.Mode),
		Skills:           cfg.Skills,
		Tools:            cfg.Tools,
		Path:             cfg.Path,
		Watch:            cfg.Watch,
		DebounceInterval: cfg.DebounceInterval,
		URL:              cfg.URL,
		Timeout:          cfg.Timeout,
	}, c.logger)
	if err != nil {
		return cli.NewConfigError("catalog", err.Error())
	}

	if f, ok := v.(*catalog.File); ok {
		c.catalogFile = f
		collector := c.metrics
		f.OnReload(func(err error, skills, tools int) {
			collector.RecordCatalogReload(err == nil)
			collector.UpdateCatalogSize(string(catalog.KindSkill), skills)
			collector.UpdateCatalogSize(string(catalog.KindTool), tools)
		})
		skills, tools := f.Counts()
		collector.UpdateCatalogSize(string(catalog.KindSkill), skills)
		collector.UpdateCatalogSize(string(catalog.KindTool), tools)
	}

	if c.metrics != nil {
		v = catalog.Instrument(v, c.metrics)
	}
	c.catalog = v

	if checker, ok := v.(catalog.Checker); ok && c.checker != nil {
		c.checker.RegisterCritical("catalog", checker.Check)
	}
	return nil
}

func (c *components) buildStore() error {
	s, err := store.New(store.Config{
		Backend: c.cfg.Store.Backend,
		SQLite: store.SQLiteConfig{
			Path:        c.cfg.Store.SQLite.Path,
			BusyTimeout: c.cfg.Store.SQLite.BusyTimeout,
			LockTimeout: c.cfg.Store.SQLite.LockTimeout,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to open experiment store: %w", err)
	}
	c.store = s
	c.closers = append(c.closers, s.Close)

	if pinger, ok := s.(interface{ Ping(context.Context) error }); ok && c.checker != nil {
		c.checker.RegisterCritical("store", pinger.Ping)
	}
	return nil
}

func (c *components) buildEvidence() error {
	if !c.cfg.Evidence.Enabled {
		return nil
	}

	s, err := openEvidenceStorage(c.cfg)
	if err != nil {
		return err
	}
	c.evidence = s
	c.closers = append(c.closers, s.Close)

	rec := recorder.NewRecorder(s, &recorder.Config{
		Enabled:      true,
		AsyncBuffer:  c.cfg.Evidence.Recorder.AsyncBuffer,
		WriteTimeout: c.cfg.Evidence.Recorder.WriteTimeout,
	}, recorder.WithLogger(c.logger))
	c.recorder = rec
	c.closers = append(c.closers, rec.Close)

	if pinger, ok := s.(interface{ Ping(context.Context) error }); ok && c.checker != nil {
		c.checker.RegisterCheck("evidence", pinger.Ping)
	}
	return nil
}

func (c *components) buildPublisher() error {
	nc := c.cfg.Promotion.NATS
	p, err := promotion.New(promotion.Config{
		Backend:       c.cfg.Promotion.Backend,
		URL:           nc.URL,
		SubjectPrefix: nc.SubjectPrefix,
		Timeout:       nc.Timeout,
		MaxReconnects: nc.MaxReconnects,
		ReconnectWait: nc.ReconnectWait,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize promotion publisher: %w", err)
	}
	c.publisher = p
	c.closers = append(c.closers, p.Close)

	if checker, ok := p.(interface{ Check(context.Context) error }); ok && c.checker != nil {
		c.checker.RegisterCheck("promotion", checker.Check)
	}
	return nil
}

func (c *components) buildManager(ctx context.Context) error {
	action, err := enforcement.ParseAction(c.cfg.Policy.OverageAction)
	if err != nil {
		return cli.NewConfigError("policy.overage_action", err.Error())
	}

	mcfg := manager.Config{
		Policy: experiment.Policy{
			MaxBudget:     c.cfg.Policy.MaxBudget,
			MaxConcurrent: c.cfg.Policy.MaxConcurrent,
			MaxDuration:   c.cfg.Policy.MaxDuration,
		},
		AlertThreshold:   c.cfg.Policy.AlertThreshold,
		OverageAction:    action,
		Catalog:          c.catalog,
		Store:            c.store,
		Publisher:        c.publisher,
		PublisherBackend: c.cfg.Promotion.Backend,
		Metrics:          c.metrics,
		Tracer:           c.tracer,
		Logger:           c.logger,
	}
	if c.recorder != nil {
		mcfg.Recorder = c.recorder
	}

	if c.manager, err = manager.New(mcfg); err != nil {
		return err
	}
	if _, err := c.manager.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore experiments: %w", err)
	}
	return nil
}

// newPruner builds the retention pruner over the evidence storage, or nil
// when evidence is disabled.
func (c *components) newPruner() *retention.Pruner {
	if c.evidence == nil {
		return nil
	}
	return retention.NewPruner(c.evidence, retentionConfig(c.cfg))
}

// Close releases every component. The recorder drains before its storage
// closes.
func (c *components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// openEvidenceStorage opens the configured evidence backend.
func openEvidenceStorage(cfg *config.Config) (evidence.Storage, error) {
	switch cfg.Evidence.Backend {
	case "sqlite":
		s, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.Evidence.SQLite.Path,
			MaxOpenConns: cfg.Evidence.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Evidence.SQLite.MaxIdleConns,
			WALMode:      cfg.Evidence.SQLite.WALMode,
			BusyTimeout:  cfg.Evidence.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storage: %w", err)
		}
		return s, nil
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, cli.NewConfigError("evidence.backend", fmt.Sprintf("unsupported evidence backend: %s (supported: sqlite, memory)", cfg.Evidence.Backend))
	}
}

func retentionConfig(cfg *config.Config) *retention.Config {
	r := cfg.Evidence.Retention
	return &retention.Config{
		RetentionDays:       r.Days,
		PruneSchedule:       r.PruneSchedule,
		ArchiveBeforeDelete: r.ArchiveBeforeDelete,
		ArchivePath:         r.ArchivePath,
		MaxRecords:          r.MaxRecords,
	}
}
