package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
	DefaultMaxBodyBytes    = int64(1 << 20)
	DefaultRetryAfter      = 5 * time.Second

	// Policy defaults
	DefaultMaxConcurrent  = 5
	DefaultAlertThreshold = 0.8
	DefaultOverageAction  = "flag"

	// Catalog defaults
	DefaultCatalogMode     = "static"
	DefaultCatalogDebounce = 100 * time.Millisecond
	DefaultCatalogTimeout  = 5 * time.Second

	// Store defaults
	DefaultStoreBackend     = "sqlite"
	DefaultStoreSQLitePath  = "data/experiments.db"
	DefaultStoreBusyTimeout = 5 * time.Second
	DefaultStoreLockTimeout = 5 * time.Second

	// Evidence defaults
	DefaultEvidenceBackend              = "sqlite"
	DefaultEvidenceSQLitePath           = "data/evidence.db"
	DefaultEvidenceSQLiteMaxOpenConns   = 10
	DefaultEvidenceSQLiteMaxIdleConns   = 5
	DefaultEvidenceSQLiteBusyTimeout    = 5 * time.Second
	DefaultEvidenceRecorderAsyncBuffer  = 1000
	DefaultEvidenceRecorderWriteTimeout = 5 * time.Second
	DefaultEvidenceRetentionDays        = 90
	DefaultEvidenceRetentionSchedule    = "0 3 * * *"
	DefaultEvidenceRetentionArchivePath = "data/archives/"
	DefaultEvidenceQueryDefaultLimit    = 100
	DefaultEvidenceQueryMaxLimit        = 10000
	DefaultEvidenceQueryTimeout         = 30 * time.Second

	// Promotion defaults
	DefaultPromotionBackend  = "log"
	DefaultNATSSubjectPrefix = "crucible.promotions"
	DefaultNATSTimeout       = 5 * time.Second
	DefaultNATSMaxReconnects = 5
	DefaultNATSReconnectWait = time.Second

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "crucible"
	DefaultTracingSampler   = "ratio"
	DefaultTracingRatio     = 1.0
	DefaultTracingExporter  = "otlp"
	DefaultServiceName      = "crucible"
	DefaultOTLPTimeout      = 10 * time.Second
	DefaultLivenessPath     = "/health"
	DefaultReadinessPath    = "/ready"
	DefaultVersionPath      = "/version"
	DefaultCheckTimeout     = 5 * time.Second
)

// Default returns a configuration with every default applied, including the
// boolean defaults that ApplyDefaults cannot infer from zero values. Loading
// unmarshals YAML on top of it so explicit "false" values survive.
func Default() *Config {
	cfg := &Config{}
	cfg.Evidence.Enabled = true
	cfg.Evidence.SQLite.WALMode = true
	cfg.Evidence.Export.JSONPretty = true
	cfg.Evidence.Export.CSVIncludeHeader = true
	cfg.Telemetry.Logging.RedactPII = true
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Health.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. It is
// idempotent.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Server.RetryAfter == 0 {
		cfg.Server.RetryAfter = DefaultRetryAfter
	}

	// Policy defaults. MaxBudget and MaxDuration stay zero (unchecked).
	if cfg.Policy.MaxConcurrent == 0 {
		cfg.Policy.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.Policy.AlertThreshold == 0 {
		cfg.Policy.AlertThreshold = DefaultAlertThreshold
	}
	if cfg.Policy.OverageAction == "" {
		cfg.Policy.OverageAction = DefaultOverageAction
	}

	// Catalog defaults
	if cfg.Catalog.Mode == "" {
		cfg.Catalog.Mode = DefaultCatalogMode
	}
	if cfg.Catalog.DebounceInterval == 0 {
		cfg.Catalog.DebounceInterval = DefaultCatalogDebounce
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = DefaultCatalogTimeout
	}

	// Store defaults
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Store.SQLite.Path == "" {
		cfg.Store.SQLite.Path = DefaultStoreSQLitePath
	}
	if cfg.Store.SQLite.BusyTimeout == 0 {
		cfg.Store.SQLite.BusyTimeout = DefaultStoreBusyTimeout
	}
	if cfg.Store.SQLite.LockTimeout == 0 {
		cfg.Store.SQLite.LockTimeout = DefaultStoreLockTimeout
	}

	// Evidence defaults
	if cfg.Evidence.Backend == "" {
		cfg.Evidence.Backend = DefaultEvidenceBackend
	}
	if cfg.Evidence.SQLite.Path == "" {
		cfg.Evidence.SQLite.Path = DefaultEvidenceSQLitePath
	}
	if cfg.Evidence.SQLite.MaxOpenConns == 0 {
		cfg.Evidence.SQLite.MaxOpenConns = DefaultEvidenceSQLiteMaxOpenConns
	}
	if cfg.Evidence.SQLite.MaxIdleConns == 0 {
		cfg.Evidence.SQLite.MaxIdleConns = DefaultEvidenceSQLiteMaxIdleConns
	}
	if cfg.Evidence.SQLite.BusyTimeout == 0 {
		cfg.Evidence.SQLite.BusyTimeout = DefaultEvidenceSQLiteBusyTimeout
	}
	if cfg.Evidence.Recorder.AsyncBuffer == 0 {
		cfg.Evidence.Recorder.AsyncBuffer = DefaultEvidenceRecorderAsyncBuffer
	}
	if cfg.Evidence.Recorder.WriteTimeout == 0 {
		cfg.Evidence.Recorder.WriteTimeout = DefaultEvidenceRecorderWriteTimeout
	}
	if cfg.Evidence.Retention.Days == 0 {
		cfg.Evidence.Retention.Days = DefaultEvidenceRetentionDays
	}
	if cfg.Evidence.Retention.PruneSchedule == "" {
		cfg.Evidence.Retention.PruneSchedule = DefaultEvidenceRetentionSchedule
	}
	if cfg.Evidence.Retention.ArchivePath == "" {
		cfg.Evidence.Retention.ArchivePath = DefaultEvidenceRetentionArchivePath
	}
	if cfg.Evidence.Query.DefaultLimit == 0 {
		cfg.Evidence.Query.DefaultLimit = DefaultEvidenceQueryDefaultLimit
	}
	if cfg.Evidence.Query.MaxLimit == 0 {
		cfg.Evidence.Query.MaxLimit = DefaultEvidenceQueryMaxLimit
	}
	if cfg.Evidence.Query.Timeout == 0 {
		cfg.Evidence.Query.Timeout = DefaultEvidenceQueryTimeout
	}

	// Promotion defaults
	if cfg.Promotion.Backend == "" {
		cfg.Promotion.Backend = DefaultPromotionBackend
	}
	if cfg.Promotion.NATS.SubjectPrefix == "" {
		cfg.Promotion.NATS.SubjectPrefix = DefaultNATSSubjectPrefix
	}
	if cfg.Promotion.NATS.Timeout == 0 {
		cfg.Promotion.NATS.Timeout = DefaultNATSTimeout
	}
	if cfg.Promotion.NATS.MaxReconnects == 0 {
		cfg.Promotion.NATS.MaxReconnects = DefaultNATSMaxReconnects
	}
	if cfg.Promotion.NATS.ReconnectWait == 0 {
		cfg.Promotion.NATS.ReconnectWait = DefaultNATSReconnectWait
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingRatio
	}
	if cfg.Telemetry.Tracing.Exporter == "" {
		cfg.Telemetry.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultServiceName
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.VersionPath == "" {
		cfg.Telemetry.Health.VersionPath = DefaultVersionPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultCheckTimeout
	}
}
