package config

import "time"

// Config is the root configuration structure for Crucible.
type Config struct {
	// Server contains HTTP API server configuration.
	Server ServerConfig `yaml:"server"`

	// Policy contains the static governance ceilings.
	Policy PolicyConfig `yaml:"policy"`

	// Catalog selects where skill and tool registries are looked up.
	Catalog CatalogConfig `yaml:"catalog"`

	// Store contains experiment persistence configuration.
	Store StoreConfig `yaml:"store"`

	// Evidence contains audit trail configuration.
	Evidence EvidenceConfig `yaml:"evidence"`

	// Promotion configures delivery of promoted configurations.
	Promotion PromotionConfig `yaml:"promotion"`

	// Telemetry contains logging, metrics, tracing and health configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// ListenAddress is the host:port the API listens on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes caps request header size.
	// Default: 1MB
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes caps request body size.
	// Default: 1MB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// RetryAfter is advertised in the Retry-After header on admission denials.
	// Default: 5s
	RetryAfter time.Duration `yaml:"retry_after"`
}

// PolicyConfig contains the static policy. A zero ceiling disables that
// check.
type PolicyConfig struct {
	// MaxBudget is the largest budget a single experiment may declare.
	MaxBudget float64 `yaml:"max_budget"`

	// MaxConcurrent is the number of experiments that may run at once.
	// Default: 5
	MaxConcurrent int `yaml:"max_concurrent"`

	// MaxDuration is the longest time limit an experiment may declare.
	MaxDuration time.Duration `yaml:"max_duration"`

	// AlertThreshold is the budget fraction that raises a budget alert.
	// Default: 0.8
	AlertThreshold float64 `yaml:"alert_threshold"`

	// OverageAction is "flag" (record and continue) or "cancel" (force
	// cancel the experiment). Default: "flag"
	OverageAction string `yaml:"overage_action"`
}

// CatalogConfig configures the catalog validator.
type CatalogConfig struct {
	// Mode is "static", "file" or "remote".
	// Default: "static"
	Mode string `yaml:"mode"`

	// Skills and Tools seed the static catalog.
	Skills []string `yaml:"skills"`
	Tools  []string `yaml:"tools"`

	// Path is the YAML catalog file used in file mode.
	Path string `yaml:"path"`

	// Watch reloads the catalog file when it changes.
	Watch bool `yaml:"watch"`

	// DebounceInterval collapses bursts of file events.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// URL is the base URL of the remote registry.
	URL string `yaml:"url"`

	// Timeout bounds a single remote lookup.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig configures experiment persistence.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend.
	SQLite StoreSQLiteConfig `yaml:"sqlite"`
}

// StoreSQLiteConfig configures the experiment database.
type StoreSQLiteConfig struct {
	// Path is the database file.
	// Default: "data/experiments.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// LockTimeout is how long to wait for another process to release the
	// store. A running server holds it for its whole lifetime.
	// Default: 5s
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// EvidenceConfig configures the evidence audit trail.
type EvidenceConfig struct {
	// Enabled controls whether evidence is recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend is "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder configures the async writer.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention configures pruning.
	Retention RetentionConfig `yaml:"retention"`

	// Query configures query limits.
	Query QueryConfig `yaml:"query"`

	// Export configures exporters.
	Export ExportConfig `yaml:"export"`
}

// SQLiteConfig configures the evidence database.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/evidence.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig configures the evidence recorder.
type RecorderConfig struct {
	// AsyncBuffer is the write channel capacity.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds enqueueing and each storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig configures evidence pruning.
type RetentionConfig struct {
	// Days is how long evidence is kept. 0 keeps it forever.
	// Default: 90
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression. Empty disables scheduled pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete writes pruned records to ArchivePath.
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath receives archive files.
	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`

	// MaxRecords caps the number of stored records. 0 is unlimited.
	MaxRecords int64 `yaml:"max_records"`
}

// QueryConfig configures evidence queries.
type QueryConfig struct {
	// DefaultLimit applies when a query gives no limit.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit caps a single page.
	// Default: 10000
	MaxLimit int `yaml:"max_limit"`

	// Timeout bounds a single query.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// ExportConfig configures evidence exporters.
type ExportConfig struct {
	// JSONPretty indents JSON exports.
	// Default: true
	JSONPretty bool `yaml:"json_pretty"`

	// CSVIncludeHeader writes a header row in CSV exports.
	// Default: true
	CSVIncludeHeader bool `yaml:"csv_include_header"`
}

// PromotionConfig configures the promotion publisher.
type PromotionConfig struct {
	// Backend is "log" or "nats".
	// Default: "log"
	Backend string `yaml:"backend"`

	// NATS configures the NATS publisher.
	NATS NATSConfig `yaml:"nats"`
}

// NATSConfig configures the NATS connection used for promotions.
type NATSConfig struct {
	// URL is the server URL, e.g. "nats://localhost:4222".
	URL string `yaml:"url"`

	// SubjectPrefix is prepended to the experiment ID.
	// Default: "crucible.promotions"
	SubjectPrefix string `yaml:"subject_prefix"`

	// Timeout bounds connecting and each publish.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`

	// MaxReconnects is the number of reconnect attempts.
	// Default: 5
	MaxReconnects int `yaml:"max_reconnects"`

	// ReconnectWait is the delay between reconnect attempts.
	// Default: 1s
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`

	// RedactPII masks sensitive values in log output.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns adds custom redaction rules.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern is a custom log redaction rule.
type RedactPattern struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains Prometheus configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the scrape endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "crucible"
	Namespace string `yaml:"namespace"`

	// Subsystem follows the namespace in metric names.
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets are HTTP latency histogram buckets in seconds.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`

	// QualityScoreBuckets are quality score histogram buckets.
	QualityScoreBuckets []float64 `yaml:"quality_score_buckets"`
}

// TracingConfig contains OpenTelemetry configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	Enabled bool `yaml:"enabled"`

	// Sampler is "always", "never" or "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is used by the ratio sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter is "otlp", or "none" to sample spans for log correlation
	// without exporting them.
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP collector address.
	Endpoint string `yaml:"endpoint"`

	// ServiceName identifies this process in traces.
	// Default: "crucible"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter options.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter options.
type OTLPConfig struct {
	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the liveness probe path.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness probe path.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the version endpoint path.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout bounds each component check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
