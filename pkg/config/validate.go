package config

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "policy.max_concurrent").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError carries every field error found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the whole configuration and returns a ValidationError
// listing every problem, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validatePolicy(&cfg.Policy)...)
	errs = append(errs, validateCatalog(&cfg.Catalog)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateEvidence(&cfg.Evidence)...)
	errs = append(errs, validatePromotion(&cfg.Promotion)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: must be host:port", cfg.ListenAddress),
		})
	}

	for field, d := range map[string]time.Duration{
		"server.read_timeout":     cfg.ReadTimeout,
		"server.write_timeout":    cfg.WriteTimeout,
		"server.idle_timeout":     cfg.IdleTimeout,
		"server.shutdown_timeout": cfg.ShutdownTimeout,
		"server.retry_after":      cfg.RetryAfter,
	} {
		if d < 0 {
			errs = append(errs, FieldError{Field: field, Message: "must be non-negative"})
		}
	}

	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "must be non-negative"})
	}
	return sortFieldErrors(errs)
}

func validatePolicy(cfg *PolicyConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxBudget < 0 {
		errs = append(errs, FieldError{Field: "policy.max_budget", Message: "max budget must be non-negative"})
	}
	if cfg.MaxConcurrent < 0 {
		errs = append(errs, FieldError{Field: "policy.max_concurrent", Message: "max concurrent must be non-negative"})
	}
	if cfg.MaxDuration < 0 {
		errs = append(errs, FieldError{Field: "policy.max_duration", Message: "max duration must be non-negative"})
	}
	if cfg.AlertThreshold < 0 || cfg.AlertThreshold > 1.0 {
		errs = append(errs, FieldError{Field: "policy.alert_threshold", Message: "alert threshold must be between 0.0 and 1.0"})
	}
	switch cfg.OverageAction {
	case "flag", "cancel":
	default:
		errs = append(errs, FieldError{
			Field:   "policy.overage_action",
			Message: fmt.Sprintf("invalid overage action %q: must be 'flag' or 'cancel'", cfg.OverageAction),
		})
	}
	return errs
}

func validateCatalog(cfg *CatalogConfig) []FieldError {
	var errs []FieldError

	switch cfg.Mode {
	case "static":
	case "file":
		if cfg.Path == "" {
			errs = append(errs, FieldError{Field: "catalog.path", Message: "catalog path is required when mode is 'file'"})
		}
	case "remote":
		if cfg.URL == "" {
			errs = append(errs, FieldError{Field: "catalog.url", Message: "catalog URL is required when mode is 'remote'"})
		} else if u, err := url.Parse(cfg.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{Field: "catalog.url", Message: fmt.Sprintf("invalid catalog URL %q", cfg.URL)})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "catalog.mode",
			Message: fmt.Sprintf("invalid catalog mode %q: must be 'static', 'file', or 'remote'", cfg.Mode),
		})
	}

	if cfg.Watch && cfg.Mode != "file" {
		errs = append(errs, FieldError{Field: "catalog.watch", Message: "watch is only supported when mode is 'file'"})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "catalog.timeout", Message: "must be non-negative"})
	}
	return errs
}

func validateStore(cfg *StoreConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "store.sqlite.path", Message: "SQLite path is required when backend is 'sqlite'"})
		}
		if cfg.SQLite.LockTimeout < 0 {
			errs = append(errs, FieldError{Field: "store.sqlite.lock_timeout", Message: "must not be negative"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "store.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}
	return errs
}

func validateEvidence(cfg *EvidenceConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "evidence.sqlite.path", Message: "SQLite path is required when backend is 'sqlite'"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "evidence.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "evidence.retention.days", Message: "retention days must be non-negative"})
	}
	if cfg.Retention.Days > 3650 {
		errs = append(errs, FieldError{Field: "evidence.retention.days", Message: "retention days exceeds reasonable limit (3650 days / 10 years)"})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "evidence.retention.max_records", Message: "max records must be non-negative"})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "evidence.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Retention.PruneSchedule, err),
			})
		}
	}
	if cfg.Retention.ArchiveBeforeDelete && cfg.Retention.ArchivePath == "" {
		errs = append(errs, FieldError{Field: "evidence.retention.archive_path", Message: "archive path is required when archive_before_delete is set"})
	}

	if cfg.Recorder.AsyncBuffer < 0 {
		errs = append(errs, FieldError{Field: "evidence.recorder.async_buffer", Message: "must be non-negative"})
	}
	if cfg.Query.DefaultLimit > cfg.Query.MaxLimit {
		errs = append(errs, FieldError{Field: "evidence.query.default_limit", Message: "default limit must not exceed max limit"})
	}
	return errs
}

func validatePromotion(cfg *PromotionConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "log":
	case "nats":
		if cfg.NATS.URL == "" {
			errs = append(errs, FieldError{Field: "promotion.nats.url", Message: "NATS URL is required when backend is 'nats'"})
		}
		if strings.ContainsAny(cfg.NATS.SubjectPrefix, " *>") {
			errs = append(errs, FieldError{Field: "promotion.nats.subject_prefix", Message: "subject prefix must not contain spaces or wildcards"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "promotion.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'log' or 'nats'", cfg.Backend),
		})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with /"})
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Exporter {
		case "otlp":
			if cfg.Tracing.Endpoint == "" {
				errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "tracing endpoint is required when the otlp exporter is enabled"})
			}
		case "none":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.exporter",
				Message: fmt.Sprintf("invalid exporter %q: must be 'otlp' or 'none'", cfg.Tracing.Exporter),
			})
		}
	}
	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0.0 and 1.0"})
	}

	if cfg.Health.Enabled {
		for field, path := range map[string]string{
			"telemetry.health.liveness_path":  cfg.Health.LivenessPath,
			"telemetry.health.readiness_path": cfg.Health.ReadinessPath,
			"telemetry.health.version_path":   cfg.Health.VersionPath,
		} {
			if !strings.HasPrefix(path, "/") {
				errs = append(errs, FieldError{Field: field, Message: "path must start with /"})
			}
		}
		if cfg.Health.CheckTimeout < 0 || cfg.Health.CheckTimeout > 60*time.Second {
			errs = append(errs, FieldError{Field: "telemetry.health.check_timeout", Message: "check timeout must be between 0 and 60s"})
		}
	}
	return sortFieldErrors(errs)
}

// sortFieldErrors orders errors by field so output is stable across map
// iteration.
func sortFieldErrors(errs []FieldError) []FieldError {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}
