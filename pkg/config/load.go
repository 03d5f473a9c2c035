package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CRUCIBLE_"

// LoadConfig loads configuration from a YAML file on top of Default, applies
// remaining defaults and validates the result. Environment variables are not
// consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and applies defaults. Unknown keys
// are rejected. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// CRUCIBLE_SECTION_FIELD environment overrides, which take precedence over
// the file. An empty path loads defaults only.
//
// The loading sequence is:
//  1. Start from defaults
//  2. Decode YAML from file
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg = Default()
	} else {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, readErr)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies CRUCIBLE_* overrides. A malformed value is an
// error rather than being silently ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []FieldError

	str := func(key string, dst *string) {
		if val := os.Getenv(EnvPrefix + key); val != "" {
			*dst = val
		}
	}
	list := func(key string, dst *[]string) {
		if val := os.Getenv(EnvPrefix + key); val != "" {
			var out []string
			for _, item := range strings.Split(val, ",") {
				if item = strings.TrimSpace(item); item != "" {
					out = append(out, item)
				}
			}
			*dst = out
		}
	}
	boolean := func(key string, dst *bool) {
		if val := os.Getenv(EnvPrefix + key); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + key, Message: fmt.Sprintf("invalid boolean %q", val)})
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if val := os.Getenv(EnvPrefix + key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + key, Message: fmt.Sprintf("invalid integer %q", val)})
				return
			}
			*dst = i
		}
	}
	float := func(key string, dst *float64) {
		if val := os.Getenv(EnvPrefix + key); val != "" {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + key, Message: fmt.Sprintf("invalid number %q", val)})
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if val := os.Getenv(EnvPrefix + key); val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + key, Message: fmt.Sprintf("invalid duration %q", val)})
				return
			}
			*dst = d
		}
	}

	// Server overrides
	str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Policy overrides
	float("POLICY_MAX_BUDGET", &cfg.Policy.MaxBudget)
	integer("POLICY_MAX_CONCURRENT", &cfg.Policy.MaxConcurrent)
	duration("POLICY_MAX_DURATION", &cfg.Policy.MaxDuration)
	float("POLICY_ALERT_THRESHOLD", &cfg.Policy.AlertThreshold)
	str("POLICY_OVERAGE_ACTION", &cfg.Policy.OverageAction)

	// Catalog overrides
	str("CATALOG_MODE", &cfg.Catalog.Mode)
	list("CATALOG_SKILLS", &cfg.Catalog.Skills)
	list("CATALOG_TOOLS", &cfg.Catalog.Tools)
	str("CATALOG_PATH", &cfg.Catalog.Path)
	boolean("CATALOG_WATCH", &cfg.Catalog.Watch)
	str("CATALOG_URL", &cfg.Catalog.URL)
	duration("CATALOG_TIMEOUT", &cfg.Catalog.Timeout)

	// Store overrides
	str("STORE_BACKEND", &cfg.Store.Backend)
	str("STORE_SQLITE_PATH", &cfg.Store.SQLite.Path)
	duration("STORE_SQLITE_LOCK_TIMEOUT", &cfg.Store.SQLite.LockTimeout)

	// Evidence overrides
	boolean("EVIDENCE_ENABLED", &cfg.Evidence.Enabled)
	str("EVIDENCE_BACKEND", &cfg.Evidence.Backend)
	str("EVIDENCE_SQLITE_PATH", &cfg.Evidence.SQLite.Path)
	integer("EVIDENCE_RETENTION_DAYS", &cfg.Evidence.Retention.Days)
	str("EVIDENCE_RETENTION_PRUNE_SCHEDULE", &cfg.Evidence.Retention.PruneSchedule)

	// Promotion overrides
	str("PROMOTION_BACKEND", &cfg.Promotion.Backend)
	str("PROMOTION_NATS_URL", &cfg.Promotion.NATS.URL)
	str("PROMOTION_NATS_SUBJECT_PREFIX", &cfg.Promotion.NATS.SubjectPrefix)

	// Telemetry overrides
	str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	boolean("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	float("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
