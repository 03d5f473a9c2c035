// Package config loads, validates and shares Crucible's configuration.
//
// Configuration is read from YAML on top of built-in defaults, then
// CRUCIBLE_SECTION_FIELD environment variables are applied, then the result
// is validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("crucible.yaml")
//
// For example CRUCIBLE_POLICY_MAX_CONCURRENT overrides policy.max_concurrent
// and CRUCIBLE_CATALOG_SKILLS takes a comma-separated list.
//
// # Validation
//
// Validate collects every problem rather than stopping at the first:
//
//	configuration validation failed with 2 errors:
//	  - policy.overage_action: invalid overage action "stop": must be 'flag' or 'cancel'
//	  - catalog.path: catalog path is required when mode is 'file'
//
// # Example Configuration
//
//	server:
//	  listen_address: "127.0.0.1:8080"
//
//	policy:
//	  max_budget: 100
//	  max_concurrent: 5
//	  max_duration: 2h
//	  overage_action: flag
//
//	catalog:
//	  mode: file
//	  path: ./catalog.yaml
//	  watch: true
//
//	promotion:
//	  backend: nats
//	  nats:
//	    url: nats://localhost:4222
//
// # Singleton
//
// The CLI initializes a process-wide configuration once with Initialize and
// reads it with GetConfig. Library code takes an explicit *Config instead.
package config
