package cli

import (
	"errors"
	"fmt"

	"mercator-hq/crucible/pkg/catalog"
	"mercator-hq/crucible/pkg/experiment"
	"mercator-hq/crucible/pkg/store"
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// Process exit codes.
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitValidation         = 2
	ExitNotFound           = 3
	ExitInvalidState       = 4
	ExitAdmissionDenied    = 5
	ExitCatalogUnavailable = 6
	ExitStoreLocked        = 75 // EX_TEMPFAIL
	ExitConfig             = 78
)

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	var cfgErr *ConfigError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.Is(err, experiment.ErrValidation):
		return ExitValidation
	case errors.Is(err, experiment.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, experiment.ErrInvalidState):
		return ExitInvalidState
	case errors.Is(err, experiment.ErrAdmissionDenied):
		return ExitAdmissionDenied
	case errors.Is(err, catalog.ErrUnavailable):
		return ExitCatalogUnavailable
	case errors.Is(err, store.ErrLocked):
		return ExitStoreLocked
	default:
		return ExitFailure
	}
}
