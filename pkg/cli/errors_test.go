package cli

import (
	"errors"
	"fmt"
	"testing"

	"mercator-hq/crucible/pkg/catalog"
	"mercator-hq/crucible/pkg/experiment"
	"mercator-hq/crucible/pkg/store"
)

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "server.listen_address",
		Message: "missing required field",
	}

	expected := "config error in server.listen_address: missing required field"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("field", "message")
	if err.Field != "field" {
		t.Errorf("Field = %q, want %q", err.Field, "field")
	}
	if err.Message != "message" {
		t.Errorf("Message = %q, want %q", err.Message, "message")
	}
}

func TestCommandError(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := &CommandError{
		Command: "run",
		Err:     underlyingErr,
	}

	expected := "command run failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := &CommandError{
		Command: "run",
		Err:     underlyingErr,
	}

	unwrapped := err.Unwrap()
	if unwrapped != underlyingErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, underlyingErr)
	}

	// Test with errors.Is
	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is() should work with CommandError.Unwrap()")
	}
}

func TestNewCommandError(t *testing.T) {
	underlyingErr := errors.New("test")
	err := NewCommandError("command", underlyingErr)

	if err.Command != "command" {
		t.Errorf("Command = %q, want %q", err.Command, "command")
	}
	if err.Err != underlyingErr {
		t.Errorf("Err = %v, want %v", err.Err, underlyingErr)
	}
}

func TestConfigErrorWithoutField(t *testing.T) {
	err := NewConfigError("", "failed to load config: no such file")
	if got, want := err.Error(), "config error: failed to load config: no such file"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitFailure},
		{"config", NewConfigError("server", "bad"), ExitConfig},
		{"validation", &experiment.ValidationError{Violations: []experiment.Violation{{Field: "name", Message: "is required"}}}, ExitValidation},
		{"not found", experiment.NewNotFoundError("exp-1"), ExitNotFound},
		{"invalid state", NewCommandError("promote", &experiment.InvalidStateError{ID: "exp-1", Op: "promote", State: experiment.StateDraft}), ExitInvalidState},
		{"admission denied", NewCommandError("start", &experiment.AdmissionDeniedError{ID: "exp-1", Active: 2, Limit: 2}), ExitAdmissionDenied},
		{"store locked", fmt.Errorf("failed to open experiment store: %w", store.ErrLocked), ExitStoreLocked},
		{"catalog unavailable", catalog.NewUnavailableError("remote", catalog.KindSkill, "summarize", errors.New("timeout")), ExitCatalogUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
