package logging

import (
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/crucible/pkg/config"
)

func newTestRedactor(t *testing.T, custom ...config.RedactPattern) *Redactor {
	t.Helper()
	r, err := NewRedactor(custom)
	if err != nil {
		t.Fatalf("NewRedactor() error = %v", err)
	}
	return r
}

func TestRedactor_RedactString(t *testing.T) {
	r := newTestRedactor(t)

	tests := []struct {
		name    string
		input   string
		want    string
		notWant string
	}{
		{name: "bearer token", input: "Authorization: Bearer abc.def-123", want: "Bearer ***", notWant: "abc.def"},
		{name: "api key", input: "using sk-abcdef123456", want: "sk-***", notWant: "abcdef123456"},
		{name: "password", input: "password=hunter2", want: "password: ***", notWant: "hunter2"},
		{name: "email", input: "creator alice@example.com", want: "a***@example.com", notWant: "alice@"},
		{name: "plain text", input: "experiment completed", want: "experiment completed"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactString(tt.input)
			if !strings.Contains(got, tt.want) {
				t.Errorf("RedactString(%q) = %q, want to contain %q", tt.input, got, tt.want)
			}
			if tt.notWant != "" && strings.Contains(got, tt.notWant) {
				t.Errorf("RedactString(%q) = %q, leaked %q", tt.input, got, tt.notWant)
			}
		})
	}
}

func TestRedactor_CustomPattern(t *testing.T) {
	r := newTestRedactor(t, config.RedactPattern{
		Name:        "sandbox_id",
		Pattern:     `sbx-[0-9]+`,
		Replacement: "sbx-***",
	})

	if got := r.RedactString("crashed in sbx-99812"); got != "crashed in sbx-***" {
		t.Errorf("RedactString() = %q", got)
	}
}

func TestRedactor_ReplaceAttr(t *testing.T) {
	r := newTestRedactor(t)

	tests := []struct {
		name   string
		groups []string
		attr   slog.Attr
		want   string
	}{
		{name: "sensitive key long value", attr: slog.String("api_token", "abcdefghijkl"), want: "abcd***"},
		{name: "sensitive key short value", attr: slog.String("secret", "short"), want: "***"},
		{name: "sensitive key non-string", attr: slog.Int("password", 1234), want: "***"},
		{name: "plain value scanned", attr: slog.String("header", "Bearer tok"), want: "Bearer ***"},
		{name: "message scanned", attr: slog.String(slog.MessageKey, "key sk-abc123"), want: "key sk-***"},
		{name: "grouped level key scanned", groups: []string{"g"}, attr: slog.String(slog.LevelKey, "sk-abc"), want: "sk-***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ReplaceAttr(tt.groups, tt.attr)
			if got.Value.String() != tt.want {
				t.Errorf("ReplaceAttr() = %q, want %q", got.Value.String(), tt.want)
			}
		})
	}

	level := slog.Any(slog.LevelKey, slog.LevelInfo)
	if got := r.ReplaceAttr(nil, level); !got.Equal(level) {
		t.Errorf("built-in level attribute modified: %v", got)
	}
}
