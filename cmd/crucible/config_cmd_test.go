package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/crucible/pkg/cli"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		content  string // empty uses defaults
		show     bool
		wantCode int
		wantOut  []string
	}{
		{
			name:    "defaults",
			wantOut: []string{"Configuration is valid", "defaults"},
		},
		{
			name:    "show effective",
			content: "policy:\n  max_concurrent: 9\n",
			show:    true,
			wantOut: []string{"max_concurrent: 9", "overage_action: flag"},
		},
		{
			name:     "invalid field",
			content:  "policy:\n  overage_action: explode\n",
			wantCode: cli.ExitConfig,
		},
		{
			name:     "malformed yaml",
			content:  "policy: [\n",
			wantCode: cli.ExitConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupConfig(t, 5)
			if tt.content != "" {
				cfgFile = filepath.Join(t.TempDir(), "crucible.yaml")
				if err := os.WriteFile(cfgFile, []byte(tt.content), 0o600); err != nil {
					t.Fatal(err)
				}
			}
			configFlags.show = tt.show

			out, err := run(t, validateConfig)
			if got := cli.ExitCode(err); got != tt.wantCode {
				t.Fatalf("exit code = %d (%v), want %d", got, err, tt.wantCode)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestCatalogCheck(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{name: "known skill", args: []string{"skill", "summarize"}, wantOut: `"exists": true`},
		{name: "known tool", args: []string{"tool", "web_search"}, wantOut: `"exists": true`},
		{name: "unknown skill", args: []string{"skill", "web_search"}, wantCode: cli.ExitValidation, wantOut: `"exists": false`},
		{name: "bad kind", args: []string{"model", "x"}, wantCode: cli.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupConfig(t, 5)
			out, err := run(t, checkCatalog, tt.args...)
			if got := cli.ExitCode(err); got != tt.wantCode {
				t.Fatalf("exit code = %d (%v), want %d", got, err, tt.wantCode)
			}
			if !strings.Contains(out, tt.wantOut) {
				t.Errorf("output %q missing %q", out, tt.wantOut)
			}
		})
	}
}
