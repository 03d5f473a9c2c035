package main

import (
	"runtime"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = origVersion, origCommit })
	Version, GitCommit = "0.1.0-test", "abc123"

	tests := []struct {
		format string
		want   []string
	}{
		{format: "text", want: []string{"Crucible 0.1.0-test", "Git Commit: abc123", runtime.Version()}},
		{format: "json", want: []string{`"version": "0.1.0-test"`, `"commit": "abc123"`}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			outputFormat = tt.format
			t.Cleanup(func() { outputFormat = "text" })

			out, err := run(t, versionCmd.RunE)
			if err != nil {
				t.Fatalf("version: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestCommandTree(t *testing.T) {
	want := []string{
		"serve", "version", "completion",
		"experiment create", "experiment submit", "experiment start",
		"experiment record", "experiment complete", "experiment fail",
		"experiment cancel", "experiment note", "experiment promote",
		"experiment get", "experiment list", "experiment stats",
		"evidence query", "evidence export", "evidence prune",
		"catalog check", "config validate",
	}
	for _, path := range want {
		cmd, _, err := rootCmd.Find(strings.Fields(path))
		if err != nil || cmd.Name() != strings.Fields(path)[len(strings.Fields(path))-1] {
			t.Errorf("command %q not registered", path)
		}
	}
}
