package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"mercator-hq/crucible/pkg/config"
)

// setupConfig installs a process-wide configuration backed by temporary
// SQLite files and resets every command flag.
func setupConfig(t *testing.T, maxConcurrent int) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Policy.MaxConcurrent = maxConcurrent
	cfg.Catalog.Mode = "static"
	cfg.Catalog.Skills = []string{"summarize"}
	cfg.Catalog.Tools = []string{"web_search"}
	cfg.Store.SQLite.Path = filepath.Join(dir, "experiments.db")
	cfg.Evidence.SQLite.Path = filepath.Join(dir, "evidence.db")
	cfg.Evidence.Retention.ArchivePath = filepath.Join(dir, "archives")

	config.SetConfig(cfg)
	t.Cleanup(func() { config.SetConfig(nil) })

	experimentFlags = experimentOptions{}
	evidenceFlags = evidenceOptions{}
	configFlags.show = false
	cfgFile, verbose, actorName = "", false, ""
	outputFormat = "json"
	return cfg
}

// run invokes a command's RunE against a detached command that captures
// standard output.
func run(t *testing.T, fn func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetContext(context.Background())
	err := fn(cmd, args)
	return out.String(), err
}

func decode[T any](t *testing.T, data string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return v
}
