package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// File is a catalog backed by a YAML document on disk. Lookups are served from
// the last successfully parsed snapshot; a reload that fails to parse leaves
// the previous snapshot in place.
type File struct {
	path   string
	logger *slog.Logger
	data   *Static

	mu       sync.RWMutex
	loaded   bool
	lastErr  error
	onReload func(err error, skills, tools int)
}

// NewFile creates a file catalog and performs the initial load. A failed
// initial load is not fatal: lookups report UnavailableError until a reload
// succeeds.
func NewFile(path string, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.Default()
	}
	f := &File{
		path:   path,
		logger: logger.With("component", "catalog.file"),
		data:   &Static{},
	}
	if err := f.Reload(); err != nil {
		f.logger.Warn("Initial catalog load failed", "path", path, "error", err)
	}
	return f
}

// Path returns the catalog file path.
func (f *File) Path() string {
	return f.path
}

// OnReload registers fn to run after every reload attempt, with the entry
// counts of the snapshot now being served.
func (f *File) OnReload(fn func(err error, skills, tools int)) {
	f.mu.Lock()
	f.onReload = fn
	f.mu.Unlock()
}

// Counts returns the number of skills and tools currently served.
func (f *File) Counts() (skills, tools int) {
	return f.data.Counts()
}

// Reload re-reads the catalog file.
func (f *File) Reload() error {
	doc, err := readDocument(f.path)
	if err != nil {
		f.mu.Lock()
		f.lastErr = err
		hook := f.onReload
		f.mu.Unlock()
		if hook != nil {
			skills, tools := f.data.Counts()
			hook(err, skills, tools)
		}
		return err
	}

	f.data.Replace(doc.Skills, doc.Tools)

	f.mu.Lock()
	f.loaded = true
	f.lastErr = nil
	hook := f.onReload
	f.mu.Unlock()

	skills, tools := f.data.Counts()
	f.logger.Info("Catalog loaded", "path", f.path, "skills", skills, "tools", tools)
	if hook != nil {
		hook(nil, skills, tools)
	}
	return nil
}

// SkillExists implements Validator.
func (f *File) SkillExists(ctx context.Context, name string) (bool, error) {
	if err := f.ready(KindSkill, name); err != nil {
		return false, err
	}
	return f.data.SkillExists(ctx, name)
}

// ToolExists implements Validator.
func (f *File) ToolExists(ctx context.Context, name string) (bool, error) {
	if err := f.ready(KindTool, name); err != nil {
		return false, err
	}
	return f.data.ToolExists(ctx, name)
}

// Check reports whether the catalog has a usable snapshot. It is suitable for
// registration as a readiness check.
func (f *File) Check(ctx context.Context) error {
	return f.ready("", "")
}

func (f *File) ready(kind Kind, name string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.loaded {
		return NewUnavailableError("file", kind, name, f.lastErr)
	}
	return nil
}

// Watch reloads the catalog whenever the file changes. It blocks until ctx is
// cancelled.
func (f *File) Watch(ctx context.Context, debounce time.Duration) error {
	w, err := NewWatcher(f.path, debounce, f.logger)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()
	return w.Watch(ctx, f.Reload)
}

func readDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	return &doc, nil
}
