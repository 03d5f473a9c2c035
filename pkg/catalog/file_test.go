package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeCatalog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
}

func TestFile_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, path, "skills:\n  - summarize\ntools:\n  - web_search\n")

	c := NewFile(path, nil)
	ctx := context.Background()

	if ok, err := c.SkillExists(ctx, "summarize"); err != nil || !ok {
		t.Errorf("SkillExists(summarize) = %v, %v; want true, nil", ok, err)
	}
	if ok, err := c.ToolExists(ctx, "shell"); err != nil || ok {
		t.Errorf("ToolExists(shell) = %v, %v; want false, nil", ok, err)
	}
	if err := c.Check(ctx); err != nil {
		t.Errorf("Check() error = %v", err)
	}
	if skills, tools := c.Counts(); skills != 1 || tools != 1 {
		t.Errorf("Counts() = %d, %d; want 1, 1", skills, tools)
	}
}

func TestFile_MissingFileIsUnavailable(t *testing.T) {
	c := NewFile(filepath.Join(t.TempDir(), "missing.yaml"), nil)

	_, err := c.SkillExists(context.Background(), "summarize")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("SkillExists() error = %v, want ErrUnavailable", err)
	}
	if err := c.Check(context.Background()); err == nil {
		t.Error("Check() should fail before the first successful load")
	}
}

func TestFile_BadReloadKeepsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, path, "skills: [summarize]\n")
	c := NewFile(path, nil)

	writeCatalog(t, path, "skills: [unterminated\n")
	if err := c.Reload(); err == nil {
		t.Fatal("Reload() should fail on malformed YAML")
	}

	ok, err := c.SkillExists(context.Background(), "summarize")
	if err != nil || !ok {
		t.Errorf("SkillExists() after bad reload = %v, %v; want true, nil", ok, err)
	}
}

func TestFile_WatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, path, "skills: [summarize]\n")
	c := NewFile(path, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx, 20*time.Millisecond) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeCatalog(t, path, "skills: [summarize, translate]\n")

	deadline := time.Now().Add(3 * time.Second)
	for {
		ok, _ := c.SkillExists(context.Background(), "translate")
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("catalog was not reloaded after file change")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}

func TestDebouncer_CollapsesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { atomic.AddInt32(&calls, 1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls int32
	d.Trigger(func() { atomic.AddInt32(&calls, 1) })
	d.Stop()
	d.Trigger(func() { atomic.AddInt32(&calls, 1) })

	time.Sleep(120 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("callback ran %d times after Stop, want 0", got)
	}
}

func TestWatcher_StopBeforeWatch(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "catalog.yaml"), 0, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
