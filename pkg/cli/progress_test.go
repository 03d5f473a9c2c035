package cli

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestProgress(buf *bytes.Buffer) *SimpleProgress {
	p := NewProgressReporter(buf, "Exporting").(*SimpleProgress)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	p.now = func() time.Time {
		calls++
		return start.Add(time.Duration(calls) * time.Second)
	}
	return p
}

func TestSimpleProgressBasic(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := newTestProgress(buf)

	progress.Start(100)
	progress.Update(50)
	progress.Finish()

	output := buf.String()
	for _, want := range []string{"Exporting:", "50.0%", "(50/100)", "100.0%", "records/s"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("Finish() should end the line")
	}
}

func TestSimpleProgressZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := newTestProgress(buf)

	progress.Start(0)
	progress.Update(0)
	progress.Finish()

	if got := buf.String(); got != "\n" {
		t.Errorf("output = %q, want just the final newline", got)
	}
}

func TestSimpleProgressClampsOvershoot(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := newTestProgress(buf)

	progress.Start(10)
	progress.Update(25)

	if !strings.Contains(buf.String(), "(10/10)") {
		t.Errorf("output = %q, want clamped count", buf.String())
	}
}

func TestSimpleProgressError(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := newTestProgress(buf)

	progress.Start(100)
	progress.Error(fmt.Errorf("disk full"))

	if !strings.Contains(buf.String(), "✗ Error: disk full") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSimpleProgressConcurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "Exporting")
	progress.Start(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				progress.Update(int64(start*100 + j))
			}
		}(i)
	}
	wg.Wait()
	progress.Finish()

	if !strings.Contains(buf.String(), "(1000/1000)") {
		t.Error("Finish() should report completion")
	}
}

func TestSimpleProgressThrottlesRedraws(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgressReporter(buf, "Pruning").(*SimpleProgress)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return start }

	p.Start(100)
	for i := int64(1); i <= 50; i++ {
		p.Update(i)
	}

	if got := strings.Count(buf.String(), "Pruning:"); got != 1 {
		t.Errorf("drew %d times within one interval, want 1", got)
	}

	p.now = func() time.Time { return start.Add(progressInterval) }
	p.Update(60)
	if !strings.Contains(buf.String(), "(60/100)") {
		t.Errorf("output = %q, want a redraw after the interval", buf.String())
	}
}
