package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports progress for long-running operations.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

const (
	progressBarWidth = 40

	// progressInterval throttles redraws between Start and Finish.
	progressInterval = 100 * time.Millisecond
)

// SimpleProgress draws a single-line progress bar, redrawing it in place.
type SimpleProgress struct {
	mu       sync.Mutex
	label    string
	total    int64
	current  int64
	started  time.Time
	lastDraw time.Time
	writer   io.Writer
	now      func() time.Time
}

// NewProgressReporter creates a progress reporter that writes to w, or
// os.Stderr when w is nil. label prefixes the bar, e.g. "Exporting".
func NewProgressReporter(w io.Writer, label string) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	if label == "" {
		label = "Progress"
	}
	return &SimpleProgress{
		label:  label,
		writer: w,
		now:    time.Now,
	}
}

// Start resets the reporter for total items and draws the empty bar.
func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.started = p.now()
	p.draw(p.started)
}

// Update records that current items are done. Counts past the total are
// clamped.
func (p *SimpleProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = min(current, p.total)
	if now := p.now(); now.Sub(p.lastDraw) >= progressInterval {
		p.draw(now)
	}
}

// Finish draws the completed bar and ends the line.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.draw(p.now())
	fmt.Fprintln(p.writer)
}

// Error ends the bar line and prints err.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\n✗ Error: %v\n", err)
}

// draw renders the bar. Callers hold p.mu.
func (p *SimpleProgress) draw(now time.Time) {
	p.lastDraw = now
	if p.total <= 0 {
		return
	}

	fraction := float64(p.current) / float64(p.total)
	filled := int(fraction * progressBarWidth)

	var rate float64
	if elapsed := now.Sub(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.current) / elapsed
	}

	fmt.Fprintf(p.writer, "\r%s: [%s%s] %.1f%% (%d/%d) %.1f records/s",
		p.label,
		strings.Repeat("█", filled),
		strings.Repeat("░", progressBarWidth-filled),
		fraction*100, p.current, p.total, rate)
}
