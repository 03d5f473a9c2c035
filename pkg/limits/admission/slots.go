package admission

import (
	"errors"
	"sync/atomic"
)

// ErrNoSlotHeld is returned by Release when no slot is currently held.
var ErrNoSlotHeld = errors.New("release without a held admission slot")

// Slots limits the number of simultaneously running experiments.
//
// # Algorithm
//
//  1. Load the counter
//  2. If it has reached the limit, deny
//  3. Otherwise compare-and-swap it to counter+1, retrying on contention
//
// The counter never transiently exceeds the limit, so Active is always an
// exact view of granted slots.
//
// # Thread Safety
//
// Slots is lock-free. A caller that needs a check-then-act sequence spanning
// other state (for example, acquiring a slot and then transitioning an
// experiment) must provide its own mutual exclusion around that sequence.
type Slots struct {
	limit  int64
	active int64
}

// NewSlots creates a gate allowing up to limit concurrent holders.
// A non-positive limit denies every acquisition.
func NewSlots(limit int) *Slots {
	return &Slots{limit: int64(limit)}
}

// TryAcquire takes a slot if one is free. It reports whether a slot was taken.
func (s *Slots) TryAcquire() bool {
	for {
		current := atomic.LoadInt64(&s.active)
		if current >= atomic.LoadInt64(&s.limit) {
			return false
		}
		if atomic.CompareAndSwapInt64(&s.active, current, current+1) {
			return true
		}
	}
}

// Release returns a held slot.
func (s *Slots) Release() error {
	for {
		current := atomic.LoadInt64(&s.active)
		if current <= 0 {
			return ErrNoSlotHeld
		}
		if atomic.CompareAndSwapInt64(&s.active, current, current-1) {
			return nil
		}
	}
}

// Active returns the number of held slots.
func (s *Slots) Active() int {
	return int(atomic.LoadInt64(&s.active))
}

// Limit returns the configured ceiling.
func (s *Slots) Limit() int {
	return int(atomic.LoadInt64(&s.limit))
}

// Remaining returns the number of free slots, never negative.
func (s *Slots) Remaining() int {
	remaining := atomic.LoadInt64(&s.limit) - atomic.LoadInt64(&s.active)
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

// Set overwrites the held count. It is meant for rebuilding state from
// persisted experiments at startup, where the recovered count may exceed a
// ceiling that has since been lowered; new acquisitions are then denied
// until enough slots are released.
func (s *Slots) Set(active int) {
	if active < 0 {
		active = 0
	}
	atomic.StoreInt64(&s.active, int64(active))
}
