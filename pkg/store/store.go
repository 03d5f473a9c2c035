package store

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/crucible/pkg/experiment"
)

var (
	// ErrNotFound is returned by Load for an unknown experiment ID.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStale is returned by Save when the stored snapshot has the same or
	// a newer revision.
	ErrStale = errors.New("stale snapshot")

	// ErrLocked is returned when another process holds the store.
	ErrLocked = errors.New("store is in use by another process")
)

// Store persists experiment snapshots. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save inserts the snapshot or replaces an older revision of it. A
	// snapshot whose revision is not newer than the stored one is refused
	// with ErrStale.
	Save(ctx context.Context, s experiment.Snapshot) error

	// Load returns the snapshot for id, or ErrNotFound.
	Load(ctx context.Context, id string) (experiment.Snapshot, error)

	// List returns snapshots matching the filter ordered by creation time
	// and then ID.
	List(ctx context.Context, filter Filter) ([]experiment.Snapshot, error)

	// Delete removes a snapshot. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	State   experiment.State
	Creator string
	Type    experiment.Type
}

// Matches reports whether a snapshot passes the filter.
func (f Filter) Matches(s experiment.Snapshot) bool {
	if f.State != "" && s.State != f.State {
		return false
	}
	if f.Creator != "" && s.Definition.Creator != f.Creator {
		return false
	}
	if f.Type != "" && s.Definition.Type != f.Type {
		return false
	}
	return true
}

// StorageError wraps a backend failure.
type StorageError struct {
	Backend   string // "memory" or "sqlite"
	Operation string // "save", "load", "list", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("store error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

func staleError(s experiment.Snapshot, stored int64) error {
	return fmt.Errorf("%w: %s revision %d, stored revision %d", ErrStale, s.ID, s.Revision, stored)
}
