package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mercator-hq/crucible/pkg/experiment"
)

// MemoryStore keeps snapshots in a map.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]experiment.Snapshot
	closed    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]experiment.Snapshot)}
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, s experiment.Snapshot) error {
	if s.ID == "" {
		return NewStorageError("memory", "save", fmt.Errorf("snapshot id cannot be empty"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return NewStorageError("memory", "save", fmt.Errorf("store is closed"))
	}
	if cur, ok := m.snapshots[s.ID]; ok && cur.Revision >= s.Revision {
		return NewStorageError("memory", "save", staleError(s, cur.Revision))
	}
	m.snapshots[s.ID] = s.Clone()
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context, id string) (experiment.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[id]
	if !ok {
		return experiment.Snapshot{}, ErrNotFound
	}
	return s.Clone(), nil
}

// List implements Store.
func (m *MemoryStore) List(ctx context.Context, filter Filter) ([]experiment.Snapshot, error) {
	m.mu.RLock()
	out := make([]experiment.Snapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		if filter.Matches(s) {
			out = append(out, s.Clone())
		}
	}
	m.mu.RUnlock()

	SortSnapshots(out)
	return out, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, id)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SortSnapshots orders snapshots by creation time, then ID.
func SortSnapshots(snapshots []experiment.Snapshot) {
	sort.SliceStable(snapshots, func(i, j int) bool {
		a, b := snapshots[i], snapshots[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
