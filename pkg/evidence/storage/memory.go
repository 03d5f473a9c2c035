package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"mercator-hq/crucible/pkg/evidence"
)

// MemoryStorage implements evidence.Storage with an in-memory map.
type MemoryStorage struct {
	records map[string]*evidence.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string]*evidence.Record)}
}

// Store implements evidence.Storage.
func (s *MemoryStorage) Store(ctx context.Context, record *evidence.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.records[record.ID] = &recordCopy
	return nil
}

// Query implements evidence.Storage.
func (s *MemoryStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.Record, error) {
	s.mu.RLock()
	results := make([]*evidence.Record, 0)
	for _, record := range s.records {
		if matchesQuery(record, query) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}
	s.mu.RUnlock()

	SortRecords(results, query.SortBy, query.SortOrder)
	return paginate(results, query.Offset, query.Limit), nil
}

// QueryStream implements evidence.Storage.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.Record, <-chan error, error) {
	records, err := s.Query(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	recordsCh := make(chan *evidence.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, record := range records {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count implements evidence.Storage.
func (s *MemoryStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// Delete implements evidence.Storage.
func (s *MemoryStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if matchesQuery(record, query) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close implements evidence.Storage.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*evidence.Record)
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func matchesQuery(record *evidence.Record, query *evidence.Query) bool {
	if query.StartTime != nil && record.Timestamp.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.Timestamp.After(*query.EndTime) {
		return false
	}
	if query.ExperimentID != "" && record.ExperimentID != query.ExperimentID {
		return false
	}
	if query.Type != "" && record.Type != query.Type {
		return false
	}
	if query.Actor != "" && record.Actor != query.Actor {
		return false
	}
	if query.MinCost != nil && record.Cost < *query.MinCost {
		return false
	}
	if query.MaxCost != nil && record.Cost > *query.MaxCost {
		return false
	}
	return true
}

// SortRecords sorts records in place. The default is timestamp descending;
// ties are broken by ID so the order is total.
func SortRecords(records []*evidence.Record, sortBy, sortOrder string) {
	desc := !strings.EqualFold(sortOrder, "asc")

	less := func(a, b *evidence.Record) int {
		switch sortBy {
		case "recorded_at":
			return a.RecordedAt.Compare(b.RecordedAt)
		case "cost":
			return compareFloat(a.Cost, b.Cost)
		case "budget_used":
			return compareFloat(a.BudgetUsed, b.BudgetUsed)
		default:
			return a.Timestamp.Compare(b.Timestamp)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		c := less(records[i], records[j])
		if c == 0 {
			c = strings.Compare(records[i].ID, records[j].ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func paginate(records []*evidence.Record, offset, limit int) []*evidence.Record {
	if offset >= len(records) {
		return []*evidence.Record{}
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}
