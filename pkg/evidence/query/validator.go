package query

import (
	"errors"
	"fmt"

	"mercator-hq/crucible/pkg/evidence"
)

// Built-in page limits, used when Limits leaves a field zero.
const (
	DefaultLimit = 100
	MaxLimit     = 10000
)

// Limits bounds query pagination. Zero fields select the built-in values.
type Limits struct {
	Default int
	Max     int
}

func (l Limits) withDefaults() Limits {
	if l.Default <= 0 {
		l.Default = DefaultLimit
	}
	if l.Max <= 0 {
		l.Max = MaxLimit
	}
	return l
}

var (
	sortFields = map[string]bool{"timestamp": true, "recorded_at": true, "cost": true, "budget_used": true}
	sortOrders = map[string]bool{"asc": true, "desc": true}
)

// Validate checks q against the built-in limits. It returns a
// *evidence.QueryError listing every invalid parameter.
func Validate(q *evidence.Query) error {
	return validate(q, Limits{}.withDefaults())
}

// Normalize fills in the default page size and newest-first ordering, then
// validates q against limits.
func Normalize(q *evidence.Query, limits Limits) error {
	limits = limits.withDefaults()
	if q.Limit == 0 {
		q.Limit = limits.Default
	}
	ApplyDefaults(q)
	return validate(q, limits)
}

// ApplyDefaults sorts by timestamp, newest first, and pages at DefaultLimit
// unless q says otherwise.
func ApplyDefaults(q *evidence.Query) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = "timestamp"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}

func validate(q *evidence.Query, limits Limits) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch {
	case q.Limit < 0:
		fail("limit must be >= 0, got %d", q.Limit)
	case q.Limit > limits.Max:
		fail("limit must be <= %d, got %d", limits.Max, q.Limit)
	}
	if q.Offset < 0 {
		fail("offset must be >= 0, got %d", q.Offset)
	}
	if q.SortBy != "" && !sortFields[q.SortBy] {
		fail("invalid sort field: %s", q.SortBy)
	}
	if q.SortOrder != "" && !sortOrders[q.SortOrder] {
		fail("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder)
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		fail("start_time must be before end_time")
	}
	if q.MinCost != nil && q.MaxCost != nil && *q.MinCost > *q.MaxCost {
		fail("min_cost must be <= max_cost")
	}
	if q.Type != "" && !q.Type.Valid() {
		fail("unknown event type: %s", q.Type)
	}

	if len(errs) == 0 {
		return nil
	}
	return evidence.NewQueryError(q, errors.Join(errs...))
}
