package query

import (
	"errors"
	"strings"
	"testing"
	"time"

	"mercator-hq/crucible/pkg/evidence"
)

func TestValidate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)
	low, high := 1.0, 5.0

	tests := []struct {
		name    string
		query   evidence.Query
		wantErr bool
	}{
		{name: "empty query", query: evidence.Query{}},
		{name: "full valid query", query: evidence.Query{
			StartTime: &earlier, EndTime: &now,
			MinCost: &low, MaxCost: &high,
			Type: evidence.EventStarted, Limit: 50, Offset: 10,
			SortBy: "cost", SortOrder: "asc",
		}},
		{name: "negative limit", query: evidence.Query{Limit: -1}, wantErr: true},
		{name: "limit above max", query: evidence.Query{Limit: MaxLimit + 1}, wantErr: true},
		{name: "negative offset", query: evidence.Query{Offset: -5}, wantErr: true},
		{name: "unknown sort field", query: evidence.Query{SortBy: "tokens"}, wantErr: true},
		{name: "unknown sort order", query: evidence.Query{SortOrder: "up"}, wantErr: true},
		{name: "inverted time range", query: evidence.Query{StartTime: &now, EndTime: &earlier}, wantErr: true},
		{name: "inverted cost range", query: evidence.Query{MinCost: &high, MaxCost: &low}, wantErr: true},
		{name: "unknown event type", query: evidence.Query{Type: "exploded"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			err := Validate(&q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var qe *evidence.QueryError
				if !errors.As(err, &qe) {
					t.Errorf("expected *evidence.QueryError, got %T", err)
				}
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	q := &evidence.Query{}
	ApplyDefaults(q)

	if q.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", q.Limit, DefaultLimit)
	}
	if q.SortBy != "timestamp" {
		t.Errorf("SortBy = %q, want timestamp", q.SortBy)
	}
	if q.SortOrder != "desc" {
		t.Errorf("SortOrder = %q, want desc", q.SortOrder)
	}

	q = &evidence.Query{Limit: 7, SortBy: "cost", SortOrder: "asc"}
	ApplyDefaults(q)
	if q.Limit != 7 || q.SortBy != "cost" || q.SortOrder != "asc" {
		t.Errorf("ApplyDefaults overwrote explicit values: %+v", q)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		query     evidence.Query
		limits    Limits
		wantLimit int
		wantErr   string
	}{
		{name: "configured default", limits: Limits{Default: 25}, wantLimit: 25},
		{name: "built-in default", wantLimit: DefaultLimit},
		{name: "explicit limit kept", query: evidence.Query{Limit: 7}, limits: Limits{Default: 25}, wantLimit: 7},
		{name: "configured max", query: evidence.Query{Limit: 60}, limits: Limits{Max: 50}, wantErr: "limit must be <= 50"},
		{
			name:    "every problem reported",
			query:   evidence.Query{Offset: -1, SortBy: "tokens", Type: "exploded"},
			wantErr: "invalid sort field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			err := Normalize(&q, tt.limits)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Normalize() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if q.Limit != tt.wantLimit || q.SortBy != "timestamp" || q.SortOrder != "desc" {
				t.Errorf("Normalize() = limit %d sort %s %s", q.Limit, q.SortBy, q.SortOrder)
			}
		})
	}

	q := evidence.Query{Offset: -1, SortBy: "tokens", Type: "exploded"}
	err := Normalize(&q, Limits{})
	for _, want := range []string{"offset", "sort field", "event type"} {
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("error %v does not mention %s", err, want)
		}
	}
}
