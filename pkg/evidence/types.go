package evidence

import (
	"context"
	"io"
	"time"
)

// EventType classifies a lifecycle evidence record.
type EventType string

const (
	EventCreated                EventType = "created"
	EventSubmitted              EventType = "submitted"
	EventStarted                EventType = "started"
	EventAdmissionDenied        EventType = "admission_denied"
	EventResultRecorded         EventType = "result_recorded"
	EventBudgetAlert            EventType = "budget_alert"
	EventBudgetExceeded         EventType = "budget_exceeded"
	EventCompleted              EventType = "completed"
	EventAutoValidated          EventType = "auto_validated"
	EventValidated              EventType = "validated"
	EventFailed                 EventType = "failed"
	EventCancelled              EventType = "cancelled"
	EventPromoted               EventType = "promoted"
	EventPromotionPublished     EventType = "promotion_published"
	EventPromotionPublishFailed EventType = "promotion_publish_failed"
)

// EventTypes lists every known event type.
func EventTypes() []EventType {
	return []EventType{
		EventCreated, EventSubmitted, EventStarted, EventAdmissionDenied,
		EventResultRecorded, EventBudgetAlert, EventBudgetExceeded,
		EventCompleted, EventAutoValidated, EventValidated, EventFailed,
		EventCancelled, EventPromoted, EventPromotionPublished, EventPromotionPublishFailed,
	}
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	for _, known := range EventTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Record is one immutable entry in the governance audit trail.
type Record struct {
	// Identity
	ID           string    `json:"id"`            // UUID v4
	ExperimentID string    `json:"experiment_id"` // Experiment the event belongs to
	Type         EventType `json:"type"`

	// Who and what
	Actor     string `json:"actor,omitempty"`      // Creator, reviewer or "system"
	FromState string `json:"from_state,omitempty"` // State before the event
	ToState   string `json:"to_state,omitempty"`   // State after the event

	// Resource accounting at the time of the event
	Cost            float64 `json:"cost"`
	BudgetUsed      float64 `json:"budget_used"`
	BudgetAllocated float64 `json:"budget_allocated"`
	QualityScore    float64 `json:"quality_score"`

	// Detail
	Message     string `json:"message,omitempty"`
	PayloadHash string `json:"payload_hash,omitempty"` // SHA-256 of the promotion payload

	// Timestamps
	Timestamp  time.Time `json:"timestamp"`   // When the event happened
	RecordedAt time.Time `json:"recorded_at"` // When it was written
}

// Query defines filter parameters for querying evidence records.
type Query struct {
	// Time range over Timestamp, both ends inclusive.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Filters
	ExperimentID string    `json:"experiment_id,omitempty"`
	Type         EventType `json:"type,omitempty"`
	Actor        string    `json:"actor,omitempty"`

	// Cost thresholds
	MinCost *float64 `json:"min_cost,omitempty"`
	MaxCost *float64 `json:"max_cost,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting: "timestamp", "recorded_at", "cost", "budget_used"; "asc" or "desc".
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage defines the interface for evidence storage backends.
// Implementations must be thread-safe.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching the query, sorted and paginated.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// QueryStream streams matching records. Both channels are closed when the
	// query completes; at most one error is sent.
	QueryStream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of records matching the query filters.
	// Pagination is ignored.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query filters and returns how many
	// were deleted. Pagination is ignored.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases backend resources.
	Close() error
}

// Exporter writes records in a specific format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
