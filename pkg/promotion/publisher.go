package promotion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/crucible/pkg/experiment"
)

// Publisher delivers promotion payloads to the production catalog.
// Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, payload experiment.PromotionPayload) error
	Close() error
}

// Config selects and configures a publisher.
type Config struct {
	// Backend is "log" or "nats". Empty selects "log".
	Backend string

	// URL is the NATS server URL.
	URL string

	// SubjectPrefix is prepended to the experiment ID to form the subject.
	// Default: "crucible.promotions"
	SubjectPrefix string

	// Timeout bounds connecting and each publish flush.
	// Default: 5 seconds
	Timeout time.Duration

	// MaxReconnects is the number of reconnect attempts after a lost
	// connection. Default: 5
	MaxReconnects int

	// ReconnectWait is the delay between reconnect attempts.
	// Default: 1 second
	ReconnectWait time.Duration
}

// DefaultSubjectPrefix is used when Config.SubjectPrefix is empty.
const DefaultSubjectPrefix = "crucible.promotions"

// New builds the publisher selected by cfg.Backend.
func New(cfg Config, logger *slog.Logger) (Publisher, error) {
	switch cfg.Backend {
	case "", "log":
		return NewLogPublisher(logger), nil
	case "nats":
		return NewNATSPublisher(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown promotion backend %q", cfg.Backend)
	}
}

// PublishError reports a payload that could not be delivered.
type PublishError struct {
	ExperimentID string
	Subject      string
	Cause        error
}

// Error implements the error interface.
func (e *PublishError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("publish promotion of %s to %s: %v", e.ExperimentID, e.Subject, e.Cause)
	}
	return fmt.Sprintf("publish promotion of %s: %v", e.ExperimentID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PublishError) Unwrap() error {
	return e.Cause
}

// LogPublisher writes promotion payloads to the log.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher. A nil logger uses slog.Default.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger.With("component", "promotion.log")}
}

// Publish logs the payload.
func (p *LogPublisher) Publish(ctx context.Context, payload experiment.PromotionPayload) error {
	if err := ctx.Err(); err != nil {
		return &PublishError{ExperimentID: payload.ExperimentID, Cause: err}
	}
	p.logger.Info("experiment promoted",
		"experiment_id", payload.ExperimentID,
		"name", payload.Name,
		"type", payload.Type,
		"skills", payload.Skills,
		"tools", payload.Tools,
		"quality_score", payload.Metrics.QualityScore,
		"promoted_at", payload.PromotedAt,
	)
	return nil
}

// Close implements Publisher.
func (p *LogPublisher) Close() error {
	return nil
}
