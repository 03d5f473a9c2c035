package promotion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"mercator-hq/crucible/pkg/experiment"
	"mercator-hq/crucible/pkg/telemetry/tracing"
)

// Headers set on every promotion message. Nats-Msg-Id lets JetStream streams
// drop duplicate promotions of the same experiment.
const (
	HeaderExperimentID = "Crucible-Experiment-Id"
	headerMsgID        = "Nats-Msg-Id"
)

// NATSPublisher publishes promotion payloads to NATS.
type NATSPublisher struct {
	conn    *nats.Conn
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewNATSPublisher connects to cfg.URL.
func NewNATSPublisher(cfg Config, logger *slog.Logger) (*NATSPublisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats publisher requires a URL")
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 5
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "promotion.nats")

	conn, err := nats.Connect(cfg.URL,
		nats.Name("crucible-promotion"),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to NATS", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	logger.Info("connected to NATS", "url", cfg.URL, "subject_prefix", cfg.SubjectPrefix)

	return &NATSPublisher{
		conn:    conn,
		prefix:  cfg.SubjectPrefix,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Subject returns the subject a payload for experimentID is published on.
func (p *NATSPublisher) Subject(experimentID string) string {
	return p.prefix + "." + experimentID
}

// Publish sends the payload and waits for the server to acknowledge the
// flush.
func (p *NATSPublisher) Publish(ctx context.Context, payload experiment.PromotionPayload) error {
	subject := p.Subject(payload.ExperimentID)

	data, err := json.Marshal(payload)
	if err != nil {
		return &PublishError{ExperimentID: payload.ExperimentID, Subject: subject, Cause: err}
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(HeaderExperimentID, payload.ExperimentID)
	msg.Header.Set(headerMsgID, payload.ExperimentID)

	carrier := map[string]string{}
	tracing.InjectToMap(ctx, carrier)
	for k, v := range carrier {
		msg.Header.Set(k, v)
	}

	if err := p.conn.PublishMsg(msg); err != nil {
		return &PublishError{ExperimentID: payload.ExperimentID, Subject: subject, Cause: err}
	}

	flushCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.conn.FlushWithContext(flushCtx); err != nil {
		return &PublishError{ExperimentID: payload.ExperimentID, Subject: subject, Cause: err}
	}

	p.logger.Info("promotion published",
		"experiment_id", payload.ExperimentID,
		"subject", subject,
		"bytes", len(data),
	)
	return nil
}

// Check implements a readiness probe.
func (p *NATSPublisher) Check(ctx context.Context) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats connection status %s", p.conn.Status())
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn.IsClosed() {
		return nil
	}
	return p.conn.Drain()
}
