package promotion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"mercator-hq/crucible/pkg/experiment"
)

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()

	s, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	go s.Start()
	if !s.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		s.Shutdown()
		s.WaitForShutdown()
	})
	return s
}

func samplePayload() experiment.PromotionPayload {
	return experiment.PromotionPayload{
		ExperimentID: "exp-42",
		Name:         "summarizer-v2",
		Type:         experiment.TypeSkillTrial,
		Skills:       []string{"summarize", "translate"},
		Tools:        []string{"search"},
		Parameters:   map[string]any{"temperature": 0.2},
		Metrics:      experiment.Metrics{QualityScore: 0.92, SuccessRate: 1, TotalRuns: 3},
		PromotedAt:   time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}
}

// ==================== NATS ====================

func TestNATSPublisher_Publish(t *testing.T) {
	srv := startTestNATSServer(t)

	sub, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("subscriber connect error = %v", err)
	}
	defer sub.Close()

	msgs := make(chan *nats.Msg, 1)
	if _, err := sub.ChanSubscribe("promotions.>", msgs); err != nil {
		t.Fatalf("ChanSubscribe() error = %v", err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	p, err := NewNATSPublisher(Config{URL: srv.ClientURL(), SubjectPrefix: "promotions"}, nil)
	if err != nil {
		t.Fatalf("NewNATSPublisher() error = %v", err)
	}
	defer p.Close()

	if err := p.Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if err := p.Publish(context.Background(), samplePayload()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-msgs:
		if msg.Subject != "promotions.exp-42" {
			t.Errorf("subject = %q, want promotions.exp-42", msg.Subject)
		}
		var got experiment.PromotionPayload
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		if got.ExperimentID != "exp-42" || got.Metrics.QualityScore != 0.92 || len(got.Skills) != 2 {
			t.Errorf("payload mismatch: %+v", got)
		}
		if id := msg.Header.Get(HeaderExperimentID); id != "exp-42" {
			t.Errorf("%s header = %q, want exp-42", HeaderExperimentID, id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for promotion message")
	}
}

func TestNATSPublisher_DefaultSubject(t *testing.T) {
	srv := startTestNATSServer(t)

	p, err := NewNATSPublisher(Config{URL: srv.ClientURL()}, nil)
	if err != nil {
		t.Fatalf("NewNATSPublisher() error = %v", err)
	}
	defer p.Close()

	if got := p.Subject("abc"); got != DefaultSubjectPrefix+".abc" {
		t.Errorf("Subject() = %q", got)
	}
}

func TestNATSPublisher_PublishAfterClose(t *testing.T) {
	srv := startTestNATSServer(t)

	p, err := NewNATSPublisher(Config{URL: srv.ClientURL()}, nil)
	if err != nil {
		t.Fatalf("NewNATSPublisher() error = %v", err)
	}
	p.conn.Close()

	err = p.Publish(context.Background(), samplePayload())
	var pubErr *PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("Publish() error = %v, want *PublishError", err)
	}
	if pubErr.ExperimentID != "exp-42" {
		t.Errorf("ExperimentID = %q", pubErr.ExperimentID)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() on closed connection error = %v", err)
	}
}

func TestNewNATSPublisher_Errors(t *testing.T) {
	if _, err := NewNATSPublisher(Config{}, nil); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := NewNATSPublisher(Config{URL: "nats://127.0.0.1:1", Timeout: 200 * time.Millisecond}, nil); err == nil {
		t.Error("expected error for unreachable server")
	}
}

// ==================== Log ====================

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	p := NewLogPublisher(logger)
	if err := p.Publish(context.Background(), samplePayload()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"experiment_id":"exp-42"`) {
		t.Errorf("log output missing experiment_id: %s", buf.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, samplePayload()); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestNew(t *testing.T) {
	p, err := New(Config{}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := p.(*LogPublisher); !ok {
		t.Errorf("New() with empty backend = %T, want *LogPublisher", p)
	}
	if _, err := New(Config{Backend: "kafka"}, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}
