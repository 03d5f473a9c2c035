package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()

	if GetRequestID(ctx) != "" || GetExperimentID(ctx) != "" || GetActor(ctx) != "" {
		t.Fatal("empty context returned values")
	}

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithExperimentID(ctx, "exp-1")
	ctx = WithActor(ctx, "alice")

	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID() = %q", got)
	}
	if got := GetExperimentID(ctx); got != "exp-1" {
		t.Errorf("GetExperimentID() = %q", got)
	}
	if got := GetActor(ctx); got != "alice" {
		t.Errorf("GetActor() = %q", got)
	}
}

func TestContextHandler_TraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "traced")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if entry["trace_id"] != traceID.String() {
		t.Errorf("trace_id = %v", entry["trace_id"])
	}
	if entry["span_id"] != spanID.String() {
		t.Errorf("span_id = %v", entry["span_id"])
	}
}

func TestContextHandler_NoFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	logger.Info("plain")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if _, ok := entry["request_id"]; ok {
		t.Error("request_id added without context value")
	}
}

func TestContextHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil))).WithGroup("budget")

	logger.InfoContext(WithRequestID(context.Background(), "req-9"), "alert", "used", 80)

	var entry struct {
		Budget struct {
			Used      int    `json:"used"`
			RequestID string `json:"request_id"`
		} `json:"budget"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if entry.Budget.Used != 80 || entry.Budget.RequestID != "req-9" {
		t.Errorf("grouped entry = %+v", entry)
	}
}
