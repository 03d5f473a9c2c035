package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"mercator-hq/crucible/pkg/evidence"
	"mercator-hq/crucible/pkg/experiment"
)

func testSnapshots() ExperimentTable {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return ExperimentTable{
		{
			ID:    "exp-001",
			State: experiment.StateRunning,
			Definition: experiment.Definition{
				Name:    "summarize-v2",
				Creator: "alice",
				Type:    experiment.TypeSkillTrial,
				Budget:  100,
			},
			BudgetUsed: 12.5,
			Metrics:    experiment.Metrics{QualityScore: 0.9126},
			CreatedAt:  created,
		},
		{
			ID:    "exp-002",
			State: experiment.StateDraft,
			Definition: experiment.Definition{
				Name:    "tools, combined",
				Creator: "bob",
				Type:    experiment.TypeToolCombinationTrial,
				Budget:  50,
			},
			CreatedAt: created.Add(time.Minute),
		},
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format  OutputFormat
		want    string
		wantErr bool
	}{
		{"", "*cli.TextFormatter", false},
		{FormatText, "*cli.TextFormatter", false},
		{FormatJSON, "*cli.JSONFormatter", false},
		{FormatCSV, "*cli.CSVFormatter", false},
		{"yaml", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f, err := NewFormatter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFormatter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := typeName(f); got != tt.want {
				t.Errorf("NewFormatter() = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *TextFormatter:
		return "*cli.TextFormatter"
	case *JSONFormatter:
		return "*cli.JSONFormatter"
	case *CSVFormatter:
		return "*cli.CSVFormatter"
	}
	return "unknown"
}

func TestTextFormatter_PlainValue(t *testing.T) {
	output, err := (&TextFormatter{}).Format("test message")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if string(output) != "test message\n" {
		t.Errorf("Format() = %q", output)
	}
}

func TestTextFormatter_Table(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&TextFormatter{}).FormatTo(buf, testSnapshots()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "QUALITY") {
		t.Errorf("header = %q", lines[0])
	}
	for _, want := range []string{"exp-001", "running", "12.5", "0.913", "2026-03-01T12:00:00Z"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row %q missing %q", lines[1], want)
		}
	}
	// Columns are aligned: STATE starts at the same offset on every line.
	col := strings.Index(lines[0], "STATE")
	if strings.Index(lines[1], "running") != col || strings.Index(lines[2], "draft") != col {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

func TestJSONFormatter_TableEncodesValue(t *testing.T) {
	for _, indent := range []bool{false, true} {
		buf := &bytes.Buffer{}
		if err := (&JSONFormatter{Indent: indent}).FormatTo(buf, testSnapshots()); err != nil {
			t.Fatalf("FormatTo() error = %v", err)
		}

		var got []experiment.Snapshot
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not a snapshot array: %v\n%s", err, buf.String())
		}
		if len(got) != 2 || got[0].ID != "exp-001" || got[1].Definition.Creator != "bob" {
			t.Errorf("got %+v", got)
		}
		if indent != strings.Contains(buf.String(), "\n  ") {
			t.Errorf("indent=%v but output was:\n%s", indent, buf.String())
		}
	}
}

func TestCSVFormatter(t *testing.T) {
	tests := []struct {
		name       string
		omitHeader bool
		wantRows   int
	}{
		{name: "with header", wantRows: 3},
		{name: "without header", omitHeader: true, wantRows: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := (&CSVFormatter{OmitHeader: tt.omitHeader}).Format(testSnapshots())
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
			if err != nil {
				t.Fatalf("output is not valid CSV: %v", err)
			}
			if len(rows) != tt.wantRows {
				t.Fatalf("got %d rows, want %d", len(rows), tt.wantRows)
			}
			// Embedded commas survive quoting.
			if last := rows[len(rows)-1]; last[1] != "tools, combined" {
				t.Errorf("name column = %q", last[1])
			}
		})
	}
}

func TestCSVFormatter_RejectsNonTable(t *testing.T) {
	if _, err := (&CSVFormatter{}).Format(map[string]int{"a": 1}); err == nil {
		t.Fatal("Format() expected error for non-table value")
	}
}

func TestEvidenceTable(t *testing.T) {
	table := EvidenceTable{{
		ExperimentID: "exp-001",
		Type:         evidence.EventBudgetExceeded,
		Actor:        "system",
		FromState:    "running",
		ToState:      "running",
		Cost:         20,
		BudgetUsed:   110,
		Message:      "budget exceeded",
		Timestamp:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}}

	rows := table.Rows()
	if len(rows) != 1 || len(rows[0]) != len(table.Headers()) {
		t.Fatalf("rows = %v", rows)
	}
	want := []string{"2026-03-01T12:00:00Z", "exp-001", "budget_exceeded", "system", "running", "running", "20", "110", "budget exceeded"}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Errorf("column %s = %q, want %q", table.Headers()[i], rows[0][i], want[i])
		}
	}
}
