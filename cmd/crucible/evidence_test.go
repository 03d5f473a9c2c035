package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/crucible/pkg/evidence"
	"mercator-hq/crucible/pkg/evidence/export"
	"mercator-hq/crucible/pkg/experiment"
	"mercator-hq/crucible/pkg/manager"
)

// seedEvidence drives one experiment to promotion and returns its ID.
func seedEvidence(t *testing.T) string {
	t.Helper()

	actorName = "alice"
	snap := createDraft(t, "trail")
	for _, op := range []func(*manager.Manager, context.Context, string) (experiment.Snapshot, error){
		(*manager.Manager).Submit,
		(*manager.Manager).Start,
	} {
		if _, err := transition(t, op, snap.ID); err != nil {
			t.Fatalf("transition: %v", err)
		}
	}
	experimentFlags = experimentOptions{success: true, cost: 5, duration: time.Second}
	if _, err := run(t, withManager("record", recordResult), snap.ID); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := transition(t, (*manager.Manager).Complete, snap.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := run(t, withManager("promote", promoteExperiment), snap.ID); err != nil {
		t.Fatalf("promote: %v", err)
	}
	actorName = ""
	evidenceFlags = evidenceOptions{}
	return snap.ID
}

func queryTypes(t *testing.T) []evidence.EventType {
	t.Helper()
	out, err := run(t, queryEvidence)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	records := decode[[]*evidence.Record](t, out)
	types := make([]evidence.EventType, len(records))
	for i, r := range records {
		types[i] = r.Type
	}
	return types
}

// ============================================================================
// Query
// ============================================================================

func TestEvidenceQuery(t *testing.T) {
	setupConfig(t, 5)
	id := seedEvidence(t)

	evidenceFlags = evidenceOptions{experimentID: id, sortOrder: "asc"}
	want := []evidence.EventType{
		evidence.EventCreated,
		evidence.EventSubmitted,
		evidence.EventStarted,
		evidence.EventResultRecorded,
		evidence.EventCompleted,
		evidence.EventAutoValidated,
		evidence.EventPromoted,
		evidence.EventPromotionPublished,
	}
	if diff := cmp.Diff(want, queryTypes(t)); diff != "" {
		t.Errorf("event trail mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name  string
		flags evidenceOptions
		want  int
	}{
		{name: "by type", flags: evidenceOptions{eventType: "promoted"}, want: 1},
		{name: "by actor", flags: evidenceOptions{actor: "alice", eventType: "created"}, want: 1},
		{name: "by cost", flags: evidenceOptions{minCost: 1}, want: 1},
		{name: "paged", flags: evidenceOptions{limit: 3}, want: 3},
		{name: "offset past end", flags: evidenceOptions{offset: 100}, want: 0},
		{name: "other experiment", flags: evidenceOptions{experimentID: "missing"}, want: 0},
		{
			name:  "time range",
			flags: evidenceOptions{timeRange: time.Now().Add(-time.Hour).UTC().Format(time.RFC3339) + "/" + time.Now().Add(time.Hour).UTC().Format(time.RFC3339)},
			want:  len(want),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evidenceFlags = tt.flags
			if got := len(queryTypes(t)); got != tt.want {
				t.Errorf("query returned %d records, want %d", got, tt.want)
			}
		})
	}
}

func TestEvidenceQuery_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		flags evidenceOptions
	}{
		{name: "bad range", flags: evidenceOptions{timeRange: "yesterday"}},
		{name: "bad start", flags: evidenceOptions{timeRange: "x/2026-10-16T00:00:00Z"}},
		{name: "unknown type", flags: evidenceOptions{eventType: "exploded"}},
		{name: "bad sort", flags: evidenceOptions{sortBy: "name"}},
		{name: "inverted cost", flags: evidenceOptions{minCost: 10, maxCost: 1}},
		{name: "over max limit", flags: evidenceOptions{limit: 20000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupConfig(t, 5)
			evidenceFlags = tt.flags
			if _, err := run(t, queryEvidence); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

// ============================================================================
// Export and prune
// ============================================================================

func TestEvidenceExport_CSVFile(t *testing.T) {
	setupConfig(t, 5)
	id := seedEvidence(t)

	path := filepath.Join(t.TempDir(), "trail.csv")
	evidenceFlags = evidenceOptions{experimentID: id, output: path}
	outputFormat = "csv"
	if _, err := run(t, exportEvidence); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if diff := cmp.Diff(export.Header(), rows[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if got := len(rows) - 1; got != 8 {
		t.Errorf("exported %d records, want 8", got)
	}
}

func TestEvidenceExport_JSONStdout(t *testing.T) {
	setupConfig(t, 5)
	seedEvidence(t)

	evidenceFlags = evidenceOptions{eventType: "promoted"}
	outputFormat = "text"
	out, err := run(t, exportEvidence)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	records := decode[[]*evidence.Record](t, out)
	if len(records) != 1 || records[0].PayloadHash == "" {
		t.Errorf("records = %+v, want one promotion with a payload hash", records)
	}

	outputFormat = "yaml"
	if _, err := run(t, exportEvidence); err == nil || !strings.Contains(err.Error(), "unsupported export format") {
		t.Errorf("err = %v, want unsupported format", err)
	}
}

func TestEvidencePrune_MaxRecords(t *testing.T) {
	setupConfig(t, 5)
	seedEvidence(t)

	evidenceFlags = evidenceOptions{maxRecords: 3}
	out, err := run(t, pruneEvidence)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if got := decode[pruneView](t, out); got.Deleted != 5 || got.MaxRecords != 3 {
		t.Errorf("prune = %+v, want 5 deleted with cap 3", got)
	}

	evidenceFlags = evidenceOptions{}
	if got := len(queryTypes(t)); got != 3 {
		t.Errorf("%d records left, want 3", got)
	}
}
