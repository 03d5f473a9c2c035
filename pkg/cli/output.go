package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"mercator-hq/crucible/pkg/evidence"
	"mercator-hq/crucible/pkg/experiment"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output. Only tables can be written as CSV.
	FormatCSV OutputFormat = "csv"
)

// Table is tabular command output.
type Table interface {
	Headers() []string
	Rows() [][]string
}

// Formatter formats command output.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// TextFormatter formats output as plain text. Tables are column-aligned.
type TextFormatter struct{}

// Format converts data to text format.
func (f *TextFormatter) Format(data any) ([]byte, error) {
	var sb strings.Builder
	if err := f.FormatTo(&sb, data); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	table, ok := data.(Table)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(table.Headers(), "\t"))
	for _, row := range table.Rows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// JSONFormatter formats output as JSON. Tables are encoded as their
// underlying value, not as rows.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON format.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	data = unwrap(data)
	if f.Indent {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(unwrap(data))
}

// CSVFormatter formats tables as CSV.
type CSVFormatter struct {
	// OmitHeader skips the header row.
	OmitHeader bool
}

// Format converts data to CSV format.
func (f *CSVFormatter) Format(data any) ([]byte, error) {
	var sb strings.Builder
	if err := f.FormatTo(&sb, data); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// FormatTo writes data to writer in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	table, ok := data.(Table)
	if !ok {
		return fmt.Errorf("csv output is not supported for %T", data)
	}

	csvWriter := csv.NewWriter(w)
	if !f.OmitHeader {
		if err := csvWriter.Write(table.Headers()); err != nil {
			return err
		}
	}
	if err := csvWriter.WriteAll(table.Rows()); err != nil {
		return err
	}
	return csvWriter.Error()
}

// NewFormatter creates a formatter for format. An empty format selects text.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch format {
	case FormatText, "":
		return &TextFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{Indent: true}, nil
	case FormatCSV:
		return &CSVFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (supported: text, json, csv)", format)
	}
}

// valuer is implemented by tables that wrap a JSON-encodable value.
type valuer interface {
	Value() any
}

func unwrap(data any) any {
	if v, ok := data.(valuer); ok {
		return v.Value()
	}
	return data
}

// ============================================================================
// Tables
// ============================================================================

// ExperimentTable renders experiment snapshots one per row.
type ExperimentTable []experiment.Snapshot

func (t ExperimentTable) Headers() []string {
	return []string{"ID", "NAME", "TYPE", "STATE", "CREATOR", "BUDGET", "USED", "QUALITY", "CREATED"}
}

func (t ExperimentTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, s := range t {
		rows[i] = []string{
			s.ID,
			s.Definition.Name,
			string(s.Definition.Type),
			string(s.State),
			s.Definition.Creator,
			formatFloat(s.Definition.Budget),
			formatFloat(s.BudgetUsed),
			strconv.FormatFloat(s.Metrics.QualityScore, 'f', 3, 64),
			s.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return rows
}

func (t ExperimentTable) Value() any { return []experiment.Snapshot(t) }

// EvidenceTable renders evidence records one per row.
type EvidenceTable []*evidence.Record

func (t EvidenceTable) Headers() []string {
	return []string{"TIMESTAMP", "EXPERIMENT", "TYPE", "ACTOR", "FROM", "TO", "COST", "BUDGET_USED", "MESSAGE"}
}

func (t EvidenceTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, r := range t {
		rows[i] = []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			r.ExperimentID,
			string(r.Type),
			r.Actor,
			r.FromState,
			r.ToState,
			formatFloat(r.Cost),
			formatFloat(r.BudgetUsed),
			r.Message,
		}
	}
	return rows
}

func (t EvidenceTable) Value() any { return []*evidence.Record(t) }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
