package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/crucible/pkg/cli"
	"mercator-hq/crucible/pkg/config"
	"mercator-hq/crucible/pkg/evidence"
	"mercator-hq/crucible/pkg/evidence/export"
	"mercator-hq/crucible/pkg/evidence/query"
	"mercator-hq/crucible/pkg/evidence/retention"
)

type evidenceOptions struct {
	experimentID string
	eventType    string
	actor        string
	timeRange    string
	minCost      float64
	maxCost      float64
	limit        int
	offset       int
	sortBy       string
	sortOrder    string
	output       string

	// prune
	days       int
	maxRecords int64
}

var evidenceFlags evidenceOptions

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Query the evidence trail",
	Long: `Query, export and prune the lifecycle evidence trail.

Every state change, result, budget alert and promotion is recorded as an
immutable evidence record. These commands read the configured evidence
backend directly.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2026-10-01T00:00:00Z/2026-10-02T00:00:00Z"`,
}

var evidenceQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query evidence records",
	Example: `  # Everything recorded for one experiment, oldest first
  crucible evidence query --experiment 6f1c... --sort-order asc

  # Budget alerts in a time window as JSON
  crucible evidence query --type budget_alert \
      --time-range "2026-10-01T00:00:00Z/2026-10-02T00:00:00Z" --format json`,
	Args: cobra.NoArgs,
	RunE: queryEvidence,
}

var evidenceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export matching evidence records as JSON or CSV",
	Long: `Export every evidence record matching the filters. Pagination flags are
ignored. --format selects json (the default for text) or csv.`,
	Example: `  crucible evidence export --experiment 6f1c... --format csv --output trail.csv`,
	Args:    cobra.NoArgs,
	RunE:    exportEvidence,
}

var evidencePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	Long: `Delete evidence older than the retention period and trim the trail to the
record cap, archiving first when configured. Flags override the configured
policy for this run only.`,
	Args: cobra.NoArgs,
	RunE: pruneEvidence,
}

func init() {
	rootCmd.AddCommand(evidenceCmd)
	evidenceCmd.AddCommand(evidenceQueryCmd, evidenceExportCmd, evidencePruneCmd)

	for _, c := range []*cobra.Command{evidenceQueryCmd, evidenceExportCmd} {
		f := c.Flags()
		f.StringVar(&evidenceFlags.experimentID, "experiment", "", "filter by experiment ID")
		f.StringVar(&evidenceFlags.eventType, "type", "", "filter by event type")
		// --actor is taken by the global identity flag.
		f.StringVar(&evidenceFlags.actor, "by", "", "filter by actor")
		f.StringVar(&evidenceFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
		f.Float64Var(&evidenceFlags.minCost, "min-cost", 0, "minimum cost threshold")
		f.Float64Var(&evidenceFlags.maxCost, "max-cost", 0, "maximum cost threshold")
		f.StringVar(&evidenceFlags.sortBy, "sort-by", "", "sort field: timestamp, recorded_at, cost, budget_used")
		f.StringVar(&evidenceFlags.sortOrder, "sort-order", "", "sort order: asc, desc")
	}
	evidenceQueryCmd.Flags().IntVar(&evidenceFlags.limit, "limit", 0, "max results (default from evidence.query.default_limit)")
	evidenceQueryCmd.Flags().IntVar(&evidenceFlags.offset, "offset", 0, "pagination offset")
	evidenceExportCmd.Flags().StringVarP(&evidenceFlags.output, "output", "o", "", "output file (default: stdout)")

	evidencePruneCmd.Flags().IntVar(&evidenceFlags.days, "days", 0, "retention period in days (default from config)")
	evidencePruneCmd.Flags().Int64Var(&evidenceFlags.maxRecords, "max-records", 0, "record cap (default from config)")
}

// buildQuery turns the filter flags into an evidence query.
func buildQuery() (*evidence.Query, error) {
	q := &evidence.Query{
		ExperimentID: evidenceFlags.experimentID,
		Type:         evidence.EventType(evidenceFlags.eventType),
		Actor:        evidenceFlags.actor,
		Limit:        evidenceFlags.limit,
		Offset:       evidenceFlags.offset,
		SortBy:       evidenceFlags.sortBy,
		SortOrder:    evidenceFlags.sortOrder,
	}

	if evidenceFlags.timeRange != "" {
		start, end, err := parseTimeRange(evidenceFlags.timeRange)
		if err != nil {
			return nil, err
		}
		q.StartTime = &start
		q.EndTime = &end
	}
	if evidenceFlags.minCost > 0 {
		minCost := evidenceFlags.minCost
		q.MinCost = &minCost
	}
	if evidenceFlags.maxCost > 0 {
		maxCost := evidenceFlags.maxCost
		q.MaxCost = &maxCost
	}
	return q, nil
}

func parseTimeRange(v string) (time.Time, time.Time, error) {
	startRaw, endRaw, ok := strings.Cut(v, "/")
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid time range format (expected: start/end)")
	}
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}
	return start, end, nil
}

// withEvidence loads the config and opens the evidence backend for fn.
func withEvidence(name string, fn func(ctx context.Context, cfg *config.Config, s evidence.Storage) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := newLogger(cfg, os.Stderr, true); err != nil {
		return err
	}

	s, err := openEvidenceStorage(cfg)
	if err != nil {
		var cfgErr *cli.ConfigError
		if errors.As(err, &cfgErr) {
			return err
		}
		return cli.NewCommandError(name, err)
	}
	defer s.Close()

	ctx := context.Background()
	if cfg.Evidence.Query.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Evidence.Query.Timeout)
		defer cancel()
	}
	return fn(ctx, cfg, s)
}

func queryEvidence(cmd *cobra.Command, args []string) error {
	q, err := buildQuery()
	if err != nil {
		return err
	}

	return withEvidence("evidence query", func(ctx context.Context, cfg *config.Config, s evidence.Storage) error {
		if err := query.Normalize(q, queryLimits(cfg)); err != nil {
			return err
		}

		records, err := s.Query(ctx, q)
		if err != nil {
			return cli.NewCommandError("evidence query", fmt.Errorf("query failed: %w", err))
		}
		return render(cmd, cli.EvidenceTable(records))
	})
}

func queryLimits(cfg *config.Config) query.Limits {
	return query.Limits{
		Default: cfg.Evidence.Query.DefaultLimit,
		Max:     cfg.Evidence.Query.MaxLimit,
	}
}

// streamExporter is satisfied by the JSON and CSV exporters.
type streamExporter interface {
	ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error
}

func exportEvidence(cmd *cobra.Command, args []string) error {
	q, err := buildQuery()
	if err != nil {
		return err
	}

	return withEvidence("evidence export", func(ctx context.Context, cfg *config.Config, s evidence.Storage) error {
		var exporter streamExporter
		switch cli.OutputFormat(outputFormat) {
		case cli.FormatJSON, cli.FormatText, "":
			exporter = export.NewJSONExporter(cfg.Evidence.Export.JSONPretty)
		case cli.FormatCSV:
			exporter = export.NewCSVExporter(cfg.Evidence.Export.CSVIncludeHeader)
		default:
			return fmt.Errorf("unsupported export format %q (supported: json, csv)", outputFormat)
		}

		if q.SortOrder == "" {
			q.SortOrder = "asc"
		}
		if err := query.Normalize(q, queryLimits(cfg)); err != nil {
			return err
		}
		q.Limit, q.Offset = 0, 0

		var (
			w        = cmd.OutOrStdout()
			progress cli.ProgressReporter
		)
		if evidenceFlags.output != "" {
			f, err := os.Create(evidenceFlags.output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			w = f

			total, err := s.Count(ctx, q)
			if err != nil {
				return cli.NewCommandError("evidence export", fmt.Errorf("count failed: %w", err))
			}
			progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "Exporting")
			progress.Start(total)
		}

		recordsCh, errCh, err := s.QueryStream(ctx, q)
		if err != nil {
			return cli.NewCommandError("evidence export", fmt.Errorf("query failed: %w", err))
		}
		if progress != nil {
			recordsCh = countRecords(ctx, recordsCh, progress)
		}

		if err := exporter.ExportStream(ctx, recordsCh, w); err != nil {
			if progress != nil {
				progress.Error(err)
			}
			return cli.NewCommandError("evidence export", err)
		}
		if err := <-errCh; err != nil {
			if progress != nil {
				progress.Error(err)
			}
			return cli.NewCommandError("evidence export", err)
		}
		if progress != nil {
			progress.Finish()
		}
		return nil
	})
}

// countRecords forwards records from in while reporting how many have
// passed.
func countRecords(ctx context.Context, in <-chan *evidence.Record, progress cli.ProgressReporter) <-chan *evidence.Record {
	out := make(chan *evidence.Record)
	go func() {
		defer close(out)
		var n int64
		for r := range in {
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
			n++
			progress.Update(n)
		}
	}()
	return out
}

func pruneEvidence(cmd *cobra.Command, args []string) error {
	return withEvidence("evidence prune", func(ctx context.Context, cfg *config.Config, s evidence.Storage) error {
		rc := retentionConfig(cfg)
		if evidenceFlags.days > 0 {
			rc.RetentionDays = evidenceFlags.days
		}
		if evidenceFlags.maxRecords > 0 {
			rc.MaxRecords = evidenceFlags.maxRecords
		}

		deleted, err := retention.NewPruner(s, rc).Prune(ctx)
		if err != nil {
			return cli.NewCommandError("evidence prune", err)
		}
		return render(cmd, pruneView{Deleted: deleted, RetentionDays: rc.RetentionDays, MaxRecords: rc.MaxRecords})
	})
}

type pruneView struct {
	Deleted       int64 `json:"deleted"`
	RetentionDays int   `json:"retention_days"`
	MaxRecords    int64 `json:"max_records"`
}

func (v pruneView) Headers() []string {
	return []string{"DELETED", "RETENTION_DAYS", "MAX_RECORDS"}
}

func (v pruneView) Rows() [][]string {
	return [][]string{{
		fmt.Sprint(v.Deleted),
		fmt.Sprint(v.RetentionDays),
		fmt.Sprint(v.MaxRecords),
	}}
}
