package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/crucible/pkg/cli"
	"mercator-hq/crucible/pkg/experiment"
	"mercator-hq/crucible/pkg/manager"
	"mercator-hq/crucible/pkg/store"
)

// experimentOptions holds the flags of every experiment subcommand.
type experimentOptions struct {
	// create
	name        string
	description string
	creator     string
	typ         string
	skills      []string
	tools       []string
	params      map[string]string
	budget      float64
	timeLimit   time.Duration

	// record
	success   bool
	cost      float64
	duration  time.Duration
	outputRef string
	errors    []string

	// fail, note
	reason string
	note   string
	author string

	// list
	state string
}

var experimentFlags experimentOptions

var experimentCmd = &cobra.Command{
	Use:     "experiment",
	Aliases: []string{"exp"},
	Short:   "Manage experiments",
	Long: `Drive experiments through their lifecycle against the configured store.

Every subcommand takes exclusive ownership of the SQLite store, restores the
persisted experiments, applies one operation and writes the result back before
letting go. Concurrent invocations therefore run one after another, waiting up
to store.sqlite.lock_timeout for the store; if it stays held, for example by a
running "crucible serve", the command exits with code 75. With the memory
backend nothing outlives the command.`,
}

func init() {
	rootCmd.AddCommand(experimentCmd)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft experiment",
		Example: `  crucible experiment create --name summarize-v2 --creator alice \
      --type skill_trial --skill summarize --tool web_search \
      --budget 100 --time-limit 10m --param temperature=0.2`,
		Args: cobra.NoArgs,
		RunE: withManager("create", createExperiment),
	}
	f := createCmd.Flags()
	f.StringVar(&experimentFlags.name, "name", "", "experiment name")
	f.StringVar(&experimentFlags.description, "description", "", "free-form description")
	f.StringVar(&experimentFlags.creator, "creator", "", "creator identity")
	f.StringVar(&experimentFlags.typ, "type", "", "experiment type: skill_trial, tool_combination_trial, parameter_tuning, safety_validation")
	f.StringSliceVar(&experimentFlags.skills, "skill", nil, "skill under test (repeatable)")
	f.StringSliceVar(&experimentFlags.tools, "tool", nil, "tool under test (repeatable)")
	f.StringToStringVar(&experimentFlags.params, "param", nil, "parameter key=value (repeatable)")
	f.Float64Var(&experimentFlags.budget, "budget", 0, "budget allocated")
	f.DurationVar(&experimentFlags.timeLimit, "time-limit", 0, "time limit, e.g. 10m")

	recordCmd := &cobra.Command{
		Use:   "record <id>",
		Short: "Record one result",
		Args:  cobra.ExactArgs(1),
		RunE:  withManager("record", recordResult),
	}
	f = recordCmd.Flags()
	f.BoolVar(&experimentFlags.success, "success", false, "the run succeeded")
	f.Float64Var(&experimentFlags.cost, "cost", 0, "cost of the run")
	f.DurationVar(&experimentFlags.duration, "duration", 0, "duration of the run")
	f.StringVar(&experimentFlags.outputRef, "output-ref", "", "reference to the run output")
	f.StringSliceVar(&experimentFlags.errors, "error", nil, "error message (repeatable)")

	failCmd := &cobra.Command{
		Use:   "fail <id>",
		Short: "Mark a running experiment failed",
		Args:  cobra.ExactArgs(1),
		RunE:  withManager("fail", failExperiment),
	}
	failCmd.Flags().StringVar(&experimentFlags.reason, "reason", "", "failure reason")
	_ = failCmd.MarkFlagRequired("reason")

	noteCmd := &cobra.Command{
		Use:   "note <id>",
		Short: "Attach a reviewer note; validates a completed experiment",
		Args:  cobra.ExactArgs(1),
		RunE:  withManager("note", addNote),
	}
	noteCmd.Flags().StringVar(&experimentFlags.note, "note", "", "review note")
	noteCmd.Flags().StringVar(&experimentFlags.author, "author", "", "reviewer identity")
	_ = noteCmd.MarkFlagRequired("author")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List experiments",
		Args:  cobra.NoArgs,
		RunE:  withManager("list", listExperiments),
	}
	f = listCmd.Flags()
	f.StringVar(&experimentFlags.state, "state", "", "filter by state")
	f.StringVar(&experimentFlags.creator, "creator", "", "filter by creator")
	f.StringVar(&experimentFlags.typ, "type", "", "filter by type")

	experimentCmd.AddCommand(
		createCmd,
		transitionCommand("submit", "Submit a draft for admission", (*manager.Manager).Submit),
		transitionCommand("start", "Start an experiment if a slot is free", (*manager.Manager).Start),
		recordCmd,
		transitionCommand("complete", "Complete a running experiment and score it", (*manager.Manager).Complete),
		failCmd,
		transitionCommand("cancel", "Cancel an experiment", (*manager.Manager).Cancel),
		noteCmd,
		&cobra.Command{
			Use:   "promote <id>",
			Short: "Promote a validated experiment",
			Args:  cobra.ExactArgs(1),
			RunE:  withManager("promote", promoteExperiment),
		},
		transitionCommand("get", "Show one experiment", (*manager.Manager).Get),
		listCmd,
		&cobra.Command{
			Use:   "stats",
			Short: "Show aggregate statistics",
			Args:  cobra.NoArgs,
			RunE:  withManager("stats", showStatistics),
		},
	)
}

type managerRunE func(ctx context.Context, cmd *cobra.Command, m *manager.Manager, args []string) error

// withManager builds the components, runs fn and closes everything, which
// flushes pending evidence.
func withManager(name string, fn managerRunE) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		comps, err := buildComponents(ctx, cfg, componentOptions{quiet: true, logWriter: cmd.ErrOrStderr()})
		if err != nil {
			return err
		}
		defer func() {
			if cerr := comps.Close(); cerr != nil && err == nil {
				err = cli.NewCommandError(name, cerr)
			}
		}()

		return fn(ctx, cmd, comps.manager, args)
	}
}

// transitionCommand builds a subcommand for an operation that takes only an
// experiment ID and returns its snapshot.
func transitionCommand(name, short string, op func(*manager.Manager, context.Context, string) (experiment.Snapshot, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withManager(name, func(ctx context.Context, cmd *cobra.Command, m *manager.Manager, args []string) error {
			snap, err := op(m, ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd, cli.ExperimentTable{snap})
		}),
	}
}

func createExperiment(ctx context.Context, cmd *cobra.Command, m *manager.Manager, args []string) error {
	var params map[string]any
	if len(experimentFlags.params) > 0 {
		params = make(map[string]any, len(experimentFlags.params))
		for k, v := range experimentFlags.params {
			params[k] = parseParam(v)
		}
	}

	snap, err := m.Create(ctx, experiment.Definition{
		Name:        experimentFlags.name,
		Description: experimentFlags.description,
		Creator:     experimentFlags.creator,
		Type:        experiment.Type(experimentFlags.typ),
		Skills:      experimentFlags.skills,
		Tools:       experimentFlags.tools,
		Parameters:  params,
		Budget:      experimentFlags.budget,
		TimeLimit:   experimentFlags.timeLimit,
	})
	if err != nil {
		return err
	}
	return render(cmd, cli.ExperimentTable{snap})
}

// parseParam keeps numbers and booleans typed so they round-trip through
// JSON like API-submitted parameters.
func parseParam(v string) any {
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

func recordResult(ctx context.Context, cmd *cobra.Command, m *manager.Manager, args []string) error {
	out, err := m.RecordResult(ctx, args[0], experiment.Result{
		Success:   experimentFlags.success,
		Cost:      experimentFlags.cost,
		Duration:  experimentFlags.duration,
		OutputRef: experimentFlags.outputRef,
		Errors:    experimentFlags.errors,
	})
	if err != nil {
		return err
	}
	return render(cmd, recordView(out))
}

func failExperiment(ctx context.Context, cmd *cobra.Command, m *manager.Manager, args []string) error {
	snap, err := m.Fail(ctx, args[0], experimentFlags.reason)
	if err != nil {
		return err
	}
	return render(cmd, cli.ExperimentTable{snap})
}

func addNote(ctx context.Context, cmd *cobra.Command, m *manager.Manager, args []string) error {
	snap, err := m.AddValidationNote(ctx, args[0], experimentFlags.note, experimentFlags.author)
	if err != nil {
		return err
	}
	return render(cmd, cli.ExperimentTable{snap})
}

func promoteExperiment(ctx context.Context, cmd *cobra.Command, m *manager.Manager, args []string) error {
	out, err := m.Promote(ctx, args[0])
	if err != nil {
		return err
	}
	return render(cmd, promoteView(out))
}

func listExperiments(ctx context.Context, cmd *cobra.Command, m *manager.Manager, args []string) error {
	filter := store.Filter{Creator: experimentFlags.creator}
	if experimentFlags.state != "" {
		state, err := experiment.ParseState(experimentFlags.state)
		if err != nil {
			return fmt.Errorf("%w: %v", experiment.ErrValidation, err)
		}
		filter.State = state
	}
	if experimentFlags.typ != "" {
		typ, err := experiment.ParseType(experimentFlags.typ)
		if err != nil {
			return fmt.Errorf("%w: %v", experiment.ErrValidation, err)
		}
		filter.Type = typ
	}
	return render(cmd, cli.ExperimentTable(m.List(ctx, filter)))
}

func showStatistics(ctx context.Context, cmd *cobra.Command, m *manager.Manager, args []string) error {
	return render(cmd, statsView(m.Statistics(ctx)))
}

// ============================================================================
// Views
// ============================================================================

// recordView shows the experiment with its budget position.
type recordView manager.RecordOutcome

func (v recordView) Headers() []string {
	return []string{"ID", "STATE", "RUNS", "BUDGET", "USED", "UTILIZATION", "ALERT", "EXCEEDED", "CANCELLED"}
}

func (v recordView) Rows() [][]string {
	return [][]string{{
		v.Snapshot.ID,
		string(v.Snapshot.State),
		strconv.Itoa(len(v.Snapshot.Results)),
		strconv.FormatFloat(v.Budget.Allocated, 'f', -1, 64),
		strconv.FormatFloat(v.Budget.Used, 'f', -1, 64),
		fmt.Sprintf("%.1f%%", v.Budget.Percentage*100),
		strconv.FormatBool(v.Budget.Alert),
		strconv.FormatBool(v.Budget.Exceeded),
		strconv.FormatBool(v.ForcedCancel),
	}}
}

func (v recordView) Value() any { return manager.RecordOutcome(v) }

// promoteView shows the promoted experiment and publication status.
type promoteView manager.PromotionOutcome

func (v promoteView) Headers() []string {
	return []string{"ID", "STATE", "QUALITY", "PUBLISHED", "PUBLISH_ERROR"}
}

func (v promoteView) Rows() [][]string {
	return [][]string{{
		v.Snapshot.ID,
		string(v.Snapshot.State),
		strconv.FormatFloat(v.Payload.Metrics.QualityScore, 'f', 3, 64),
		strconv.FormatBool(v.Published),
		v.PublishError,
	}}
}

func (v promoteView) Value() any { return manager.PromotionOutcome(v) }

// statsView shows one row per state followed by totals.
type statsView manager.Statistics

func (v statsView) Headers() []string {
	return []string{"STATE", "COUNT"}
}

func (v statsView) Rows() [][]string {
	states := make([]string, 0, len(v.ByState))
	for s := range v.ByState {
		states = append(states, string(s))
	}
	sort.Strings(states)

	rows := make([][]string, 0, len(states)+5)
	for _, s := range states {
		rows = append(rows, []string{s, strconv.Itoa(v.ByState[experiment.State(s)])})
	}
	limit := strconv.Itoa(v.Limit)
	if v.Limit <= 0 {
		limit = "unlimited"
	}
	rows = append(rows,
		[]string{"total", strconv.Itoa(v.Total)},
		[]string{"active", fmt.Sprintf("%d/%s", v.Active, limit)},
		[]string{"mean_quality", strconv.FormatFloat(v.MeanQuality, 'f', 3, 64)},
		[]string{"budget_used", fmt.Sprintf("%g/%g", v.BudgetUsed, v.BudgetAllocated)},
	)
	return rows
}

func (v statsView) Value() any { return manager.Statistics(v) }
