package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/crucible/pkg/cli"
	"mercator-hq/crucible/pkg/config"
	"mercator-hq/crucible/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string
	actorName    string
)

var rootCmd = &cobra.Command{
	Use:   "crucible",
	Short: "Crucible - experiment lifecycle and governance engine",
	Long: `Crucible governs experiments that trial new skill and tool combinations
before they are promoted to production.

It validates experiment definitions against the catalog and policy, enforces a
ceiling on concurrently running experiments, tracks spend against budgets,
scores results and records every lifecycle event as evidence.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults plus CRUCIBLE_* environment when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, json, csv")
	rootCmd.PersistentFlags().StringVar(&actorName, "actor", "", "actor recorded in lifecycle evidence")
}

// loadConfig returns the process-wide configuration, loading cfgFile on
// first use.
func loadConfig() (*config.Config, error) {
	if cfg := config.GetConfig(); cfg != nil {
		return cfg, nil
	}
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return config.GetConfig(), nil
}

// render writes v to the command's output in the selected format.
func render(cmd *cobra.Command, v any) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(outputFormat))
	if err != nil {
		return err
	}
	return formatter.FormatTo(cmd.OutOrStdout(), v)
}

// commandContext returns the command's context with the --actor identity
// attached.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if actorName != "" {
		ctx = logging.WithActor(ctx, actorName)
	}
	return ctx
}
