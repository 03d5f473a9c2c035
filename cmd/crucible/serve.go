package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/crucible/pkg/api/handlers"
	"mercator-hq/crucible/pkg/cli"
	"mercator-hq/crucible/pkg/evidence/retention"
	"mercator-hq/crucible/pkg/server"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the experiment API server",
	Long: `Start the experiment API server with the specified configuration.

Besides the HTTP API, serve runs the catalog file watcher (when the catalog is
file-backed with watch enabled) and the evidence retention scheduler. All of
them stop together on SIGINT or SIGTERM.

A SQLite experiment store belongs to the server while it runs: "crucible
experiment" commands pointed at the same database fail with exit code 75
until it stops. Drive experiments through the HTTP API instead.

Examples:
  # Start with defaults
  crucible serve

  # Start with custom config
  crucible serve --config /etc/crucible/config.yaml

  # Override listen address
  crucible serve --listen 0.0.0.0:8080

  # Validate config and wiring without serving
  crucible serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "build every component, then exit")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}

	ctx, stop := cli.SignalContext(commandContext(cmd))
	defer stop()

	comps, err := buildComponents(ctx, cfg, componentOptions{telemetry: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := comps.Close(); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	out := cmd.OutOrStdout()
	if serveFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	var pruner *retention.Pruner
	if cfg.Evidence.Retention.PruneSchedule != "" {
		pruner = comps.newPruner()
	}
	if pruner != nil && comps.checker != nil {
		comps.checker.RegisterCheck("retention", pruner.Check)
	}

	handler := server.NewHandler(server.Routes{
		Experiments: handlers.NewExperimentHandler(comps.manager, handlers.Config{
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			RetryAfter:   cfg.Server.RetryAfter,
			Logger:       comps.logger,
		}),
		Health:        &cfg.Telemetry.Health,
		Checker:       comps.checker,
		Version:       versionInfo(),
		Metrics:       comps.metrics,
		MetricsConfig: &cfg.Telemetry.Metrics,
		Tracer:        comps.tracer,
		Logger:        comps.logger,
	})
	srv := server.NewServer(cfg.Server, handler, comps.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start(gctx)
	})

	if comps.catalogFile != nil && cfg.Catalog.Watch {
		g.Go(func() error {
			return comps.catalogFile.Watch(gctx, cfg.Catalog.DebounceInterval)
		})
	}

	if pruner != nil {
		g.Go(func() error {
			if err := pruner.Start(gctx); err != nil {
				return fmt.Errorf("failed to start retention scheduler: %w", err)
			}
			if next := pruner.NextPruning(); next != nil {
				slog.Debug("evidence retention scheduler started", "next_pruning", next)
			}
			<-gctx.Done()
			pruner.Stop()
			return nil
		})
	}

	fmt.Fprintf(out, "Crucible v%s\n", Version)
	fmt.Fprintf(out, "✓ Experiments restored (%d running of %d allowed)\n",
		comps.manager.ActiveCount(), cfg.Policy.MaxConcurrent)
	fmt.Fprintf(out, "✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return cli.NewCommandError("serve", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}
