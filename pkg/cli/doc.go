/*
Package cli provides command-line helpers for the crucible command.

Output Formatting:

Commands print results as text, JSON or CSV. Values that implement Table are
rendered as aligned columns in text mode and as rows in CSV mode; anything
else falls back to its default formatting:

	formatter, err := cli.NewFormatter(cli.OutputFormat(flags.format))
	if err != nil {
		return err
	}
	return formatter.FormatTo(os.Stdout, cli.ExperimentTable(snapshots))

Exit Codes:

ExitCode maps lifecycle errors to stable process exit codes so scripts can
tell a denied start (retry later) from an invalid definition:

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}

Progress Reporting:

Long exports report progress on stderr:

	progress := cli.NewProgressReporter(os.Stderr, "Exporting")
	progress.Start(total)
	progress.Update(n)
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
