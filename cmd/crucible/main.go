// Crucible is the experiment lifecycle and governance engine.
//
// It tracks candidate skill and tool combinations from draft to promotion:
//   - Definition validation against the skill/tool catalog and policy ceilings
//   - Admission control over concurrently running experiments
//   - Budget accounting with alerts and overage actions
//   - Quality scoring and auto-validation
//   - Lifecycle evidence for audit
//
// Usage:
//
//	# Start the API server
//	crucible serve --config /etc/crucible/config.yaml
//
//	# Drive an experiment from the shell
//	crucible experiment create --name summarize-v2 --creator alice \
//	    --type skill_trial --skill summarize --budget 100 --time-limit 10m
//	crucible experiment start <id>
//
//	# Query lifecycle evidence
//	crucible evidence query --experiment <id>
//
//	# Show version information
//	crucible version
package main

import (
	"fmt"
	"os"

	"mercator-hq/crucible/pkg/cli"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}
