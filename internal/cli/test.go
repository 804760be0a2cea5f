package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/ndc-test/internal/harness"
)

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test [url]",
		Short: "Run the full conformance suite against a connector",
		Long: `Validate the connector's documents, then synthesize and run a query
for every table, function and procedure and check each response.

Each check is printed as it completes:
  ✓ passed   ✗ failed [kind]: reason   - skipped (reason)

Exit codes:
  0 - Every check passed (skips allowed)
  1 - One or more checks failed
  2 - Command error or unreachable connector

Examples:
  ndc-test test http://localhost:8100
  ndc-test test http://localhost:8100 --concurrency 4 --record runs.db
  ndc-test test --config ndc-test.yaml --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, rootOpts, harness.StageExecute, args)
		},
	}

	addRunFlags(cmd)
	return cmd
}
