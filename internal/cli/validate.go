package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/ndc-test/internal/harness"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [url]",
		Short: "Validate capabilities and schema without querying",
		Long: `Fetch and validate the connector's capabilities and schema documents.
No queries or mutations are sent. Faster than test for development feedback.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, rootOpts, harness.StageValidate, args)
		},
	}

	addRunFlags(cmd)
	return cmd
}
