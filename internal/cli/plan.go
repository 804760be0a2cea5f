package cli

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/roach88/ndc-test/internal/harness"
)

// fingerprintWidth is how much of a fingerprint the plan table shows.
const fingerprintWidth = 12

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [url]",
		Short: "Show the queries a test run would send",
		Long: `Validate the connector's documents and print the synthesized plans
without executing them. Structured formats include each plan's request.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, rootOpts, harness.StagePlan, args)
		},
	}

	addRunFlags(cmd)
	return cmd
}

// renderPlans prints the plan table in text mode. Structured formats carry
// the plans in the run report instead.
func renderPlans(f *OutputFormatter, out RunReport) error {
	if f.Structured() {
		return nil
	}

	data := pterm.TableData{{"PLAN", "KIND", "TARGET", "FINGERPRINT"}}
	for _, p := range out.Plans {
		fp := p.Fingerprint
		if len(fp) > fingerprintWidth {
			fp = fp[:fingerprintWidth]
		}
		data = append(data, []string{p.Name, string(p.Kind), p.Target, fp})
	}

	fmt.Fprintln(f.Writer)
	if len(out.Plans) == 0 {
		fmt.Fprintln(f.Writer, "No plans synthesized.")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(f.Writer).Render()
}
