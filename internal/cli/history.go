package cli

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/roach88/ndc-test/internal/config"
	"github.com/roach88/ndc-test/internal/report"
	"github.com/roach88/ndc-test/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Diff bool
}

// HistoryResult is the structured output of history for a single run.
type HistoryResult struct {
	Run      store.Run      `json:"run" yaml:"run"`
	Previous string         `json:"previous,omitempty" yaml:"previous,omitempty"`
	Changes  []store.Change `json:"changes,omitempty" yaml:"changes,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List or show recorded runs",
		Long: `Read runs recorded with --record.

Without a run id, lists every recorded run in the order it was recorded.
With one, prints that run's outcomes; --diff compares it with the run
recorded just before it against the same endpoint.

Examples:
  ndc-test history --record runs.db
  ndc-test history --record runs.db 6f1c0d0e-... --diff
  ndc-test history --record runs.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts, args)
		},
	}

	cmd.Flags().String("record", "", "SQLite file runs were recorded in")
	cmd.Flags().BoolVar(&opts.Diff, "diff", false, "compare with the previous run against the same endpoint")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions, args []string) error {
	opts.bind(config.KeyRecord, cmd.Flags().Lookup("record"))
	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	if cfg.Record == "" {
		return NewExitError(ExitCommandError, "no run record: pass --record or set record in the config")
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := store.Open(cfg.Record)
	if err != nil {
		return WrapExitError(ExitCommandError, "open run record", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) == 0 {
		runs, err := s.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "list runs", err)
		}
		return outputRuns(formatter, runs)
	}

	result, err := readHistory(ctx, s, args[0], opts.Diff)
	if err != nil {
		return err
	}
	return outputRun(formatter, result)
}

func readHistory(ctx context.Context, s *store.Store, id string, diff bool) (HistoryResult, error) {
	run, err := s.ReadRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return HistoryResult{}, NewExitError(ExitCommandError, fmt.Sprintf("run %q not recorded", id))
	}
	if err != nil {
		return HistoryResult{}, WrapExitError(ExitCommandError, "read run", err)
	}

	result := HistoryResult{Run: run}
	if !diff {
		return result, nil
	}

	prev, err := s.PreviousRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return result, nil
	}
	if err != nil {
		return HistoryResult{}, WrapExitError(ExitCommandError, "read previous run", err)
	}
	result.Previous = prev.ID
	result.Changes = store.Compare(prev, run)
	return result, nil
}

func outputRuns(f *OutputFormatter, runs []store.Run) error {
	if f.Structured() {
		return f.Encode(CLIResponse{Status: "ok", Data: runs})
	}
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded.")
		return nil
	}

	data := pterm.TableData{{"RUN", "ENDPOINT", "RECORDED", "PASSED", "FAILED", "SKIPPED"}}
	for _, r := range runs {
		data = append(data, []string{
			r.ID,
			r.Endpoint,
			r.RecordedAt,
			strconv.Itoa(r.Passed),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Skipped),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(f.Writer).Render()
}

func outputRun(f *OutputFormatter, result HistoryResult) error {
	if f.Structured() {
		return f.Encode(CLIResponse{Status: "ok", Data: result})
	}

	w := f.Writer
	run := result.Run
	fmt.Fprintf(w, "run %s against %s (%s)\n", run.ID, run.Endpoint, run.RecordedAt)
	for _, o := range run.Outcomes {
		fmt.Fprintln(w, OutcomeLine(o))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "passed: %d, failed: %d, skipped: %d\n", run.Passed, run.Failed, run.Skipped)

	if result.Previous == "" {
		return nil
	}
	fmt.Fprintf(w, "\nchanges since %s:\n", result.Previous)
	if len(result.Changes) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, c := range result.Changes {
		line := fmt.Sprintf("  %s: %s -> %s", c.Check, statusOrNone(c.From), statusOrNone(c.To))
		if c.Regression() {
			line = pterm.Red(line)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func statusOrNone(s report.Status) string {
	if s == "" {
		return "(none)"
	}
	return string(s)
}
