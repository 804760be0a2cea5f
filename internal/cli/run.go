package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/ndc-test/internal/config"
	"github.com/roach88/ndc-test/internal/harness"
	"github.com/roach88/ndc-test/internal/report"
	"github.com/roach88/ndc-test/internal/store"
	"github.com/roach88/ndc-test/internal/transport"
)

// addRunFlags registers the flags shared by every command that talks to a
// connector.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("concurrency", 1, "plans executed in parallel")
	f.Int("row-limit", 10, "row limit sent with simple queries")
	f.Duration("timeout", 0, "per-request deadline (default 30s)")
	f.Float64("rate-limit", 0, "maximum requests per second (0 = unlimited)")
	f.Int("rate-burst", 1, "rate limiter burst size")
	f.StringToString("header", nil, "extra request header, e.g. --header authorization='Bearer x'")
	f.String("version-constraint", "", "semver range the connector version must satisfy (default ^0.1.0)")
	f.String("record", "", "SQLite file to record the run in")
	f.Bool("no-procedures", false, "do not invoke zero-argument procedures")
}

// bindRunFlags binds the running command's flags to their config keys.
func bindRunFlags(cmd *cobra.Command, opts *RootOptions) {
	f := cmd.Flags()
	opts.bind(config.KeyConcurrency, f.Lookup("concurrency"))
	opts.bind(config.KeyRowLimit, f.Lookup("row-limit"))
	opts.bind(config.KeyTimeout, f.Lookup("timeout"))
	opts.bind(config.KeyVersionConstraint, f.Lookup("version-constraint"))
	opts.bind(config.KeyRateLimit, f.Lookup("rate-limit"))
	opts.bind(config.KeyRateBurst, f.Lookup("rate-burst"))
	opts.bind(config.KeyHeaders, f.Lookup("header"))
	opts.bind(config.KeyRecord, f.Lookup("record"))

	// --no-procedures inverts run.procedures
	if fl := f.Lookup("no-procedures"); fl != nil && fl.Changed {
		skip, _ := f.GetBool("no-procedures")
		opts.viper().Set(config.KeyProcedures, !skip)
	}
}

// endpoint picks the connector URL from the arguments or the config.
func endpoint(args []string, cfg *config.Config) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.Endpoint != "" {
		return cfg.Endpoint, nil
	}
	return "", NewExitError(ExitCommandError, "no connector URL: pass one as an argument or set endpoint in the config")
}

// RunReport is the structured output of a run.
type RunReport struct {
	harness.Result `yaml:",inline"`

	// RecordedIn is the database the run was recorded in.
	RecordedIn string `json:"recorded_in,omitempty" yaml:"recorded_in,omitempty"`

	// Changes lists checks whose status differs from the previous recorded
	// run against the same endpoint.
	Changes []store.Change `json:"changes,omitempty" yaml:"changes,omitempty"`
}

// execute performs a run up to stage and renders it.
func execute(cmd *cobra.Command, opts *RootOptions, stage harness.Stage, args []string) error {
	bindRunFlags(cmd, opts)
	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	url, err := endpoint(args, cfg)
	if err != nil {
		return err
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := opts.logger(cfg, cmd.ErrOrStderr())
	defer func() { _ = logger.Sync() }()
	formatter.VerboseLog("%s: connector %s", cmd.Name(), url)

	tcfg := transport.DefaultConfig()
	tcfg.BaseURL = url
	tcfg.Timeout = cfg.Request.Timeout
	tcfg.RateLimit = cfg.Request.RateLimit
	tcfg.RateBurst = cfg.Request.RateBurst
	tcfg.Headers = cfg.Request.Headers
	tcfg.Logger = logger
	client, err := transport.New(tcfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "connector", err)
	}

	hcfg := harness.Config{
		Endpoint:          url,
		Stage:             stage,
		VersionConstraint: cfg.Run.VersionConstraint,
		RowLimit:          cfg.Run.RowLimit,
		Concurrency:       cfg.Run.Concurrency,
		SkipProcedures:    !cfg.Run.Procedures,
		Logger:            logger,
	}
	if !formatter.Structured() {
		w := cmd.OutOrStdout()
		hcfg.Observers = append(hcfg.Observers, func(o report.Outcome) {
			fmt.Fprintln(w, OutcomeLine(o))
		})
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, runErr := harness.Run(ctx, hcfg, client)
	if result == nil {
		return WrapExitError(ExitCommandError, "run", runErr)
	}

	formatter.VerboseLog("%s: %d plan(s), %d outcome(s)", cmd.Name(), len(result.Plans), len(result.Outcomes))

	out := RunReport{Result: *result}
	if cfg.Record != "" {
		changes, err := record(ctx, cfg.Record, result, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "record", err)
		}
		out.RecordedIn = cfg.Record
		out.Changes = changes
		formatter.VerboseLog("recorded run %s in %s (%d change(s))", result.RunID, cfg.Record, len(changes))
	}

	if stage == harness.StagePlan {
		if err := renderPlans(formatter, out); err != nil {
			return err
		}
	}
	return finish(formatter, out, runErr)
}

// record stores the run and compares it with the previous run against the
// same endpoint.
func record(ctx context.Context, path string, result *harness.Result, logger *zap.Logger) ([]store.Change, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	plans, err := store.PlanRecords(result.Plans)
	if err != nil {
		return nil, err
	}
	run := store.Run{
		ID:       result.RunID,
		Endpoint: result.Endpoint,
		Pass:     result.Pass,
		Passed:   result.Summary.Passed,
		Failed:   result.Summary.Failed,
		Skipped:  result.Summary.Skipped,
		Outcomes: result.Outcomes,
		Plans:    plans,
	}
	if _, err := s.WriteRun(ctx, run); err != nil {
		return nil, err
	}
	logger.Info("run recorded", zap.String("path", path), zap.String("run_id", run.ID))

	prev, err := s.PreviousRun(ctx, run.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return store.Compare(prev, run), nil
}

// finish renders the tally and maps the run to an exit code.
func finish(f *OutputFormatter, out RunReport, runErr error) error {
	s := out.Summary
	unreachable := runErr != nil && errors.Is(runErr, report.ErrUnreachable)

	var exit *ExitError
	var code string
	switch {
	case unreachable:
		exit = WrapExitError(ExitCommandError, "connector unreachable", runErr)
		code = ErrCodeUnreachable
	case runErr != nil:
		exit = WrapExitError(ExitCommandError, "run interrupted", runErr)
		code = ErrCodeInterrupted
	case !out.Pass:
		exit = NewExitError(ExitFailure, fmt.Sprintf("%d check(s) failed", s.Failed))
		code = ErrCodeChecksFailed
	}

	if f.Structured() {
		resp := CLIResponse{Status: "ok", Data: out}
		if exit != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: code, Message: exit.Error()}
		}
		if err := f.Encode(resp); err != nil {
			return err
		}
		return errOrNil(exit)
	}

	w := f.Writer
	for _, c := range out.Changes {
		if c.Regression() {
			fmt.Fprintf(w, "regression: %s (was %s, now %s)\n", c.Check, c.From, c.To)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, SummaryLine(s))
	if exit == nil {
		fmt.Fprintln(w, "✓ connector conforms")
	}
	return errOrNil(exit)
}

// errOrNil avoids returning a typed nil as a non-nil error.
func errOrNil(e *ExitError) error {
	if e == nil {
		return nil
	}
	return e
}
