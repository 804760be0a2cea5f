package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/sebdah/goldie/v2"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/ndc-test/internal/report"
	"github.com/roach88/ndc-test/internal/testutil"
	"github.com/roach88/ndc-test/internal/transport"
)

// ScenarioRun is a finished scenario run.
type ScenarioRun struct {
	Result    *Result
	Err       error
	Connector *testutil.Connector
}

// RunScenario starts the scenario's fake connector and runs the harness
// against it with a fixed run id.
func RunScenario(t testing.TB, scenario *Scenario) (*ScenarioRun, error) {
	t.Helper()

	fixture, err := scenario.ConnectorFixture()
	if err != nil {
		return nil, err
	}
	conn := testutil.NewConnector(t, fixture)

	logger := zaptest.NewLogger(t)
	tcfg := transport.DefaultConfig()
	tcfg.BaseURL = conn.URL
	tcfg.Logger = logger
	client, err := transport.New(tcfg)
	if err != nil {
		return nil, err
	}

	cfg := Config{
		Endpoint:       conn.URL,
		Stage:          stages[scenario.Options.Stage],
		RowLimit:       scenario.Options.RowLimit,
		Concurrency:    scenario.Options.Concurrency,
		SkipProcedures: scenario.Options.SkipProcedures,
		Logger:         logger,
		IDs:            testutil.NewFixedIDGenerator("test-run-" + scenario.Name),
	}
	result, runErr := Run(context.Background(), cfg, client)
	if result == nil {
		return nil, runErr
	}
	return &ScenarioRun{Result: result, Err: runErr, Connector: conn}, nil
}

// Verify checks a scenario run against the scenario's expectation and
// assertions and returns every mismatch.
func Verify(scenario *Scenario, run *ScenarioRun) []string {
	var errs []string

	unreachable := run.Err != nil && errors.Is(run.Err, report.ErrUnreachable)
	switch {
	case scenario.Expect.Unreachable && !unreachable:
		errs = append(errs, fmt.Sprintf("expected the run to abort as unreachable, got error %v", run.Err))
	case !scenario.Expect.Unreachable && run.Err != nil:
		errs = append(errs, fmt.Sprintf("unexpected run error: %v", run.Err))
	}

	errs = append(errs, EvaluateExpectation(run.Result, *scenario.Expect)...)
	errs = append(errs, EvaluateAssertions(run.Result, scenario.Assertions,
		&AssertionContext{Connector: run.Connector})...)
	return errs
}

// Snapshot renders a result as golden file text: the trace followed by the
// tally. The connector URL is replaced since test servers use random ports.
func Snapshot(name string, result *Result) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "# %s\n", name)
	for _, line := range result.Trace {
		if result.Endpoint != "" {
			line = strings.ReplaceAll(line, result.Endpoint, "<endpoint>")
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	s := result.Summary
	fmt.Fprintf(&buf, "passed: %d, failed: %d, skipped: %d\n", s.Passed, s.Failed, s.Skipped)
	return []byte(buf.String())
}

// AssertGolden compares the given result's trace against a golden file.
// The golden file is stored in testdata/golden/{name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, result))
}
