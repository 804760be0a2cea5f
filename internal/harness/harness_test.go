package harness

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/ndc-test/internal/report"
	"github.com/roach88/ndc-test/internal/synth"
	"github.com/roach88/ndc-test/internal/testutil"
	"github.com/roach88/ndc-test/internal/transport"
)

// TestScenarios runs every checked-in scenario against its fake connector.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			run, err := RunScenario(t, scenario)
			require.NoError(t, err)

			for _, msg := range Verify(scenario, run) {
				t.Error(msg)
			}
			if scenario.Golden {
				AssertGolden(t, scenario.Name, run.Result)
			}
		})
	}
}

func newClient(t *testing.T, conn *testutil.Connector) *transport.Client {
	t.Helper()
	cfg := transport.DefaultConfig()
	cfg.BaseURL = conn.URL
	cfg.Logger = zaptest.NewLogger(t)
	client, err := transport.New(cfg)
	require.NoError(t, err)
	return client
}

func TestRun_DefaultRunIDIsUUID(t *testing.T) {
	conn := testutil.NewConnector(t, testutil.MustFixture("articles"))

	result, err := Run(context.Background(), Config{Endpoint: conn.URL}, newClient(t, conn))
	require.NoError(t, err)

	_, err = uuid.Parse(result.RunID)
	assert.NoError(t, err, "run id %q", result.RunID)
	assert.Equal(t, conn.URL, result.Endpoint)
	assert.True(t, result.Pass)
}

func TestRun_ValidateStage(t *testing.T) {
	conn := testutil.NewConnector(t, testutil.MustFixture("library"))

	result, err := Run(context.Background(), Config{
		Stage: StageValidate,
		IDs:   testutil.NewFixedIDGenerator("validate-only"),
	}, newClient(t, conn))
	require.NoError(t, err)

	assert.Equal(t, "validate-only", result.RunID)
	assert.Empty(t, result.Plans)
	assert.Zero(t, conn.Count("query"))
	assert.Zero(t, conn.Count("mutation"))
	for _, o := range result.Outcomes {
		assert.NotEqual(t, report.StatusSkip, o.Status, "no synthesis skips in validate stage: %s", o.Check)
	}
}

func TestRun_PlanStage(t *testing.T) {
	conn := testutil.NewConnector(t, testutil.MustFixture("library"))

	result, err := Run(context.Background(), Config{Stage: StagePlan}, newClient(t, conn))
	require.NoError(t, err)

	require.NotEmpty(t, result.Plans)
	assert.Zero(t, conn.Count("query"))
	assert.Zero(t, conn.Count("explain"))

	kinds := make(map[synth.Kind]int)
	for _, p := range result.Plans {
		kinds[p.Kind]++
		assert.NotEmpty(t, p.Fingerprint, p.Name)
	}
	assert.Equal(t, 2, kinds[synth.KindSimple])
	assert.Equal(t, 2, kinds[synth.KindAggregate])
	assert.Equal(t, 2, kinds[synth.KindExplain])
	assert.Equal(t, 1, kinds[synth.KindFunction])
	assert.Equal(t, 1, kinds[synth.KindProcedure])
}

func TestRun_Observers(t *testing.T) {
	conn := testutil.NewConnector(t, testutil.MustFixture("articles"))

	var mu sync.Mutex
	var seen []string
	observe := func(o report.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, o.Check)
	}

	result, err := Run(context.Background(), Config{
		Concurrency: 3,
		Observers:   []func(report.Outcome){observe},
	}, newClient(t, conn))
	require.NoError(t, err)

	checks := make([]string, len(result.Outcomes))
	for i, o := range result.Outcomes {
		checks[i] = o.Check
	}
	assert.Equal(t, checks, seen, "observers see outcomes in record order")
}

func TestRun_Deterministic(t *testing.T) {
	scenario := &Scenario{Name: "repeat", Fixture: "library", Expect: &Expectation{}}

	first, err := RunScenario(t, scenario)
	require.NoError(t, err)
	second, err := RunScenario(t, scenario)
	require.NoError(t, err)

	assert.Equal(t, string(Snapshot("repeat", first.Result)), string(Snapshot("repeat", second.Result)))
	require.Len(t, second.Result.Plans, len(first.Result.Plans))
	for i := range first.Result.Plans {
		assert.Equal(t, first.Result.Plans[i].Fingerprint, second.Result.Plans[i].Fingerprint)
	}
}

func TestRun_Unreachable(t *testing.T) {
	conn := testutil.NewConnector(t, testutil.MustFixture("articles"))
	client := newClient(t, conn)
	conn.Close()

	result, err := Run(context.Background(), Config{}, client)
	require.Error(t, err)
	assert.True(t, errors.Is(err, report.ErrUnreachable))

	require.NotNil(t, result)
	assert.False(t, result.Pass)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "capabilities", result.Outcomes[0].Check)
	assert.Equal(t, report.KindUnreachable, result.Outcomes[0].Kind)
}

func TestRun_Cancelled(t *testing.T) {
	conn := testutil.NewConnector(t, testutil.MustFixture("articles"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Run(ctx, Config{}, newClient(t, conn))
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Zero(t, conn.Count("query"))
}

func TestRun_InvalidVersionConstraint(t *testing.T) {
	conn := testutil.NewConnector(t, testutil.MustFixture("articles"))

	_, err := Run(context.Background(), Config{VersionConstraint: "not a range"}, newClient(t, conn))
	require.Error(t, err)
	assert.Zero(t, conn.Count("capabilities"))
}

func TestSnapshot_ReplacesEndpoint(t *testing.T) {
	rep := report.New()
	rep.Record(report.Fail("capabilities", report.KindUnreachable, "fetch capabilities: dial http://127.0.0.1:4321/capabilities"))
	result := NewResult("id", "http://127.0.0.1:4321").finish(rep)

	snap := string(Snapshot("demo", result))
	assert.True(t, strings.HasPrefix(snap, "# demo\n"))
	assert.Contains(t, snap, "dial <endpoint>/capabilities")
	assert.NotContains(t, snap, "4321")
	assert.True(t, strings.HasSuffix(snap, "passed: 0, failed: 1, skipped: 0\n"))
}

func TestRun_OneTracePerRun(t *testing.T) {
	conn := testutil.NewConnector(t, testutil.MustFixture("articles"))
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	cfg := transport.DefaultConfig()
	cfg.BaseURL = conn.URL
	cfg.TracerProvider = tp
	cfg.Propagators = propagation.TraceContext{}
	client, err := transport.New(cfg)
	require.NoError(t, err)

	result, err := Run(context.Background(), Config{
		Endpoint:       conn.URL,
		IDs:            testutil.NewFixedIDGenerator("traced"),
		TracerProvider: tp,
	}, client)
	require.NoError(t, err)
	require.True(t, result.Pass)

	var root sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		if s.Name() == "ndc-test run" {
			root = s
		}
	}
	require.NotNil(t, root)
	traceID := root.SpanContext().TraceID().String()

	reqs := conn.Requests()
	require.NotEmpty(t, reqs)
	for _, r := range reqs {
		header := r.Header.Get("traceparent")
		assert.True(t, strings.HasPrefix(header, "00-"+traceID+"-"), "%s %s: traceparent %q", r.Method, r.Path, header)
	}
}
