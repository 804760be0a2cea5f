package harness

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/roach88/ndc-test/internal/ndc"
	"github.com/roach88/ndc-test/internal/report"
	"github.com/roach88/ndc-test/internal/runner"
	"github.com/roach88/ndc-test/internal/synth"
	"github.com/roach88/ndc-test/internal/validate"
)

// Client is the transport a run talks to the connector through.
type Client interface {
	validate.Getter
	runner.Poster
}

// IDGenerator produces run ids.
type IDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string { return uuid.NewString() }

// Stage selects how far a run goes.
type Stage int

const (
	// StageExecute fetches, validates, synthesizes and runs every plan.
	StageExecute Stage = iota
	// StageValidate stops after the documents are validated.
	StageValidate
	// StagePlan stops after synthesis; Result.Plans is filled but nothing
	// is sent to the query endpoints.
	StagePlan
)

// Config controls a run.
type Config struct {
	// Endpoint is recorded in the result; the client already points at it.
	Endpoint string

	Stage             Stage
	VersionConstraint string
	RowLimit          int
	Concurrency       int
	SkipProcedures    bool

	Logger *zap.Logger

	// IDs generates the run id. Defaults to random UUIDs.
	IDs IDGenerator

	// Observers see every outcome as it is recorded.
	Observers []func(report.Outcome)

	// TracerProvider records one span per run, parent of every connector
	// request. Defaults to the otel global.
	TracerProvider trace.TracerProvider
}

const tracerName = "github.com/roach88/ndc-test/internal/harness"

// Run executes a conformance run against client.
//
// The returned error is non-nil when the run could not complete: the
// connector was unreachable (errors.Is(err, report.ErrUnreachable)) or ctx
// was cancelled. The result is returned even then, holding whatever was
// recorded before the run stopped.
func Run(ctx context.Context, cfg Config, client Client) (_ *Result, err error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ids := cfg.IDs
	if ids == nil {
		ids = uuidGenerator{}
	}

	result := NewResult(ids.Generate(), cfg.Endpoint)
	logger = logger.With(zap.String("run_id", result.RunID))

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	ctx, span := tp.Tracer(tracerName).Start(ctx, "ndc-test run", trace.WithAttributes(
		attribute.String("ndc_test.run_id", result.RunID),
		attribute.String("ndc_test.endpoint", cfg.Endpoint),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	if sc := span.SpanContext(); sc.HasTraceID() {
		logger = logger.With(zap.String("trace_id", sc.TraceID().String()))
	}

	opts := make([]report.Option, 0, len(cfg.Observers))
	for _, fn := range cfg.Observers {
		opts = append(opts, report.WithObserver(fn))
	}
	rep := report.New(opts...)

	v, err := validate.New(client,
		validate.WithVersionConstraint(cfg.VersionConstraint),
		validate.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("run started", zap.String("endpoint", cfg.Endpoint))

	caps, err := v.FetchCapabilities(ctx, rep)
	if err != nil && !errors.Is(err, report.ErrStructural) {
		return result.finish(rep), err
	}
	if caps == nil {
		// Best effort: assume no optional features.
		caps = &ndc.CapabilitiesResponse{}
	}

	schema, err := v.FetchSchema(ctx, rep)
	if err != nil && !errors.Is(err, report.ErrStructural) {
		return result.finish(rep), err
	}
	if schema == nil || cfg.Stage == StageValidate {
		return done(logger, result.finish(rep)), nil
	}

	plans, skips := synth.Synthesize(schema, caps, synth.Options{
		RowLimit:       cfg.RowLimit,
		SkipProcedures: cfg.SkipProcedures,
	})
	rep.RecordAll(skips)
	result.Plans = plans
	logger.Info("plans synthesized", zap.Int("plans", len(plans)), zap.Int("skipped", len(skips)))

	if cfg.Stage == StagePlan {
		return done(logger, result.finish(rep)), nil
	}

	r := runner.New(client,
		runner.WithConcurrency(cfg.Concurrency),
		runner.WithLogger(logger),
	)
	if err := r.RunAll(ctx, plans, rep); err != nil {
		return result.finish(rep), errors.Wrap(err, "run interrupted")
	}
	return done(logger, result.finish(rep)), nil
}

func done(logger *zap.Logger, r *Result) *Result {
	logger.Info("run finished",
		zap.Int("passed", r.Summary.Passed),
		zap.Int("failed", r.Summary.Failed),
		zap.Int("skipped", r.Summary.Skipped),
		zap.Int("total", r.Summary.Total()),
	)
	return r
}
