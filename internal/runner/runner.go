package runner

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/ndc-test/internal/ndc"
	"github.com/roach88/ndc-test/internal/report"
	"github.com/roach88/ndc-test/internal/synth"
)

// Poster sends a JSON body to a connector endpoint and decodes the reply.
type Poster interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Runner executes plans. Each plan is isolated: its failure never affects
// another plan.
type Runner struct {
	client      Poster
	concurrency int
	logger      *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency sets how many plans may be in flight at once. Values below
// 1 mean sequential execution.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		r.concurrency = max(n, 1)
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Runner that issues requests through client.
func New(client Poster, opts ...Option) *Runner {
	r := &Runner{
		client:      client,
		concurrency: 1,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes a single plan and returns its outcome, attributed to the
// plan's fingerprint.
func (r *Runner) Run(ctx context.Context, plan synth.Plan) report.Outcome {
	o, _ := r.run(ctx, plan)
	return o
}

// run also returns ctx's error when the request was cut short by
// cancellation, so RunAll can abandon the outcome.
func (r *Runner) run(ctx context.Context, plan synth.Plan) (report.Outcome, error) {
	log := r.logger.With(zap.String("plan", plan.Name), zap.String("fingerprint", plan.Fingerprint))
	log.Debug("running plan", zap.String("path", plan.Path()))

	var o report.Outcome
	var err error
	switch plan.Kind {
	case synth.KindProcedure:
		var resp ndc.MutationResponse
		if err = r.client.Post(ctx, plan.Path(), plan.MutationRequest(), &resp); err == nil {
			o = CheckMutationResponse(plan, resp)
		}
	case synth.KindExplain:
		var raw json.RawMessage
		if err = r.client.Post(ctx, plan.Path(), plan.QueryRequest(), &raw); err == nil {
			o = CheckExplainResponse(plan, raw)
		}
	default:
		var raw json.RawMessage
		if err = r.client.Post(ctx, plan.Path(), plan.QueryRequest(), &raw); err == nil {
			var resp ndc.QueryResponse
			if decodeErr := json.Unmarshal(raw, &resp); decodeErr != nil {
				o = report.Failf(plan.Name, report.KindShapeMismatch, "response is not a list of row sets: %v", decodeErr)
			} else {
				o = CheckQueryResponse(plan, resp)
			}
		}
	}

	if err != nil {
		o = report.Fail(plan.Name, report.KindTransport, err.Error())
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return o.ForPlan(plan.Fingerprint), ctx.Err()
		}
	}

	if o.Status == report.StatusFail {
		log.Info("plan failed", zap.String("kind", string(o.Kind)), zap.String("reason", o.Reason))
	}
	return o.ForPlan(plan.Fingerprint), nil
}

// RunAll executes plans with up to the configured concurrency and records
// their outcomes in rep in plan order, whatever order they complete in. An
// outcome is recorded as soon as every plan before it has finished.
//
// Cancelling ctx stops new plans from starting. Plans interrupted by the
// cancellation are abandoned without an outcome. The returned error is ctx's
// error, if any.
func (r *Runner) RunAll(ctx context.Context, plans []synth.Plan, rep *report.Report) error {
	seq := newSequencer(len(plans), rep)

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, plan := range plans {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				seq.done(i, nil)
				return nil
			}
			o, err := r.run(ctx, plan)
			if err != nil {
				r.logger.Debug("plan abandoned", zap.String("plan", plan.Name))
				seq.done(i, nil)
				return nil
			}
			seq.done(i, &o)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// sequencer holds completed outcomes until every earlier plan has finished,
// then records them in plan order.
type sequencer struct {
	mu       sync.Mutex
	rep      *report.Report
	finished []bool
	outcomes []*report.Outcome
	next     int
}

func newSequencer(n int, rep *report.Report) *sequencer {
	return &sequencer{
		rep:      rep,
		finished: make([]bool, n),
		outcomes: make([]*report.Outcome, n),
	}
}

// done marks plan i finished. A nil outcome means the plan was abandoned.
func (s *sequencer) done(i int, o *report.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finished[i] = true
	s.outcomes[i] = o
	for s.next < len(s.finished) && s.finished[s.next] {
		if out := s.outcomes[s.next]; out != nil {
			s.rep.Record(*out)
		}
		s.outcomes[s.next] = nil
		s.next++
	}
}
