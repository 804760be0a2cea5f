package harness

import (
	"github.com/roach88/ndc-test/internal/report"
	"github.com/roach88/ndc-test/internal/synth"
)

// Result is the outcome of one run.
type Result struct {
	RunID    string `json:"run_id" yaml:"run_id"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Pass is false when any check failed. Skips do not fail a run.
	Pass bool `json:"pass" yaml:"pass"`

	Summary  report.Summary   `json:"summary" yaml:"summary"`
	Outcomes []report.Outcome `json:"outcomes" yaml:"outcomes"`

	// Plans lists what was synthesized, in execution order.
	Plans []synth.Plan `json:"plans,omitempty" yaml:"plans,omitempty"`

	// Trace has one human-readable line per outcome.
	Trace []string `json:"-" yaml:"-"`
}

// NewResult creates an empty passing result.
func NewResult(runID, endpoint string) *Result {
	return &Result{
		RunID:    runID,
		Endpoint: endpoint,
		Pass:     true,
		Outcomes: []report.Outcome{},
		Trace:    []string{},
	}
}

// finish copies the report's state into the result.
func (r *Result) finish(rep *report.Report) *Result {
	r.Outcomes = rep.Outcomes()
	r.Trace = rep.Trace()
	r.Summary = rep.Summary()
	r.Pass = r.Summary.OK()
	return r
}
