package report

import "sync"

// Report is the append-only outcome log of one run.
//
// Record is safe for concurrent use. Outcomes are stamped with a sequence
// number at record time, so Outcomes and Trace always list them in the
// order they were recorded.
type Report struct {
	mu        sync.Mutex
	outcomes  []Outcome
	seq       int64
	observers []func(Outcome)
}

// Option configures a Report.
type Option func(*Report)

// WithObserver registers fn to be called with every recorded outcome, in
// record order. Observers run while the report is locked and must not call
// back into it.
func WithObserver(fn func(Outcome)) Option {
	return func(r *Report) {
		r.observers = append(r.observers, fn)
	}
}

// New creates an empty report.
func New(opts ...Option) *Report {
	r := &Report{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends an outcome and returns it with its sequence number set.
func (r *Report) Record(o Outcome) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	o.Seq = r.seq
	r.outcomes = append(r.outcomes, o)
	for _, fn := range r.observers {
		fn(o)
	}
	return o
}

// RecordAll appends outcomes in order.
func (r *Report) RecordAll(outcomes []Outcome) {
	for _, o := range outcomes {
		r.Record(o)
	}
}

// Outcomes returns a copy of everything recorded so far.
func (r *Report) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Trace returns one human-readable line per recorded outcome.
func (r *Report) Trace() []string {
	outcomes := r.Outcomes()
	lines := make([]string, len(outcomes))
	for i, o := range outcomes {
		lines[i] = o.Line()
	}
	return lines
}

// Failure is a single failed check as listed in a Summary.
type Failure struct {
	Check  string `json:"check" yaml:"check"`
	Kind   Kind   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Reason string `json:"reason" yaml:"reason"`
}

// Summary tallies a report.
type Summary struct {
	Passed   int       `json:"passed" yaml:"passed"`
	Failed   int       `json:"failed" yaml:"failed"`
	Skipped  int       `json:"skipped" yaml:"skipped"`
	Failures []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Total returns the number of checks counted.
func (s Summary) Total() int {
	return s.Passed + s.Failed + s.Skipped
}

// OK reports whether no check failed. Skips do not count against a run.
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Summary computes the tally of everything recorded so far.
func (r *Report) Summary() Summary {
	var s Summary
	for _, o := range r.Outcomes() {
		switch o.Status {
		case StatusPass:
			s.Passed++
		case StatusSkip:
			s.Skipped++
		case StatusFail:
			s.Failed++
			s.Failures = append(s.Failures, Failure{Check: o.Check, Kind: o.Kind, Reason: o.Reason})
		}
	}
	return s
}
