package store

import "github.com/roach88/ndc-test/internal/report"

// Change is a check whose status differs between two runs. From is empty
// for a check the earlier run never recorded, To for one the later run
// dropped.
type Change struct {
	Check  string        `json:"check" yaml:"check"`
	From   report.Status `json:"from,omitempty" yaml:"from,omitempty"`
	To     report.Status `json:"to,omitempty" yaml:"to,omitempty"`
	Reason string        `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Regression reports whether a check stopped passing.
func (c Change) Regression() bool {
	return c.From == report.StatusPass && c.To == report.StatusFail
}

// Compare lists the checks whose status changed from prev to cur, in cur's
// record order followed by checks only prev recorded. A check recorded more
// than once in a run is compared by its first outcome.
func Compare(prev, cur Run) []Change {
	before := firstByCheck(prev.Outcomes)
	after := firstByCheck(cur.Outcomes)

	var changes []Change
	for _, o := range cur.Outcomes {
		if after[o.Check].Seq != o.Seq {
			continue
		}
		was, ok := before[o.Check]
		switch {
		case !ok:
			changes = append(changes, Change{Check: o.Check, To: o.Status, Reason: o.Reason})
		case was.Status != o.Status:
			changes = append(changes, Change{Check: o.Check, From: was.Status, To: o.Status, Reason: o.Reason})
		}
	}
	for _, o := range prev.Outcomes {
		if before[o.Check].Seq != o.Seq {
			continue
		}
		if _, ok := after[o.Check]; !ok {
			changes = append(changes, Change{Check: o.Check, From: o.Status})
		}
	}
	return changes
}

func firstByCheck(outcomes []report.Outcome) map[string]report.Outcome {
	out := make(map[string]report.Outcome, len(outcomes))
	for _, o := range outcomes {
		if _, ok := out[o.Check]; !ok {
			out[o.Check] = o
		}
	}
	return out
}
