package report

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Status is the verdict of a single check.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Kind classifies a failure. Passes and skips carry KindNone.
type Kind string

const (
	KindNone                   Kind = ""
	KindUnreachable            Kind = "unreachable"
	KindStructural             Kind = "structural"
	KindTransport              Kind = "transport"
	KindShapeMismatch          Kind = "shape_mismatch"
	KindAggregateShapeMismatch Kind = "aggregate_shape_mismatch"
)

// Sentinel markers. Errors returned by the fetch layer are marked with
// ErrUnreachable so callers can test with errors.Is regardless of wrapping.
var (
	ErrUnreachable = errors.New("connector unreachable")
	ErrStructural  = errors.New("structural failure")
)

// Outcome is the immutable result of one named check.
type Outcome struct {
	Check  string `json:"check" yaml:"check"`
	Status Status `json:"status" yaml:"status"`
	Kind   Kind   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Plan is the fingerprint of the query plan that produced the outcome,
	// empty for document checks.
	Plan string `json:"plan,omitempty" yaml:"plan,omitempty"`

	// Seq is assigned by the Report when the outcome is recorded.
	Seq int64 `json:"seq" yaml:"seq"`
}

// Pass builds a passing outcome.
func Pass(check string) Outcome {
	return Outcome{Check: check, Status: StatusPass}
}

// Fail builds a failing outcome.
func Fail(check string, kind Kind, reason string) Outcome {
	return Outcome{Check: check, Status: StatusFail, Kind: kind, Reason: reason}
}

// Failf builds a failing outcome with a formatted reason.
func Failf(check string, kind Kind, format string, args ...any) Outcome {
	return Fail(check, kind, fmt.Sprintf(format, args...))
}

// Skip builds an outcome for a check the harness deliberately declined.
func Skip(check, reason string) Outcome {
	return Outcome{Check: check, Status: StatusSkip, Reason: reason}
}

// ForPlan returns a copy of o attributed to the given plan fingerprint.
func (o Outcome) ForPlan(fingerprint string) Outcome {
	o.Plan = fingerprint
	return o
}

// Line renders the outcome as a single trace line.
func (o Outcome) Line() string {
	switch o.Status {
	case StatusPass:
		return "✓ " + o.Check
	case StatusSkip:
		return fmt.Sprintf("- %s (skipped: %s)", o.Check, o.Reason)
	default:
		if o.Kind != KindNone {
			return fmt.Sprintf("✗ %s [%s]: %s", o.Check, o.Kind, o.Reason)
		}
		return fmt.Sprintf("✗ %s: %s", o.Check, o.Reason)
	}
}
