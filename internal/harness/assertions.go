package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/ndc-test/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Trace    []string // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, line := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, line)
	}

	return buf.String()
}

// assertOutcome checks the first outcome recorded for the assertion's check.
func assertOutcome(result *Result, assertion Assertion) error {
	for _, o := range result.Outcomes {
		if o.Check != assertion.Check {
			continue
		}
		ok := string(o.Status) == assertion.Status &&
			(assertion.Kind == "" || string(o.Kind) == assertion.Kind) &&
			strings.Contains(o.Reason, assertion.Reason)
		if ok {
			return nil
		}
		return &AssertionError{
			Type:     AssertOutcome,
			Expected: describeExpected(assertion),
			Actual:   o.Line(),
			Trace:    result.Trace,
		}
	}
	return &AssertionError{
		Type:     AssertOutcome,
		Expected: describeExpected(assertion),
		Actual:   "no outcome recorded for " + assertion.Check,
		Trace:    result.Trace,
	}
}

func describeExpected(a Assertion) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s is %s", a.Check, a.Status)
	if a.Kind != "" {
		fmt.Fprintf(&buf, " [%s]", a.Kind)
	}
	if a.Reason != "" {
		fmt.Fprintf(&buf, " with reason containing %q", a.Reason)
	}
	return buf.String()
}

// assertTraceOrder checks that the checks appear in the given relative
// order. Other outcomes may appear in between.
func assertTraceOrder(result *Result, assertion Assertion) error {
	next := 0
	for _, o := range result.Outcomes {
		if next < len(assertion.Checks) && o.Check == assertion.Checks[next] {
			next++
		}
	}
	if next == len(assertion.Checks) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(assertion.Checks, " -> "),
		Actual:   fmt.Sprintf("%q not found in order after %d match(es)", assertion.Checks[next], next),
		Trace:    result.Trace,
	}
}

// assertTraceCount checks how often a check was recorded.
func assertTraceCount(result *Result, assertion Assertion) error {
	count := 0
	for _, o := range result.Outcomes {
		if o.Check == assertion.Check {
			count++
		}
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s recorded %d time(s)", assertion.Check, assertion.Count),
		Actual:   fmt.Sprintf("recorded %d time(s)", count),
		Trace:    result.Trace,
	}
}

// assertRequestCount checks how many requests the connector received on a
// path.
func assertRequestCount(conn *testutil.Connector, result *Result, assertion Assertion) error {
	count := conn.Count(assertion.Path)
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRequestCount,
		Expected: fmt.Sprintf("%d request(s) to /%s", assertion.Count, assertion.Path),
		Actual:   fmt.Sprintf("%d request(s)", count),
		Trace:    result.Trace,
	}
}

// AssertionContext provides the connector for request_count assertions.
type AssertionContext struct {
	Connector *testutil.Connector
}

// EvaluateExpectation compares the run summary with the expected tally.
func EvaluateExpectation(result *Result, expect Expectation) []string {
	var errs []string
	s := result.Summary
	if s.Passed != expect.Passed || s.Failed != expect.Failed || s.Skipped != expect.Skipped {
		errs = append(errs, (&AssertionError{
			Type:     "summary",
			Expected: fmt.Sprintf("passed=%d failed=%d skipped=%d", expect.Passed, expect.Failed, expect.Skipped),
			Actual:   fmt.Sprintf("passed=%d failed=%d skipped=%d", s.Passed, s.Failed, s.Skipped),
			Trace:    result.Trace,
		}).Error())
	}
	if result.Pass != (s.Failed == 0) {
		errs = append(errs, fmt.Sprintf("pass=%v inconsistent with %d failure(s)", result.Pass, s.Failed))
	}
	return errs
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides the connector for request_count assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertOutcome:
			err = assertOutcome(result, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result, assertion)
		case AssertRequestCount:
			if actx == nil || actx.Connector == nil {
				err = fmt.Errorf("assertion[%d]: request_count requires a connector", i)
			} else {
				err = assertRequestCount(actx.Connector, result, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
