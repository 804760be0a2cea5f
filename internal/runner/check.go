package runner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/roach88/ndc-test/internal/ndc"
	"github.com/roach88/ndc-test/internal/report"
	"github.com/roach88/ndc-test/internal/synth"
)

// CheckQueryResponse checks a /query response against plan. Rows must carry
// exactly the requested columns and aggregates exactly the requested keys,
// with counts as non-negative integers.
func CheckQueryResponse(plan synth.Plan, resp ndc.QueryResponse) report.Outcome {
	if len(resp) != 1 {
		return report.Failf(plan.Name, report.KindShapeMismatch, "expected 1 row set, got %d", len(resp))
	}
	rs := resp[0]

	if reason := checkRows(plan, rs.Rows); reason != "" {
		return report.Fail(plan.Name, report.KindShapeMismatch, reason)
	}
	if reason := checkAggregates(plan, rs.Aggregates); reason != "" {
		return report.Fail(plan.Name, report.KindAggregateShapeMismatch, reason)
	}
	return report.Pass(plan.Name)
}

func checkRows(plan synth.Plan, rows []ndc.Row) string {
	if rows == nil {
		if len(plan.Columns) > 0 {
			return "rows missing from row set"
		}
		return ""
	}
	if plan.Limit > 0 && len(rows) > plan.Limit {
		return fmt.Sprintf("returned %d rows, limit was %d", len(rows), plan.Limit)
	}
	for i, row := range rows {
		if diff := keyDiff(plan.Columns, keys(row)); diff != "" {
			return fmt.Sprintf("row %d: %s", i, diff)
		}
	}
	return ""
}

func checkAggregates(plan synth.Plan, aggregates map[string]json.RawMessage) string {
	if len(plan.Aggregates) == 0 {
		if len(aggregates) > 0 {
			return "aggregates returned but none requested: " + strings.Join(keys(aggregates), ", ")
		}
		return ""
	}
	if aggregates == nil {
		return "aggregates missing from row set"
	}
	if diff := keyDiff(plan.AggregateKeys(), keys(aggregates)); diff != "" {
		return "aggregates: " + diff
	}
	for _, agg := range plan.Aggregates {
		if !agg.Aggregate.IsCount() {
			continue
		}
		if !isNonNegativeInteger(aggregates[agg.Key]) {
			return fmt.Sprintf("aggregate %q: count %s is not a non-negative integer", agg.Key, aggregates[agg.Key])
		}
	}
	return ""
}

func isNonNegativeInteger(raw json.RawMessage) bool {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return false
	}
	n, ok := v.(json.Number)
	if !ok {
		return false
	}
	f, _, err := big.ParseFloat(string(n), 10, 256, big.ToNearestEven)
	return err == nil && f.IsInt() && f.Sign() >= 0
}

// CheckExplainResponse checks that a /explain body carries a details object
// of string values.
func CheckExplainResponse(plan synth.Plan, raw json.RawMessage) report.Outcome {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return report.Fail(plan.Name, report.KindShapeMismatch, "explain response is not an object")
	}
	detailsRaw, ok := body["details"]
	if !ok {
		return report.Fail(plan.Name, report.KindShapeMismatch, "explain response has no details")
	}
	var details map[string]any
	if err := json.Unmarshal(detailsRaw, &details); err != nil || details == nil {
		return report.Fail(plan.Name, report.KindShapeMismatch, "explain details is not an object")
	}
	for _, k := range keys(details) {
		if _, isString := details[k].(string); !isString {
			return report.Failf(plan.Name, report.KindShapeMismatch, "explain detail %q is not a string", k)
		}
	}
	return report.Pass(plan.Name)
}

// CheckMutationResponse checks that a /mutation body holds one result per
// operation sent.
func CheckMutationResponse(plan synth.Plan, resp ndc.MutationResponse) report.Outcome {
	want := len(plan.MutationRequest().Operations)
	if got := len(resp.OperationResults); got != want {
		return report.Failf(plan.Name, report.KindShapeMismatch,
			"expected %d operation result(s), got %d", want, got)
	}
	return report.Pass(plan.Name)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// keyDiff describes how got differs from want, or returns "" when the sets
// are equal.
func keyDiff(want, got []string) string {
	wantSet := make(map[string]bool, len(want))
	for _, k := range want {
		wantSet[k] = true
	}
	gotSet := make(map[string]bool, len(got))
	for _, k := range got {
		gotSet[k] = true
	}

	var missing, extra []string
	for _, k := range want {
		if !gotSet[k] {
			missing = append(missing, k)
		}
	}
	for _, k := range got {
		if !wantSet[k] {
			extra = append(extra, k)
		}
	}
	slices.Sort(missing)
	slices.Sort(extra)

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(extra, ", "))
	}
	return strings.Join(parts, "; ")
}
