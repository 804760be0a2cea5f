package synth

import (
	"fmt"

	"github.com/roach88/ndc-test/internal/ndc"
	"github.com/roach88/ndc-test/internal/report"
)

// DefaultRowLimit bounds the rows requested by simple plans.
const DefaultRowLimit = 10

// Skip reasons.
const (
	ReasonRequiresArguments  = "requires arguments"
	ReasonRelationships      = "relationships present but untested"
	ReasonProceduresDisabled = "procedure invocation disabled"
	ReasonRowTypeUndeclared  = "row type not declared"
)

// Aggregate keys and functions chosen for aggregate plans.
const (
	CountKey     = "count"
	MaxFunction  = "max"
	SumFunction  = "sum"
	AvgFunction  = "avg"
	maxKeySuffix = "_" + MaxFunction
)

// Options tunes synthesis.
type Options struct {
	// RowLimit is the limit sent with simple plans. Zero means DefaultRowLimit.
	RowLimit int

	// SkipProcedures suppresses procedure plans, which mutate connector state.
	SkipProcedures bool
}

func (o Options) rowLimit() int {
	if o.RowLimit <= 0 {
		return DefaultRowLimit
	}
	return o.RowLimit
}

// Synthesize walks schema and returns the plans to run, in collection then
// command declaration order, along with Skip outcomes for everything it
// declined. caps may be nil, in which case no optional feature is assumed.
func Synthesize(schema *ndc.SchemaResponse, caps *ndc.CapabilitiesResponse, opts Options) ([]Plan, []report.Outcome) {
	s := synthesizer{
		schema:   schema,
		rowTypes: schema.RowTypes(),
		opts:     opts,
	}
	if caps != nil {
		s.caps = caps.Capabilities
	}

	for _, c := range schema.Collections {
		s.collection(c)
	}
	for _, f := range schema.Functions {
		s.function(f)
	}
	for _, p := range schema.Procedures {
		s.procedure(p)
	}
	return s.plans, s.skips
}

type synthesizer struct {
	schema   *ndc.SchemaResponse
	caps     ndc.Capabilities
	rowTypes map[string]string
	opts     Options

	plans []Plan
	skips []report.Outcome
}

// QueryName, AggregateName and the other name helpers give the check names
// plans report under.
func QueryName(collection string) string     { return "query " + collection }
func AggregateName(collection string) string { return "query " + collection + ": aggregates" }
func ExplainName(collection string) string   { return "explain " + collection }
func FunctionName(function string) string    { return "query function " + function }
func ProcedureName(procedure string) string  { return "mutation procedure " + procedure }

func (s *synthesizer) collection(c ndc.CollectionInfo) {
	if requiresArguments(c.Arguments) {
		s.skip(QueryName(c.Name), ReasonRequiresArguments)
		return
	}
	columns, ok := s.schema.Columns(c)
	if !ok {
		s.skip(QueryName(c.Name), ReasonRowTypeUndeclared)
		return
	}

	var selected []ndc.Column
	for _, col := range columns {
		if s.isRelationship(col) {
			continue
		}
		selected = append(selected, col)
	}

	names := make([]string, len(selected))
	for i, col := range selected {
		names[i] = col.Name
	}

	simple := Plan{
		Name:    QueryName(c.Name),
		Kind:    KindSimple,
		Target:  c.Name,
		Columns: names,
		Limit:   s.opts.rowLimit(),
	}
	s.add(simple)

	if s.caps.SupportsAggregates() {
		s.add(Plan{
			Name:       AggregateName(c.Name),
			Kind:       KindAggregate,
			Target:     c.Name,
			Aggregates: s.aggregates(selected),
		})
	}

	if s.caps.SupportsExplain() {
		explain := simple
		explain.Name = ExplainName(c.Name)
		explain.Kind = KindExplain
		s.add(explain)
	}

	if c.ForeignKeys.Len() > 0 {
		s.skip("collection "+c.Name+": relationships", ReasonRelationships)
	}
}

// isRelationship reports whether col holds rows of a collection rather than a
// plain value.
func (s *synthesizer) isRelationship(col ndc.Column) bool {
	name, err := col.Type.Leaf()
	if err != nil {
		return false
	}
	_, ok := s.rowTypes[name]
	return ok
}

// aggregates requests a row count plus the max of every numeric column.
func (s *synthesizer) aggregates(columns []ndc.Column) []AggregateSpec {
	used := make(map[string]bool)
	specs := []AggregateSpec{{
		Key:       uniqueKey(used, CountKey),
		Aggregate: ndc.Aggregate{Type: ndc.AggregateStarCount},
	}}
	for _, col := range columns {
		if !s.isNumeric(col) {
			continue
		}
		specs = append(specs, AggregateSpec{
			Key: uniqueKey(used, col.Name+maxKeySuffix),
			Aggregate: ndc.Aggregate{
				Type:     ndc.AggregateSingleColumn,
				Column:   col.Name,
				Function: MaxFunction,
			},
		})
	}
	return specs
}

// isNumeric reports whether col is a numeric scalar that supports max. A
// scalar is numeric when its name is a known numeric type or when it declares
// sum or avg. A scalar that declares no aggregate functions is assumed to
// support max.
func (s *synthesizer) isNumeric(col ndc.Column) bool {
	name, ok := col.Type.NamedType()
	if !ok {
		return false
	}
	scalar, declared := s.schema.ScalarTypes.Get(name)
	funcs := scalar.AggregateFunctions
	if !ndc.IsNumeric(name) && !(declared && (funcs.Has(SumFunction) || funcs.Has(AvgFunction))) {
		return false
	}
	if !declared || funcs.Len() == 0 {
		return true
	}
	return funcs.Has(MaxFunction)
}

func (s *synthesizer) function(f ndc.FunctionInfo) {
	name := FunctionName(f.Name)
	if requiresArguments(f.Arguments) {
		s.skip(name, ReasonRequiresArguments)
		return
	}
	s.add(Plan{
		Name:    name,
		Kind:    KindFunction,
		Target:  f.Name,
		Columns: []string{ndc.FunctionValueField},
	})
}

func (s *synthesizer) procedure(p ndc.ProcedureInfo) {
	name := ProcedureName(p.Name)
	switch {
	case requiresArguments(p.Arguments):
		s.skip(name, ReasonRequiresArguments)
	case s.opts.SkipProcedures:
		s.skip(name, ReasonProceduresDisabled)
	default:
		s.add(Plan{Name: name, Kind: KindProcedure, Target: p.Name})
	}
}

func (s *synthesizer) add(p Plan) {
	p.Fingerprint = fingerprint(p.Request())
	s.plans = append(s.plans, p)
}

func (s *synthesizer) skip(check, reason string) {
	s.skips = append(s.skips, report.Skip(check, reason))
}

func requiresArguments(args ndc.OrderedMap[ndc.ArgumentInfo]) bool {
	for _, a := range args.Entries() {
		if a.Value.Required() {
			return true
		}
	}
	return false
}

// uniqueKey returns base, or base with the smallest numeric suffix that is
// not yet used, and marks the result used.
func uniqueKey(used map[string]bool, base string) string {
	key := base
	for i := 1; used[key]; i++ {
		key = fmt.Sprintf("%s_%d", base, i)
	}
	used[key] = true
	return key
}

// fingerprint hashes a wire request. Requests built by Plan always encode.
func fingerprint(req any) string {
	fp, _ := ndc.Fingerprint(ndc.DomainPlan, req)
	return fp
}
