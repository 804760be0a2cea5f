package synth

import (
	"encoding/json"

	"github.com/roach88/ndc-test/internal/ndc"
)

// Kind distinguishes the requests a plan issues.
type Kind string

const (
	KindSimple    Kind = "simple"
	KindAggregate Kind = "aggregate"
	KindExplain   Kind = "explain"
	KindFunction  Kind = "function"
	KindProcedure Kind = "procedure"
)

// AggregateSpec is one requested aggregate under its response key.
type AggregateSpec struct {
	Key       string        `json:"key" yaml:"key"`
	Aggregate ndc.Aggregate `json:"aggregate" yaml:"aggregate"`
}

// Plan is a single synthesized request and the response shape it expects.
type Plan struct {
	Name       string          `json:"name" yaml:"name"`
	Kind       Kind            `json:"kind" yaml:"kind"`
	Target     string          `json:"target" yaml:"target"`
	Columns    []string        `json:"columns,omitempty" yaml:"columns,omitempty"`
	Aggregates []AggregateSpec `json:"aggregates,omitempty" yaml:"aggregates,omitempty"`
	Limit      int             `json:"limit,omitempty" yaml:"limit,omitempty"`

	// Fingerprint identifies the wire request; see ndc.Fingerprint.
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
}

// Path returns the endpoint the plan is posted to.
func (p Plan) Path() string {
	switch p.Kind {
	case KindExplain:
		return ndc.PathExplain
	case KindProcedure:
		return ndc.PathMutation
	default:
		return ndc.PathQuery
	}
}

// AggregateKeys returns the requested aggregate keys in order.
func (p Plan) AggregateKeys() []string {
	keys := make([]string, len(p.Aggregates))
	for i, a := range p.Aggregates {
		keys[i] = a.Key
	}
	return keys
}

// Request builds the wire body for the plan.
func (p Plan) Request() any {
	if p.Kind == KindProcedure {
		return p.MutationRequest()
	}
	return p.QueryRequest()
}

// QueryRequest builds the /query (or /explain) body. Arguments and
// relationships are always sent as empty objects.
func (p Plan) QueryRequest() ndc.QueryRequest {
	q := ndc.Query{}
	if len(p.Columns) > 0 {
		q.Fields = make(map[string]ndc.Field, len(p.Columns))
		for _, col := range p.Columns {
			q.Fields[col] = ndc.ColumnField(col)
		}
	}
	if len(p.Aggregates) > 0 {
		q.Aggregates = make(map[string]ndc.Aggregate, len(p.Aggregates))
		for _, a := range p.Aggregates {
			q.Aggregates[a.Key] = a.Aggregate
		}
	}
	if p.Limit > 0 {
		limit := p.Limit
		q.Limit = &limit
	}
	return ndc.QueryRequest{
		Collection:              p.Target,
		Query:                   q,
		Arguments:               map[string]json.RawMessage{},
		CollectionRelationships: map[string]json.RawMessage{},
	}
}

// MutationRequest builds the /mutation body invoking the target procedure
// once with no arguments.
func (p Plan) MutationRequest() ndc.MutationRequest {
	return ndc.MutationRequest{
		Operations: []ndc.MutationOperation{{
			Type:      "procedure",
			Name:      p.Target,
			Arguments: map[string]json.RawMessage{},
		}},
		CollectionRelationships: map[string]json.RawMessage{},
	}
}
