package ndc

import "encoding/json"

// FieldColumn is the only field variant the harness synthesizes.
const FieldColumn = "column"

// Aggregate variants.
const (
	AggregateStarCount    = "star_count"
	AggregateColumnCount  = "column_count"
	AggregateSingleColumn = "single_column"
)

// FunctionValueField is the column a function exposes its result under when
// queried as a collection.
const FunctionValueField = "__value"

// QueryRequest is the body of POST /query and POST /explain.
type QueryRequest struct {
	Collection              string                     `json:"collection"`
	Query                   Query                      `json:"query"`
	Arguments               map[string]json.RawMessage `json:"arguments"`
	CollectionRelationships map[string]json.RawMessage `json:"collection_relationships"`
}

// Query selects fields and aggregates from a collection. Predicates and
// ordering are never synthesized, so they are not modelled.
type Query struct {
	Aggregates map[string]Aggregate `json:"aggregates,omitempty"`
	Fields     map[string]Field     `json:"fields,omitempty"`
	Limit      *int                 `json:"limit,omitempty"`
}

// Field selects a column under an alias.
type Field struct {
	Type   string `json:"type"`
	Column string `json:"column"`
}

// ColumnField selects column by name.
func ColumnField(column string) Field {
	return Field{Type: FieldColumn, Column: column}
}

// Aggregate is a tagged aggregate expression.
type Aggregate struct {
	Type     string `json:"type"`
	Column   string `json:"column,omitempty"`
	Function string `json:"function,omitempty"`
}

// IsCount reports whether the aggregate yields a row count.
func (a Aggregate) IsCount() bool {
	return a.Type == AggregateStarCount || a.Type == AggregateColumnCount
}

// Row is a single result row keyed by field alias.
type Row map[string]json.RawMessage

// RowSet is the result for one set of variables. Rows is nil when the
// connector omitted it (or sent null); an empty table yields a non-nil empty
// slice.
type RowSet struct {
	Aggregates map[string]json.RawMessage `json:"aggregates,omitempty"`
	Rows       []Row                      `json:"rows"`
}

// QueryResponse is the body returned by POST /query, one RowSet per variable
// set (exactly one when no variables were sent).
type QueryResponse []RowSet

// ExplainResponse is the body returned by POST /explain.
type ExplainResponse struct {
	Details map[string]string `json:"details"`
}

// MutationRequest is the body of POST /mutation.
type MutationRequest struct {
	Operations              []MutationOperation        `json:"operations"`
	CollectionRelationships map[string]json.RawMessage `json:"collection_relationships"`
}

// MutationOperation invokes a procedure.
type MutationOperation struct {
	Type      string                     `json:"type"`
	Name      string                     `json:"name"`
	Arguments map[string]json.RawMessage `json:"arguments"`
	Fields    json.RawMessage            `json:"fields,omitempty"`
}

// MutationResponse is the body returned by POST /mutation. Results are kept
// raw; the harness only checks how many there are.
type MutationResponse struct {
	OperationResults []json.RawMessage `json:"operation_results"`
}

// ErrorResponse is the body of any non-2xx reply.
type ErrorResponse struct {
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}
