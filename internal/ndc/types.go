package ndc

import "encoding/json"

// CapabilitiesResponse is the body of GET /capabilities.
type CapabilitiesResponse struct {
	Version      string       `json:"version" yaml:"version"`
	Capabilities Capabilities `json:"capabilities" yaml:"capabilities"`
}

// LeafCapability marks a feature as declared. On the wire it is an empty
// object; absence (or null) means the feature is not supported.
type LeafCapability struct{}

// Capabilities lists the optional protocol features a connector implements.
// Unknown keys are ignored.
type Capabilities struct {
	Query         *QueryCapabilities        `json:"query,omitempty" yaml:"query,omitempty"`
	Mutation      *MutationCapabilities     `json:"mutation,omitempty" yaml:"mutation,omitempty"`
	Relationships *RelationshipCapabilities `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

type QueryCapabilities struct {
	Aggregates *LeafCapability `json:"aggregates,omitempty" yaml:"aggregates,omitempty"`
	Variables  *LeafCapability `json:"variables,omitempty" yaml:"variables,omitempty"`
	Explain    *LeafCapability `json:"explain,omitempty" yaml:"explain,omitempty"`
}

type MutationCapabilities struct {
	Transactional *LeafCapability `json:"transactional,omitempty" yaml:"transactional,omitempty"`
	Explain       *LeafCapability `json:"explain,omitempty" yaml:"explain,omitempty"`
}

type RelationshipCapabilities struct {
	RelationComparisons *LeafCapability `json:"relation_comparisons,omitempty" yaml:"relation_comparisons,omitempty"`
	OrderByAggregate    *LeafCapability `json:"order_by_aggregate,omitempty" yaml:"order_by_aggregate,omitempty"`
}

// SupportsAggregates reports whether query.aggregates is declared.
func (c Capabilities) SupportsAggregates() bool {
	return c.Query != nil && c.Query.Aggregates != nil
}

// SupportsExplain reports whether query.explain is declared.
func (c Capabilities) SupportsExplain() bool {
	return c.Query != nil && c.Query.Explain != nil
}

// SchemaResponse is the body of GET /schema.
type SchemaResponse struct {
	ScalarTypes OrderedMap[ScalarType] `json:"scalar_types"`
	ObjectTypes OrderedMap[ObjectType] `json:"object_types"`
	Collections []CollectionInfo       `json:"collections"`
	Functions   []FunctionInfo         `json:"functions"`
	Procedures  []ProcedureInfo        `json:"procedures"`
}

// ScalarType describes a scalar and the aggregate functions and comparison
// operators it supports.
type ScalarType struct {
	AggregateFunctions  OrderedMap[AggregateFunctionDefinition] `json:"aggregate_functions"`
	ComparisonOperators map[string]json.RawMessage              `json:"comparison_operators"`
}

type AggregateFunctionDefinition struct {
	ResultType Type `json:"result_type"`
}

// ObjectType is a named record type.
type ObjectType struct {
	Description string                  `json:"description,omitempty"`
	Fields      OrderedMap[ObjectField] `json:"fields"`
}

type ObjectField struct {
	Description string `json:"description,omitempty"`
	Type        Type   `json:"type"`
}

// ArgumentInfo describes an argument to a collection or command.
type ArgumentInfo struct {
	Description string `json:"description,omitempty"`
	Type        Type   `json:"type"`
}

// Required reports whether a value must be supplied. Nullable arguments may
// be omitted.
func (a ArgumentInfo) Required() bool {
	return !a.Type.IsNullable()
}

// CollectionInfo describes a queryable collection. Its columns are the fields
// of the object type named by Type.
type CollectionInfo struct {
	Name                  string                           `json:"name"`
	Description           string                           `json:"description,omitempty"`
	Arguments             OrderedMap[ArgumentInfo]         `json:"arguments"`
	Type                  string                           `json:"type"`
	UniquenessConstraints map[string]UniquenessConstraint  `json:"uniqueness_constraints,omitempty"`
	ForeignKeys           OrderedMap[ForeignKeyConstraint] `json:"foreign_keys"`
}

type UniquenessConstraint struct {
	UniqueColumns []string `json:"unique_columns"`
}

type ForeignKeyConstraint struct {
	ColumnMapping     map[string]string `json:"column_mapping"`
	ForeignCollection string            `json:"foreign_collection"`
}

// FunctionInfo describes a read-only command, invoked through /query.
type FunctionInfo struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Arguments   OrderedMap[ArgumentInfo] `json:"arguments"`
	ResultType  Type                     `json:"result_type"`
}

// ProcedureInfo describes a mutating command, invoked through /mutation.
type ProcedureInfo struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Arguments   OrderedMap[ArgumentInfo] `json:"arguments"`
	ResultType  Type                     `json:"result_type"`
}

// Column is a collection column derived from its row object type.
type Column struct {
	Name     string
	Type     Type
	Nullable bool
}

// Columns returns the columns of a collection in declaration order. ok is
// false when the row type is not declared.
func (s *SchemaResponse) Columns(c CollectionInfo) ([]Column, bool) {
	obj, ok := s.ObjectTypes.Get(c.Type)
	if !ok {
		return nil, false
	}
	cols := make([]Column, 0, obj.Fields.Len())
	for _, f := range obj.Fields.Entries() {
		cols = append(cols, Column{
			Name:     f.Key,
			Type:     f.Value.Type,
			Nullable: f.Value.Type.IsNullable(),
		})
	}
	return cols, true
}

// Collection looks up a collection by name.
func (s *SchemaResponse) Collection(name string) (CollectionInfo, bool) {
	for _, c := range s.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return CollectionInfo{}, false
}

// RowTypes maps each object type used as a row type to the first collection
// that uses it.
func (s *SchemaResponse) RowTypes() map[string]string {
	out := make(map[string]string, len(s.Collections))
	for _, c := range s.Collections {
		if _, ok := out[c.Type]; !ok {
			out[c.Type] = c.Name
		}
	}
	return out
}
