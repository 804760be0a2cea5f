package ndc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_DecodeVariants(t *testing.T) {
	var typ Type
	err := json.Unmarshal([]byte(`{"type":"array","element_type":{"type":"nullable","underlying_type":{"type":"named","name":"Int"}}}`), &typ)
	require.NoError(t, err)

	assert.Equal(t, TypeArray, typ.Kind)
	assert.Equal(t, "array<nullable<Int>>", typ.String())

	leaf, err := typ.Leaf()
	require.NoError(t, err)
	assert.Equal(t, "Int", leaf)
}

func TestType_NamedType(t *testing.T) {
	tests := []struct {
		name   string
		typ    Type
		want   string
		wantOK bool
	}{
		{"named", Named("Int"), "Int", true},
		{"nullable", Nullable(Named("String")), "String", true},
		{"nested_nullable", Nullable(Nullable(Named("Float"))), "Float", true},
		{"array", ArrayOf(Named("Int")), "", false},
		{"nullable_array", Nullable(ArrayOf(Named("Int"))), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.typ.NamedType()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestType_LeafErrors(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		msg  string
	}{
		{"empty_tag", Type{}, "without a type tag"},
		{"unknown_tag", Type{Kind: "predicate"}, `unknown type variant "predicate"`},
		{"named_without_name", Type{Kind: TypeNamed}, "without a name"},
		{"nullable_without_underlying", Type{Kind: TypeNullable}, "underlying_type"},
		{"array_without_element", Type{Kind: TypeArray}, "element_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.typ.Leaf()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestArgumentInfo_Required(t *testing.T) {
	assert.True(t, ArgumentInfo{Type: Named("Int")}.Required())
	assert.False(t, ArgumentInfo{Type: Nullable(Named("Int"))}.Required())
}
