package ndc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{"b": 1, "a": []any{true, nil, "x"}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true,null,"x"],"b":1}`, string(data))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	data, err := MarshalCanonical(map[string]string{"k": "<a & b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"k":"<a & b>"}`, string(data))
}

func TestMarshalCanonical_NFCNormalizes(t *testing.T) {
	decomposed := "e\u0301"
	composed := "\u00e9"

	a, err := MarshalCanonical(map[string]string{"name": decomposed})
	require.NoError(t, err)
	b, err := MarshalCanonical(map[string]string{"name": composed})
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonical_KeepsNumberLiterals(t *testing.T) {
	limit := 10
	data, err := MarshalCanonical(Query{Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, `{"limit":10}`, string(data))
}

func TestLessUTF16(t *testing.T) {
	// U+1F600 encodes as the surrogate 0xD83D, which sorts before U+FF61 in
	// UTF-16 even though its UTF-8 bytes sort after.
	assert.True(t, lessUTF16("\U0001F600", "\uff61"))
	assert.True(t, lessUTF16("a", "b"))
	assert.True(t, lessUTF16("a", "ab"))
	assert.False(t, lessUTF16("b", "a"))
}

func TestFingerprint_StableAcrossMapOrder(t *testing.T) {
	limit := 5
	req1 := QueryRequest{
		Collection: "articles",
		Query: Query{
			Fields: map[string]Field{"id": ColumnField("id"), "title": ColumnField("title")},
			Limit:  &limit,
		},
	}
	req2 := QueryRequest{
		Collection: "articles",
		Query: Query{
			Fields: map[string]Field{"title": ColumnField("title"), "id": ColumnField("id")},
			Limit:  &limit,
		},
	}

	f1, err := Fingerprint(DomainPlan, req1)
	require.NoError(t, err)
	f2, err := Fingerprint(DomainPlan, req2)
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
	assert.Len(t, f1, 64)

	other, err := Fingerprint("other/domain", req1)
	require.NoError(t, err)
	assert.NotEqual(t, f1, other)
}
