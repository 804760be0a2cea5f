package ndc

import "strings"

// primitives are scalar names the harness recognizes even when a schema
// forgets to declare them under scalar_types. Keys are lower case.
var primitives = map[string]bool{
	"boolean":     true,
	"bool":        true,
	"string":      true,
	"text":        true,
	"date":        true,
	"timestamp":   true,
	"timestamptz": true,
	"uuid":        true,
	"json":        true,
	"bytes":       true,
}

// numericPrimitives are scalars treated as numeric when choosing aggregates.
var numericPrimitives = map[string]bool{
	"int":        true,
	"int8":       true,
	"int16":      true,
	"int32":      true,
	"int64":      true,
	"int2":       true,
	"int4":       true,
	"uint8":      true,
	"uint16":     true,
	"uint32":     true,
	"uint64":     true,
	"tinyint":    true,
	"mediumint":  true,
	"integer":    true,
	"bigint":     true,
	"smallint":   true,
	"long":       true,
	"short":      true,
	"byte":       true,
	"float":      true,
	"float32":    true,
	"float64":    true,
	"float4":     true,
	"float8":     true,
	"money":      true,
	"double":     true,
	"real":       true,
	"decimal":    true,
	"bigdecimal": true,
	"number":     true,
	"numeric":    true,
}

// IsPrimitive reports whether name is a built-in scalar, compared
// case-insensitively.
func IsPrimitive(name string) bool {
	n := strings.ToLower(name)
	return primitives[n] || numericPrimitives[n]
}

// IsNumeric reports whether name is a built-in numeric scalar.
func IsNumeric(name string) bool {
	return numericPrimitives[strings.ToLower(name)]
}
