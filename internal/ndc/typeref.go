package ndc

import "fmt"

// TypeKind tags the variant of a Type.
type TypeKind string

const (
	TypeNamed    TypeKind = "named"
	TypeNullable TypeKind = "nullable"
	TypeArray    TypeKind = "array"
)

// Type is a reference to a scalar or object type, possibly wrapped in
// nullable and array constructors.
type Type struct {
	Kind           TypeKind `json:"type" yaml:"type"`
	Name           string   `json:"name,omitempty" yaml:"name,omitempty"`
	UnderlyingType *Type    `json:"underlying_type,omitempty" yaml:"underlying_type,omitempty"`
	ElementType    *Type    `json:"element_type,omitempty" yaml:"element_type,omitempty"`
}

// Named returns a reference to the type called name.
func Named(name string) Type {
	return Type{Kind: TypeNamed, Name: name}
}

// Nullable wraps t in the nullable constructor.
func Nullable(t Type) Type {
	return Type{Kind: TypeNullable, UnderlyingType: &t}
}

// ArrayOf wraps t in the array constructor.
func ArrayOf(t Type) Type {
	return Type{Kind: TypeArray, ElementType: &t}
}

// IsNullable reports whether the outermost constructor is nullable.
func (t Type) IsNullable() bool {
	return t.Kind == TypeNullable
}

// NamedType strips nullable wrappers and returns the named type underneath.
// ok is false when the reference is an array or malformed.
func (t Type) NamedType() (name string, ok bool) {
	cur := &t
	for cur != nil {
		switch cur.Kind {
		case TypeNamed:
			return cur.Name, cur.Name != ""
		case TypeNullable:
			cur = cur.UnderlyingType
		default:
			return "", false
		}
	}
	return "", false
}

// Leaf verifies the variant is well formed and returns the named type at
// its leaf. It does not look the name up.
func (t Type) Leaf() (string, error) {
	cur := &t
	for {
		if cur == nil {
			return "", fmt.Errorf("missing type reference")
		}
		switch cur.Kind {
		case TypeNamed:
			if cur.Name == "" {
				return "", fmt.Errorf("named type without a name")
			}
			return cur.Name, nil
		case TypeNullable:
			if cur.UnderlyingType == nil {
				return "", fmt.Errorf("nullable type without underlying_type")
			}
			cur = cur.UnderlyingType
		case TypeArray:
			if cur.ElementType == nil {
				return "", fmt.Errorf("array type without element_type")
			}
			cur = cur.ElementType
		case "":
			return "", fmt.Errorf("type reference without a type tag")
		default:
			return "", fmt.Errorf("unknown type variant %q", cur.Kind)
		}
	}
}

// String renders the reference compactly, e.g. "array<nullable<Int>>".
func (t Type) String() string {
	switch t.Kind {
	case TypeNamed:
		return t.Name
	case TypeNullable:
		if t.UnderlyingType == nil {
			return "nullable<?>"
		}
		return "nullable<" + t.UnderlyingType.String() + ">"
	case TypeArray:
		if t.ElementType == nil {
			return "array<?>"
		}
		return "array<" + t.ElementType.String() + ">"
	default:
		return fmt.Sprintf("<%s>", t.Kind)
	}
}
