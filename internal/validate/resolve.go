package validate

import (
	"maps"
	"slices"

	"github.com/roach88/ndc-test/internal/ndc"
)

// resolver looks type names up one level at a time. A reference to an object
// type is satisfied by the declaration alone; the object's own fields are
// checked when that object type is visited, so recursive types terminate.
type resolver struct {
	schema *ndc.SchemaResponse
}

func (r resolver) declared(name string) bool {
	return r.schema.ScalarTypes.Has(name) ||
		r.schema.ObjectTypes.Has(name) ||
		ndc.IsPrimitive(name)
}

// check reports a problem with the reference t found at field, or nil.
func (r resolver) check(field string, t ndc.Type) *Issue {
	name, err := t.Leaf()
	if err != nil {
		is := issuef(field, ErrMalformedType, "%v", err)
		return &is
	}
	if !r.declared(name) {
		is := issuef(field, ErrUnresolvedType, "type %q is not declared", name)
		return &is
	}
	return nil
}

// arguments checks every argument type of a collection or command.
func (r resolver) arguments(prefix string, args ndc.OrderedMap[ndc.ArgumentInfo]) []Issue {
	var issues []Issue
	for _, dup := range args.Duplicates() {
		issues = append(issues, issuef(prefix+"."+dup, ErrDuplicateName, "duplicate argument"))
	}
	for _, arg := range args.Entries() {
		if is := r.check(prefix+"."+arg.Key, arg.Value.Type); is != nil {
			issues = append(issues, *is)
		}
	}
	return issues
}

// fields checks the field types of an object type.
func (r resolver) fields(prefix string, obj ndc.ObjectType) []Issue {
	var issues []Issue
	for _, dup := range obj.Fields.Duplicates() {
		issues = append(issues, issuef(prefix+"."+dup, ErrDuplicateName, "duplicate field"))
	}
	for _, f := range obj.Fields.Entries() {
		if is := r.check(prefix+"."+f.Key, f.Value.Type); is != nil {
			issues = append(issues, *is)
		}
	}
	return issues
}

// duplicates returns the names that occur more than once, in order of their
// second occurrence.
func duplicates(names []string) []string {
	seen := make(map[string]bool, len(names))
	var dups []string
	for _, n := range names {
		if seen[n] {
			dups = append(dups, n)
			continue
		}
		seen[n] = true
	}
	return dups
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
