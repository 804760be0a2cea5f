// Package validate fetches the capabilities and schema documents of a
// connector and checks them structurally.
//
// Checking happens in two layers. Embedded CUE definitions confirm that the
// required top-level fields are present; a failure there is fatal for the
// document. The decoded document is then walked in Go: every type reference
// is resolved by name against the declared scalar and object types, and
// duplicate names are reported. Those failures are soft and accumulate, one
// report.Outcome per checked unit.
package validate
