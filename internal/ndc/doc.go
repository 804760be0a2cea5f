// Package ndc defines the wire model of the data connector protocol as seen
// by a conformance client.
//
// The package has no behavior beyond decoding, encoding and small lookup
// helpers. Everything else in ndc-test depends on it:
//
//   - CapabilitiesResponse: GET /capabilities
//   - SchemaResponse: GET /schema (scalar types, object types, collections,
//     functions, procedures)
//   - QueryRequest / QueryResponse: POST /query and POST /explain
//   - MutationRequest / MutationResponse: POST /mutation
//   - ErrorResponse: body of any non-2xx reply
//
// # Ordering
//
// JSON objects whose key order is meaningful to the harness (object type
// fields, collection arguments, scalar and object type tables) decode into
// OrderedMap, which keeps declaration order and records duplicate keys
// instead of silently overwriting them. Iterating a schema therefore yields
// the same order on every run.
//
// # Type references
//
// Types are a closed set of tagged variants (named, nullable, array). Named
// references are resolved by lookup in the schema's type tables, one level at
// a time, so recursive object types never cause unbounded expansion.
package ndc
