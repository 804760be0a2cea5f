// Package harness runs a full conformance check against one connector.
//
// A run fetches and validates the capabilities and schema documents,
// synthesizes query plans from the schema, executes them and collects every
// outcome in a single report. Only an unreachable connector stops a run
// early; every other failure is recorded and the run carries on.
//
// The package also loads connector scenarios: YAML files pairing a fake
// connector fixture with the outcomes a run against it must produce. They
// back the package tests and the golden trace files under testdata/golden.
package harness
