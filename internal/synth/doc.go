// Package synth derives query plans from a connector's schema.
//
// Synthesis is pure: the same schema, capabilities and options always yield
// the same ordered plans, each with the same fingerprint. Collections and
// commands that need arguments the harness cannot invent are skipped with an
// outcome instead of a plan.
package synth
