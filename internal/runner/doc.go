// Package runner executes synthesized plans against a connector and checks
// each response against the shape its plan requested.
package runner
