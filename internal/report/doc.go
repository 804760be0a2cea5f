// Package report collects the outcome of every check a run performs.
//
// Each validation step and each executed query plan produces exactly one
// Outcome: Pass, Fail (with a Kind and a reason) or Skip (with a reason).
// Outcomes are values; components return them instead of raising errors so
// one failing table never aborts its siblings. The only fatal condition of
// a run, an unreachable connector, is reported as an error marked with
// ErrUnreachable.
package report
