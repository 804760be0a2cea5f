// Package store records conformance runs in SQLite.
//
// A recorded run keeps three things:
//   - Runs: one row per run with its endpoint and tally
//   - Outcomes: every check the run recorded, keyed by (run_id, seq)
//   - Plans: every synthesized plan with its fingerprint and canonical request
//
// # Ordering
//
// All reads order by integer positions (runs.position, outcomes.seq,
// plans.position), never by timestamps, so a run reads back exactly as it
// was recorded.
//
// # Idempotency
//
// Writing a run whose id is already recorded is a no-op. Plan requests are
// stored as canonical JSON, so a fingerprint always names the same bytes.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
