package store

import (
	"context"
	"fmt"
)

// WriteRun records a run with its outcomes and plans in one transaction.
// RecordedAt is stamped from the store's clock; any value on run is ignored.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing a run id that is
// already recorded leaves the existing record untouched and returns
// inserted=false.
func (s *Store) WriteRun(ctx context.Context, run Run) (inserted bool, err error) {
	if run.ID == "" {
		return false, fmt.Errorf("write run: id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, endpoint, recorded_at, pass, passed, failed, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Endpoint,
		s.clock.Now().UTC().Format(timeLayout),
		run.Pass,
		run.Passed,
		run.Failed,
		run.Skipped,
	)
	if err != nil {
		return false, fmt.Errorf("write run: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write run: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	for _, o := range run.Outcomes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO outcomes
			(run_id, seq, check_name, status, kind, reason, plan)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			o.Seq,
			o.Check,
			string(o.Status),
			string(o.Kind),
			o.Reason,
			o.Plan,
		)
		if err != nil {
			return false, fmt.Errorf("write run: outcome %d: %w", o.Seq, err)
		}
	}

	for _, p := range run.Plans {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO plans
			(run_id, position, name, kind, target, fingerprint, request)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			p.Position,
			p.Name,
			p.Kind,
			p.Target,
			p.Fingerprint,
			p.Request,
		)
		if err != nil {
			return false, fmt.Errorf("write run: plan %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write run: commit: %w", err)
	}

	return true, nil
}
