package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/ndc-test/internal/report"
)

const runColumns = `id, endpoint, recorded_at, pass, passed, failed, skipped`

// ListRuns returns every recorded run in insertion order, without outcomes
// or plans.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a run with its outcomes and plans.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err != nil {
		return Run{}, err
	}
	return s.fill(ctx, run)
}

// PreviousRun retrieves the run recorded against the same endpoint just
// before the run with the given id. Returns sql.ErrNoRows if there is none.
func (s *Store) PreviousRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE endpoint = (SELECT endpoint FROM runs WHERE id = ?)
		  AND position < (SELECT position FROM runs WHERE id = ?)
		ORDER BY position DESC
		LIMIT 1
	`, id, id)

	run, err := scanRun(row)
	if err != nil {
		return Run{}, err
	}
	return s.fill(ctx, run)
}

func (s *Store) fill(ctx context.Context, run Run) (Run, error) {
	var err error
	if run.Outcomes, err = s.readOutcomes(ctx, run.ID); err != nil {
		return Run{}, err
	}
	if run.Plans, err = s.readPlans(ctx, run.ID); err != nil {
		return Run{}, err
	}
	return run, nil
}

// readOutcomes returns a run's outcomes ordered by seq.
func (s *Store) readOutcomes(ctx context.Context, runID string) ([]report.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, check_name, status, kind, reason, plan
		FROM outcomes
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []report.Outcome{}
	for rows.Next() {
		var o report.Outcome
		var status, kind string
		if err := rows.Scan(&o.Seq, &o.Check, &status, &kind, &o.Reason, &o.Plan); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Status = report.Status(status)
		o.Kind = report.Kind(kind)
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

// readPlans returns a run's plans in synthesis order.
func (s *Store) readPlans(ctx context.Context, runID string) ([]PlanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, name, kind, target, fingerprint, request
		FROM plans
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	plans := []PlanRecord{}
	for rows.Next() {
		var p PlanRecord
		if err := rows.Scan(&p.Position, &p.Name, &p.Kind, &p.Target, &p.Fingerprint, &p.Request); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return plans, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.Endpoint, &run.RecordedAt, &run.Pass, &run.Passed, &run.Failed, &run.Skipped)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}
