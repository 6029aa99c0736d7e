package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"digestpipe/internal/domain"
)

// RunRepo persists run lifecycle records. Begin and Finish are each a
// single-statement write, never grouped with item upserts in one
// transaction, so a run record always reflects reality even if a source's
// batch upsert rolled back.
type RunRepo struct {
	db *sql.DB
}

func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) Begin(ctx context.Context, runID string, startedAt time.Time) error {
	const query = `INSERT INTO runs (run_id, started_at, success) VALUES (?, ?, NULL)`
	_, err := r.db.ExecContext(ctx, query, runID, startedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("Begin: %w", err)
	}
	return nil
}

func (r *RunRepo) Finish(ctx context.Context, runID string, finishedAt time.Time, success bool, errorSummary string) error {
	const query = `UPDATE runs SET finished_at = ?, success = ?, error_summary = ? WHERE run_id = ?`
	var summary sql.NullString
	if errorSummary != "" {
		summary = sql.NullString{String: errorSummary, Valid: true}
	}
	successInt := 0
	if success {
		successInt = 1
	}
	res, err := r.db.ExecContext(ctx, query, finishedAt.UTC().Format(time.RFC3339), successInt, summary, runID)
	if err != nil {
		return fmt.Errorf("Finish: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Finish: RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Finish: no run with id %q", runID)
	}
	return nil
}

// LastSuccessful returns the started_at of the most recent run with
// success = true, used to compute the "new since last run" delta query.
func (r *RunRepo) LastSuccessful(ctx context.Context) (time.Time, bool, error) {
	const query = `SELECT started_at FROM runs WHERE success = 1 ORDER BY started_at DESC LIMIT 1`
	var startedAt string
	err := r.db.QueryRowContext(ctx, query).Scan(&startedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("LastSuccessful: %w", err)
	}
	t, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("LastSuccessful: parse: %w", err)
	}
	return t, true, nil
}

func (r *RunRepo) ByID(ctx context.Context, runID string) (domain.RunRecord, bool, error) {
	const query = `SELECT run_id, started_at, finished_at, success, error_summary FROM runs WHERE run_id = ?`
	var record domain.RunRecord
	var finishedAt, errorSummary sql.NullString
	var success sql.NullInt64
	var startedAt string

	err := r.db.QueryRowContext(ctx, query, runID).Scan(&record.RunID, &startedAt, &finishedAt, &success, &errorSummary)
	if err == sql.ErrNoRows {
		return domain.RunRecord{}, false, nil
	}
	if err != nil {
		return domain.RunRecord{}, false, fmt.Errorf("ByID: %w", err)
	}

	record.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339, finishedAt.String)
		if err == nil {
			record.FinishedAt = &t
		}
	}
	record.ErrorSummary = errorSummary.String
	if !success.Valid {
		record.Success = domain.RunSuccessUnknown
	} else if success.Int64 == 1 {
		record.Success = domain.RunSuccessTrue
	} else {
		record.Success = domain.RunSuccessFalse
	}

	return record, true, nil
}
