package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ideaminer/internal/domain"
)

// ErrRunNotFound is returned when no run exists under the queried id.
var ErrRunNotFound = errors.New("scheduled run not found")

// runColumns lists the columns of scheduled_runs rows.
const runColumns = `id, source_name, started_at, completed_at, status,
	fetched, transformed, staged, error_message, warnings, metadata`

// RunRepository handles persistence of scheduled runs.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a run repository on the given connection.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run record.
func (r *RunRepository) Create(ctx context.Context, run *domain.ScheduledRun) error {
	query := `
		INSERT INTO scheduled_runs (
			id, source_name, started_at, completed_at, status,
			fetched, transformed, staged, error_message, warnings, metadata
		) VALUES (
			:id, :source_name, :started_at, :completed_at, :status,
			:fetched, :transformed, :staged, :error_message, :warnings, :metadata
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create run %s: %w", run.ID, err)
	}

	return nil
}

// Update overwrites the run record.
func (r *RunRepository) Update(ctx context.Context, run *domain.ScheduledRun) error {
	query := `
		UPDATE scheduled_runs
		SET completed_at = :completed_at, status = :status,
			fetched = :fetched, transformed = :transformed, staged = :staged,
			error_message = :error_message, warnings = :warnings, metadata = :metadata
		WHERE id = :id
	`

	res, err := r.db.NamedExecContext(ctx, query, run)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrRunNotFound
	}

	return nil
}

// LastCompleted returns the most recent completed run for a source, or nil
// when the source never completed a run.
func (r *RunRepository) LastCompleted(ctx context.Context, sourceName string) (*domain.ScheduledRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM scheduled_runs
		WHERE source_name = $1 AND status = $2
		ORDER BY completed_at DESC
		LIMIT 1
	`

	var run domain.ScheduledRun
	err := r.db.GetContext(ctx, &run, query, sourceName, domain.RunCompleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last completed run for %s: %w", sourceName, err)
	}

	return &run, nil
}

// ExistsForSourceSince reports whether any run started for the source after
// the cutoff, regardless of outcome.
func (r *RunRepository) ExistsForSourceSince(ctx context.Context, sourceName string, since time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM scheduled_runs WHERE source_name = $1 AND started_at >= $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, sourceName, since); err != nil {
		return false, fmt.Errorf("check recent run for %s: %w", sourceName, err)
	}

	return exists, nil
}

// FindFailedSince returns failed runs started after the cutoff, oldest
// first.
func (r *RunRepository) FindFailedSince(ctx context.Context, since time.Time) ([]domain.ScheduledRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM scheduled_runs
		WHERE status = $1 AND started_at >= $2
		ORDER BY started_at ASC
	`

	runs := []domain.ScheduledRun{}
	if err := r.db.SelectContext(ctx, &runs, query, domain.RunFailed, since); err != nil {
		return nil, fmt.Errorf("find failed runs: %w", err)
	}

	return runs, nil
}

// List returns runs newest first, capped at limit.
func (r *RunRepository) List(ctx context.Context, limit int) ([]domain.ScheduledRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM scheduled_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	runs := []domain.ScheduledRun{}
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	return runs, nil
}
