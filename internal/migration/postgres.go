package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ideaminer/internal/domain"
)

// batchColumns lists the columns of migration_batches rows.
const batchColumns = `id, started_at, completed_at, successful, migrated, skipped, failed,
	errors, warnings, migrated_ids, rolled_back`

// PostgresBatchStore implements BatchStore backed by PostgreSQL.
type PostgresBatchStore struct {
	db *sqlx.DB
}

// NewPostgresBatchStore creates a batch store on the given connection.
func NewPostgresBatchStore(db *sqlx.DB) *PostgresBatchStore {
	return &PostgresBatchStore{db: db}
}

// Create inserts a batch record.
func (s *PostgresBatchStore) Create(ctx context.Context, batch *domain.MigrationBatch) error {
	query := `
		INSERT INTO migration_batches (
			id, started_at, completed_at, successful, migrated, skipped, failed,
			errors, warnings, migrated_ids, rolled_back
		) VALUES (
			:id, :started_at, :completed_at, :successful, :migrated, :skipped, :failed,
			:errors, :warnings, :migrated_ids, :rolled_back
		)
	`

	if _, err := s.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create batch %s: %w", batch.ID, err)
	}

	return nil
}

// Update overwrites the batch record.
func (s *PostgresBatchStore) Update(ctx context.Context, batch *domain.MigrationBatch) error {
	query := `
		UPDATE migration_batches
		SET completed_at = :completed_at, successful = :successful,
			migrated = :migrated, skipped = :skipped, failed = :failed,
			errors = :errors, warnings = :warnings, migrated_ids = :migrated_ids,
			rolled_back = :rolled_back
		WHERE id = :id
	`

	res, err := s.db.NamedExecContext(ctx, query, batch)
	if err != nil {
		return fmt.Errorf("update batch %s: %w", batch.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrBatchNotFound
	}

	return nil
}

// Get returns the batch or ErrBatchNotFound.
func (s *PostgresBatchStore) Get(ctx context.Context, id string) (*domain.MigrationBatch, error) {
	var batch domain.MigrationBatch
	query := `SELECT ` + batchColumns + ` FROM migration_batches WHERE id = $1`

	if err := s.db.GetContext(ctx, &batch, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("get batch %s: %w", id, err)
	}

	return &batch, nil
}

// List returns batches newest first.
func (s *PostgresBatchStore) List(ctx context.Context, limit int) ([]domain.MigrationBatch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM migration_batches
		ORDER BY started_at DESC
		LIMIT $1
	`

	batches := []domain.MigrationBatch{}
	if err := s.db.SelectContext(ctx, &batches, query, limit); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	return batches, nil
}
