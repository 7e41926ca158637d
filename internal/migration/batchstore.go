package migration

import (
	"context"
	"errors"

	"ideaminer/internal/domain"
)

var (
	// ErrBatchNotFound is returned when no batch exists under the id.
	ErrBatchNotFound = errors.New("migration batch not found")
	// ErrRollbackDisabled is returned when rollback is disabled by
	// configuration.
	ErrRollbackDisabled = errors.New("rollback is disabled")
	// ErrAlreadyRolledBack is returned when a batch was already rolled
	// back.
	ErrAlreadyRolledBack = errors.New("batch already rolled back")
)

// BatchStore persists migration batch audit records.
type BatchStore interface {
	// Create inserts a new batch record.
	Create(ctx context.Context, batch *domain.MigrationBatch) error

	// Update overwrites the batch record under its id.
	Update(ctx context.Context, batch *domain.MigrationBatch) error

	// Get returns the batch or ErrBatchNotFound.
	Get(ctx context.Context, id string) (*domain.MigrationBatch, error)

	// List returns batches newest first, capped at limit.
	List(ctx context.Context, limit int) ([]domain.MigrationBatch, error)
}
