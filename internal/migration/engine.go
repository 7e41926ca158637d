// Package migration moves approved staged items into production in audited
// batches. Item failures are isolated; a bad item never aborts its batch.
package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ideaminer/internal/config"
	"ideaminer/internal/domain"
	"ideaminer/internal/logger"
	"ideaminer/internal/production"
	"ideaminer/internal/staging"
)

// batchIDPrefix namespaces migration batch ids.
const batchIDPrefix = "MIG"

// Engine runs migration batches against the staging store and production
// sink.
type Engine struct {
	staging staging.Store
	sink    production.Sink
	batches BatchStore
	cfg     config.MigrationConfig
	log     logger.Interface
	now     func() time.Time
}

// NewEngine creates a migration engine.
func NewEngine(st staging.Store, sink production.Sink, batches BatchStore, cfg config.MigrationConfig, log logger.Interface) *Engine {
	return &Engine{
		staging: st,
		sink:    sink,
		batches: batches,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Used in tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// newBatchID builds a sortable, unique batch identifier.
func (e *Engine) newBatchID() string {
	return fmt.Sprintf("%s_%d_%s", batchIDPrefix, e.now().UnixMilli(), uuid.NewString()[:8])
}

// MigrateApproved migrates up to batchSize approved items, oldest approvals
// first. A non-positive batchSize falls back to the configured default.
func (e *Engine) MigrateApproved(ctx context.Context, batchSize int) (*domain.MigrationBatch, error) {
	if batchSize <= 0 {
		batchSize = e.cfg.BatchSize
	}

	items, err := e.staging.ApprovedReadyForMigration(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("load migratable items: %w", err)
	}

	return e.run(ctx, items)
}

// MigrateSpecific migrates the named staged items. Items that are not
// approved and unmigrated are skipped with a warning.
func (e *Engine) MigrateSpecific(ctx context.Context, ids []int64) (*domain.MigrationBatch, error) {
	items := make([]domain.StagedItem, 0, len(ids))
	warnings := []string{}

	for _, id := range ids {
		item, err := e.staging.GetByID(ctx, id)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("item %d: %v", id, err))
			continue
		}
		if !item.ReadyForMigration() {
			warnings = append(warnings,
				fmt.Sprintf("item %d not eligible: review=%s migration=%s",
					id, item.ReviewStatus, item.MigrationStatus))
			continue
		}
		items = append(items, *item)
	}

	batch, err := e.run(ctx, items)
	if err != nil {
		return nil, err
	}

	if len(warnings) > 0 {
		batch.Warnings = append(batch.Warnings, warnings...)
		if updateErr := e.batches.Update(ctx, batch); updateErr != nil {
			return nil, fmt.Errorf("record batch warnings: %w", updateErr)
		}
	}

	return batch, nil
}

// run executes one migration batch over the given items.
func (e *Engine) run(ctx context.Context, items []domain.StagedItem) (*domain.MigrationBatch, error) {
	batch := &domain.MigrationBatch{
		ID:        e.newBatchID(),
		StartedAt: e.now(),
	}

	if err := e.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch record: %w", err)
	}

	log := e.log.With("batch_id", batch.ID)
	log.Info("migration batch started", "items", len(items))

	for i := range items {
		e.migrateOne(ctx, batch, &items[i], log)
	}

	completedAt := e.now()
	batch.CompletedAt = &completedAt
	batch.Successful = batch.Failed == 0

	if err := e.batches.Update(ctx, batch); err != nil {
		return nil, fmt.Errorf("close batch record: %w", err)
	}

	log.Info("migration batch completed",
		"migrated", batch.Migrated, "skipped", batch.Skipped, "failed", batch.Failed)

	return batch, nil
}

// migrateOne moves a single item, recording the outcome on the batch. A
// production duplicate is skipped with the staged state left untouched so
// the item stays eligible once the conflict clears.
func (e *Engine) migrateOne(ctx context.Context, batch *domain.MigrationBatch, item *domain.StagedItem, log logger.Interface) {
	exists, err := e.sink.ExistsByNameAndCreator(ctx, item.ProjectName, item.CreatedBy)
	if err != nil {
		e.recordFailure(ctx, batch, item, fmt.Errorf("duplicate check: %w", err), log)
		return
	}
	if exists {
		batch.Skipped++
		batch.Warnings = append(batch.Warnings,
			fmt.Sprintf("item %d skipped: production duplicate %q", item.ID, item.ProjectName))
		return
	}

	productionID, err := e.sink.Save(ctx, item)
	if err != nil {
		e.recordFailure(ctx, batch, item, fmt.Errorf("save to production: %w", err), log)
		return
	}

	claimed, err := e.staging.MarkMigrated(ctx, item.ID, productionID, e.now())
	if err != nil {
		e.recordFailure(ctx, batch, item, fmt.Errorf("mark migrated: %w", err), log)
		return
	}
	if !claimed {
		// Another run claimed the item between the load and the update.
		// Undo our production insert and count the item as skipped.
		if delErr := e.sink.Delete(ctx, []int64{productionID}); delErr != nil {
			log.Error("failed to undo duplicate production insert",
				"item_id", item.ID, "production_id", productionID, "error", delErr)
		}
		batch.Skipped++
		batch.Warnings = append(batch.Warnings,
			fmt.Sprintf("item %d skipped: concurrently migrated", item.ID))
		return
	}

	batch.Migrated++
	batch.MigratedIDs = append(batch.MigratedIDs, item.ID)
}

// recordFailure marks the item FAILED and logs the error without aborting
// the batch.
func (e *Engine) recordFailure(ctx context.Context, batch *domain.MigrationBatch, item *domain.StagedItem, err error, log logger.Interface) {
	batch.Failed++
	batch.Errors = append(batch.Errors, fmt.Sprintf("item %d: %v", item.ID, err))

	log.Error("item migration failed", "item_id", item.ID, "error", err)

	if markErr := e.staging.MarkMigrationFailed(ctx, item.ID); markErr != nil {
		log.Error("failed to record migration failure", "item_id", item.ID, "error", markErr)
	}
}

// Rollback removes the batch's production records and restores the staged
// items to NOT_MIGRATED. Honors the rollback configuration flag.
func (e *Engine) Rollback(ctx context.Context, batchID string) error {
	if !e.cfg.EnableRollback {
		return ErrRollbackDisabled
	}

	batch, err := e.batches.Get(ctx, batchID)
	if err != nil {
		return err
	}
	if batch.RolledBack {
		return ErrAlreadyRolledBack
	}

	productionIDs := make([]int64, 0, len(batch.MigratedIDs))
	for _, stagedID := range batch.MigratedIDs {
		item, getErr := e.staging.GetByID(ctx, stagedID)
		if getErr != nil {
			e.log.Warn("rollback: staged item missing", "item_id", stagedID, "error", getErr)
			continue
		}
		if item.ProductionIdeaID != nil {
			productionIDs = append(productionIDs, *item.ProductionIdeaID)
		}
	}

	if err := e.sink.Delete(ctx, productionIDs); err != nil {
		return fmt.Errorf("delete production records: %w", err)
	}
	if err := e.staging.ResetMigration(ctx, []int64(batch.MigratedIDs)); err != nil {
		return fmt.Errorf("reset staged items: %w", err)
	}

	batch.RolledBack = true
	if err := e.batches.Update(ctx, batch); err != nil {
		return fmt.Errorf("record rollback: %w", err)
	}

	e.log.Info("batch rolled back", "batch_id", batchID, "items", len(batch.MigratedIDs))

	return nil
}

// Status returns the derived state and record of a batch. An unknown id
// reports NOT_STARTED with no record.
func (e *Engine) Status(ctx context.Context, batchID string) (domain.BatchState, *domain.MigrationBatch, error) {
	batch, err := e.batches.Get(ctx, batchID)
	if err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			return domain.BatchNotStarted, nil, nil
		}
		return "", nil, err
	}

	return batch.State(), batch, nil
}

// History lists recent batches, newest first.
func (e *Engine) History(ctx context.Context, limit int) ([]domain.MigrationBatch, error) {
	return e.batches.List(ctx, limit)
}
