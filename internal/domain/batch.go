package domain

import "time"

// MigrationBatch is an append-only audit record for one migration run.
// Created per run, never mutated afterwards; the migrated id list is what
// makes rollback possible.
type MigrationBatch struct {
	ID          string      `db:"id"           json:"id"`
	StartedAt   time.Time   `db:"started_at"   json:"started_at"`
	CompletedAt *time.Time  `db:"completed_at" json:"completed_at,omitempty"`
	Successful  bool        `db:"successful"   json:"successful"`
	Migrated    int         `db:"migrated"     json:"migrated"`
	Skipped     int         `db:"skipped"      json:"skipped"`
	Failed      int         `db:"failed"       json:"failed"`
	Errors      StringSlice `db:"errors"       json:"errors,omitempty"`
	Warnings    StringSlice `db:"warnings"     json:"warnings,omitempty"`
	MigratedIDs Int64Slice  `db:"migrated_ids" json:"migrated_ids,omitempty"`
	RolledBack  bool        `db:"rolled_back"  json:"rolled_back"`
}

// BatchState summarizes a batch for status lookups.
type BatchState string

const (
	// BatchNotStarted means no batch exists under the queried id.
	BatchNotStarted BatchState = "NOT_STARTED"
	// BatchInProgress means the batch has started but not completed.
	BatchInProgress BatchState = "IN_PROGRESS"
	// BatchCompleted means the batch finished with no failed items.
	BatchCompleted BatchState = "COMPLETED"
	// BatchFailed means at least one item failed.
	BatchFailed BatchState = "FAILED"
)

// State derives the batch state from the record.
func (b *MigrationBatch) State() BatchState {
	if b.CompletedAt == nil {
		return BatchInProgress
	}
	if b.Successful {
		return BatchCompleted
	}
	return BatchFailed
}
