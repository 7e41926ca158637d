// Package staging persists transformed candidates pending human review and
// tracks their migration state. The content hash is unique at the storage
// level, which makes staging the single point of truth for duplicates.
package staging

import (
	"context"
	"errors"
	"time"

	"ideaminer/internal/domain"
)

var (
	// ErrDuplicate is returned when a candidate's content hash or source
	// URL already exists in the staging area.
	ErrDuplicate = errors.New("duplicate item in staging")
	// ErrNotFound is returned when no staged item exists under the id.
	ErrNotFound = errors.New("staged item not found")
	// ErrNotPending is returned when a review decision targets an item
	// that is not in PENDING state.
	ErrNotPending = errors.New("staged item is not pending review")
)

// Summary aggregates staging counts for reporting.
type Summary struct {
	Total       int `db:"total"        json:"total"`
	Pending     int `db:"pending"      json:"pending"`
	Approved    int `db:"approved"     json:"approved"`
	Rejected    int `db:"rejected"     json:"rejected"`
	NotMigrated int `db:"not_migrated" json:"not_migrated"`
	Migrated    int `db:"migrated"     json:"migrated"`
	Failed      int `db:"failed"       json:"failed"`
}

// Store is the staging area contract. Implementations must enforce content
// hash uniqueness and the PENDING-only review transition.
type Store interface {
	// Stage inserts a transformed candidate as a PENDING, NOT_MIGRATED
	// item. Returns ErrDuplicate when the content hash or the source URL
	// already exists.
	Stage(ctx context.Context, candidate *domain.TransformedCandidate) (*domain.StagedItem, error)

	// GetByID returns the item or ErrNotFound.
	GetByID(ctx context.Context, id int64) (*domain.StagedItem, error)

	// ListByReviewStatus returns items in the given review state, newest
	// first.
	ListByReviewStatus(ctx context.Context, status domain.ReviewStatus, limit, offset int) ([]domain.StagedItem, error)

	// SetReview applies a review decision. Only PENDING items may move;
	// anything else returns ErrNotPending.
	SetReview(ctx context.Context, id int64, status domain.ReviewStatus, reviewer string, notes *string) error

	// ApprovedReadyForMigration returns approved, not yet migrated items
	// in review order (oldest reviewed first), capped at limit.
	ApprovedReadyForMigration(ctx context.Context, limit int) ([]domain.StagedItem, error)

	// MarkMigrated atomically moves an item from NOT_MIGRATED to MIGRATED
	// and records the production id. Returns false when the item was not
	// in NOT_MIGRATED state, which means another run already claimed it.
	MarkMigrated(ctx context.Context, id, productionID int64, at time.Time) (bool, error)

	// MarkMigrationFailed records a failed migration attempt.
	MarkMigrationFailed(ctx context.Context, id int64) error

	// ResetMigration returns items to NOT_MIGRATED, clearing migration
	// fields. Used by rollback.
	ResetMigration(ctx context.Context, ids []int64) error

	// RecentTexts returns the rewritten text of items staged since the
	// cutoff, for similarity comparison against new candidates.
	RecentTexts(ctx context.Context, since time.Time) ([]string, error)

	// KnownHashes returns all content hashes currently staged.
	KnownHashes(ctx context.Context) (map[string]struct{}, error)

	// Cleanup deletes MIGRATED items staged before the cutoff and returns
	// the number removed. Pending and failed items are never touched.
	Cleanup(ctx context.Context, before time.Time) (int64, error)

	// Summary returns aggregate counts over the staging area.
	Summary(ctx context.Context) (*Summary, error)
}
