package staging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"ideaminer/internal/domain"
)

// pqUniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const pqUniqueViolation = "23505"

// stagedColumns lists the columns selected for staged_ideas rows.
const stagedColumns = `id, original_url, source_name, scraped_at, transformed_at,
	project_name, short_description, problem_description, solution, technical_details,
	created_by, likes, rating, technologies, categories, content_hash,
	review_status, reviewed_by, reviewed_at, review_notes,
	migration_status, migrated_at, production_idea_id, metadata`

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a staging store on the given connection.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Stage inserts a transformed candidate. The unique indexes on content_hash
// and original_url are the duplicate gates; a violation of either maps to
// ErrDuplicate.
func (s *PostgresStore) Stage(ctx context.Context, candidate *domain.TransformedCandidate) (*domain.StagedItem, error) {
	item := fromCandidate(candidate)

	query := `
		INSERT INTO staged_ideas (
			original_url, source_name, scraped_at, transformed_at,
			project_name, short_description, problem_description, solution, technical_details,
			created_by, likes, rating, technologies, categories, content_hash,
			review_status, migration_status, metadata
		) VALUES (
			:original_url, :source_name, :scraped_at, :transformed_at,
			:project_name, :short_description, :problem_description, :solution, :technical_details,
			:created_by, :likes, :rating, :technologies, :categories, :content_hash,
			:review_status, :migration_status, :metadata
		)
		RETURNING id
	`

	rows, err := s.db.NamedQueryContext(ctx, query, item)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("stage candidate: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if scanErr := rows.Scan(&item.ID); scanErr != nil {
			return nil, fmt.Errorf("scan staged id: %w", scanErr)
		}
	}

	return item, nil
}

// GetByID returns the item or ErrNotFound.
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*domain.StagedItem, error) {
	var item domain.StagedItem
	query := `SELECT ` + stagedColumns + ` FROM staged_ideas WHERE id = $1`

	if err := s.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get staged item %d: %w", id, err)
	}

	return &item, nil
}

// ListByReviewStatus returns items in the given review state, newest first.
func (s *PostgresStore) ListByReviewStatus(ctx context.Context, status domain.ReviewStatus, limit, offset int) ([]domain.StagedItem, error) {
	query := `
		SELECT ` + stagedColumns + `
		FROM staged_ideas
		WHERE review_status = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`

	items := []domain.StagedItem{}
	if err := s.db.SelectContext(ctx, &items, query, status, limit, offset); err != nil {
		return nil, fmt.Errorf("list staged items: %w", err)
	}

	return items, nil
}

// SetReview applies a review decision, guarded by the PENDING precondition
// in the WHERE clause so concurrent reviewers cannot both win.
func (s *PostgresStore) SetReview(ctx context.Context, id int64, status domain.ReviewStatus, reviewer string, notes *string) error {
	query := `
		UPDATE staged_ideas
		SET review_status = $2, reviewed_by = $3, reviewed_at = NOW(), review_notes = $4
		WHERE id = $1 AND review_status = $5
	`

	res, err := s.db.ExecContext(ctx, query, id, status, reviewer, notes, domain.ReviewPending)
	if err != nil {
		return fmt.Errorf("set review on item %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrNotPending
	}

	return nil
}

// ApprovedReadyForMigration returns approved, unmigrated items in review
// order so older approvals migrate first.
func (s *PostgresStore) ApprovedReadyForMigration(ctx context.Context, limit int) ([]domain.StagedItem, error) {
	query := `
		SELECT ` + stagedColumns + `
		FROM staged_ideas
		WHERE review_status = $1 AND migration_status = $2
		ORDER BY reviewed_at ASC
		LIMIT $3
	`

	items := []domain.StagedItem{}
	err := s.db.SelectContext(ctx, &items, query, domain.ReviewApproved, domain.MigrationNotMigrated, limit)
	if err != nil {
		return nil, fmt.Errorf("list migratable items: %w", err)
	}

	return items, nil
}

// MarkMigrated claims the item with a conditional update. A zero row count
// means another run already moved it.
func (s *PostgresStore) MarkMigrated(ctx context.Context, id, productionID int64, at time.Time) (bool, error) {
	query := `
		UPDATE staged_ideas
		SET migration_status = $2, migrated_at = $3, production_idea_id = $4
		WHERE id = $1 AND migration_status = $5
	`

	res, err := s.db.ExecContext(ctx, query, id, domain.MigrationMigrated, at, productionID, domain.MigrationNotMigrated)
	if err != nil {
		return false, fmt.Errorf("mark item %d migrated: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected > 0, nil
}

// MarkMigrationFailed records a failed attempt. The item stays eligible for
// the retry sweep.
func (s *PostgresStore) MarkMigrationFailed(ctx context.Context, id int64) error {
	query := `UPDATE staged_ideas SET migration_status = $2 WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, query, id, domain.MigrationFailed); err != nil {
		return fmt.Errorf("mark item %d failed: %w", id, err)
	}

	return nil
}

// ResetMigration returns items to NOT_MIGRATED and clears migration fields.
func (s *PostgresStore) ResetMigration(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE staged_ideas
		SET migration_status = $1, migrated_at = NULL, production_idea_id = NULL
		WHERE id = ANY($2)
	`

	if _, err := s.db.ExecContext(ctx, query, domain.MigrationNotMigrated, pq.Array(ids)); err != nil {
		return fmt.Errorf("reset migration state: %w", err)
	}

	return nil
}

// RecentTexts returns concatenated rewritten text for items staged since
// the cutoff.
func (s *PostgresStore) RecentTexts(ctx context.Context, since time.Time) ([]string, error) {
	query := `
		SELECT project_name || ' ' || short_description || ' ' || solution
		FROM staged_ideas
		WHERE transformed_at >= $1
	`

	texts := []string{}
	if err := s.db.SelectContext(ctx, &texts, query, since); err != nil {
		return nil, fmt.Errorf("load recent texts: %w", err)
	}

	return texts, nil
}

// KnownHashes returns all staged content hashes.
func (s *PostgresStore) KnownHashes(ctx context.Context) (map[string]struct{}, error) {
	hashes := []string{}
	if err := s.db.SelectContext(ctx, &hashes, `SELECT content_hash FROM staged_ideas`); err != nil {
		return nil, fmt.Errorf("load content hashes: %w", err)
	}

	set := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		set[h] = struct{}{}
	}

	return set, nil
}

// Cleanup deletes migrated items older than the cutoff.
func (s *PostgresStore) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM staged_ideas WHERE migration_status = $1 AND scraped_at < $2`

	res, err := s.db.ExecContext(ctx, query, domain.MigrationMigrated, before)
	if err != nil {
		return 0, fmt.Errorf("cleanup staged items: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return removed, nil
}

// Summary aggregates counts in a single scan.
func (s *PostgresStore) Summary(ctx context.Context) (*Summary, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE review_status = 'PENDING')  AS pending,
			COUNT(*) FILTER (WHERE review_status = 'APPROVED') AS approved,
			COUNT(*) FILTER (WHERE review_status = 'REJECTED') AS rejected,
			COUNT(*) FILTER (WHERE migration_status = 'NOT_MIGRATED') AS not_migrated,
			COUNT(*) FILTER (WHERE migration_status = 'MIGRATED')     AS migrated,
			COUNT(*) FILTER (WHERE migration_status = 'FAILED')       AS failed
		FROM staged_ideas
	`

	var sum Summary
	if err := s.db.GetContext(ctx, &sum, query); err != nil {
		return nil, fmt.Errorf("staging summary: %w", err)
	}

	return &sum, nil
}

// fromCandidate maps an immutable candidate onto a new staged row with the
// state machines at their initial values.
func fromCandidate(c *domain.TransformedCandidate) *domain.StagedItem {
	transformedAt := c.TransformedAt

	metadata := domain.JSONBMap{}
	if c.Model != "" {
		metadata["model"] = c.Model
	}
	if c.Confidence > 0 {
		metadata["confidence"] = c.Confidence
	}

	return &domain.StagedItem{
		OriginalURL:        c.OriginalURL,
		SourceName:         c.SourceName,
		ScrapedAt:          c.ScrapedAt,
		TransformedAt:      &transformedAt,
		ProjectName:        c.ProjectName,
		ShortDescription:   c.ShortDescription,
		ProblemDescription: c.ProblemDescription,
		Solution:           c.Solution,
		TechnicalDetails:   c.TechnicalDetails,
		CreatedBy:          c.CreatedBy,
		Likes:              c.Likes,
		Rating:             c.Rating,
		Technologies:       domain.StringSlice(c.Technologies),
		Categories:         domain.StringSlice(c.Categories),
		ContentHash:        c.ContentHash,
		ReviewStatus:       domain.ReviewPending,
		MigrationStatus:    domain.MigrationNotMigrated,
		Metadata:           metadata,
	}
}
