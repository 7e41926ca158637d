package production

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"ideaminer/internal/domain"
)

// PostgresSink implements Sink backed by PostgreSQL. Each Save runs in one
// transaction covering the idea row and its tag links.
type PostgresSink struct {
	db *sqlx.DB
}

// NewPostgresSink creates a production sink on the given connection.
func NewPostgresSink(db *sqlx.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Save inserts the idea and links its technology and category tags.
func (s *PostgresSink) Save(ctx context.Context, item *domain.StagedItem) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var ideaID int64
	insertIdea := `
		INSERT INTO ideas (
			project_name, short_description, problem_description, solution,
			technical_details, created_by, likes, rating, source_url, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id
	`
	err = tx.GetContext(ctx, &ideaID, insertIdea,
		item.ProjectName, item.ShortDescription, item.ProblemDescription,
		item.Solution, item.TechnicalDetails, item.CreatedBy,
		item.Likes, item.Rating, item.OriginalURL,
	)
	if err != nil {
		return 0, fmt.Errorf("insert production idea: %w", err)
	}

	if linkErr := s.linkTags(ctx, tx, ideaID, domain.TagTechnology, item.Technologies); linkErr != nil {
		return 0, linkErr
	}
	if linkErr := s.linkTags(ctx, tx, ideaID, domain.TagCategory, item.Categories); linkErr != nil {
		return 0, linkErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return 0, fmt.Errorf("commit save transaction: %w", commitErr)
	}

	return ideaID, nil
}

// linkTags resolves each tag name in its taxonomy and links it to the idea.
func (s *PostgresSink) linkTags(ctx context.Context, tx *sqlx.Tx, ideaID int64, kind domain.TagKind, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}

		tagID, err := findOrCreateTag(ctx, tx, kind, name)
		if err != nil {
			return err
		}

		link := `
			INSERT INTO idea_tags (idea_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, link, ideaID, tagID); err != nil {
			return fmt.Errorf("link tag %q to idea %d: %w", name, ideaID, err)
		}
	}

	return nil
}

// findOrCreateTag resolves the tag within its taxonomy, matching existing
// names case-insensitively, and creates it when absent.
func findOrCreateTag(ctx context.Context, tx *sqlx.Tx, kind domain.TagKind, name string) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id,
		`SELECT id FROM tags WHERE kind = $1 AND LOWER(name) = LOWER($2)`, kind, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("look up %s tag %q: %w", kind, name, err)
	}

	insert := `
		INSERT INTO tags (kind, name)
		VALUES ($1, $2)
		ON CONFLICT (kind, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	if err := tx.GetContext(ctx, &id, insert, kind, name); err != nil {
		return 0, fmt.Errorf("create %s tag %q: %w", kind, name, err)
	}

	return id, nil
}

// ExistsByNameAndCreator reports whether a production idea already exists
// under the same project name and creator. The comparison ignores case so
// a re-approved variant differing only in casing cannot slip in a second
// record.
func (s *PostgresSink) ExistsByNameAndCreator(ctx context.Context, name, creator string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM ideas
			WHERE LOWER(project_name) = LOWER($1) AND LOWER(created_by) = LOWER($2)
		)
	`

	var exists bool
	if err := s.db.GetContext(ctx, &exists, query, name, creator); err != nil {
		return false, fmt.Errorf("check production duplicate %q: %w", name, err)
	}

	return exists, nil
}

// Delete removes production ideas and their tag links.
func (s *PostgresSink) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM idea_tags WHERE idea_id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("delete idea tag links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ideas WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("delete production ideas: %w", err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("commit delete transaction: %w", commitErr)
	}

	return nil
}
