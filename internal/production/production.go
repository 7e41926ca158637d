// Package production writes approved ideas into the production schema. Only
// the migration engine goes through this boundary; production records are
// never mutated by the pipeline after insertion, except by rollback.
package production

import (
	"context"

	"ideaminer/internal/domain"
)

// Sink is the production write contract.
type Sink interface {
	// Save inserts the staged item as a production idea, resolving tag
	// taxonomies, and returns the new production id.
	Save(ctx context.Context, item *domain.StagedItem) (int64, error)

	// ExistsByNameAndCreator reports whether a production idea already
	// exists with the same project name and creator. The comparison is
	// case-insensitive.
	ExistsByNameAndCreator(ctx context.Context, name, creator string) (bool, error)

	// Delete removes production ideas by id. Used by rollback.
	Delete(ctx context.Context, ids []int64) error
}
