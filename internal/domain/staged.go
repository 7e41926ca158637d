package domain

import "time"

// StagedItem is the persistent unit of the staging area. It carries the
// transformed content plus the review and migration state machines.
type StagedItem struct {
	// Identity and origin
	ID            int64      `db:"id"             json:"id"`
	OriginalURL   string     `db:"original_url"   json:"original_url"`
	SourceName    string     `db:"source_name"    json:"source_name"`
	ScrapedAt     time.Time  `db:"scraped_at"     json:"scraped_at"`
	TransformedAt *time.Time `db:"transformed_at" json:"transformed_at,omitempty"`

	// Transformed content
	ProjectName        string      `db:"project_name"        json:"project_name"`
	ShortDescription   string      `db:"short_description"   json:"short_description"`
	ProblemDescription string      `db:"problem_description" json:"problem_description"`
	Solution           string      `db:"solution"            json:"solution"`
	TechnicalDetails   string      `db:"technical_details"   json:"technical_details"`
	CreatedBy          string      `db:"created_by"          json:"created_by"`
	Likes              int         `db:"likes"               json:"likes"`
	Rating             int         `db:"rating"              json:"rating"`
	Technologies       StringSlice `db:"technologies"        json:"technologies,omitempty"`
	Categories         StringSlice `db:"categories"          json:"categories,omitempty"`

	// Duplicate detection. Unique at the storage level.
	ContentHash string `db:"content_hash" json:"content_hash"`

	// Review state machine
	ReviewStatus ReviewStatus `db:"review_status" json:"review_status"`
	ReviewedBy   *string      `db:"reviewed_by"   json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time   `db:"reviewed_at"   json:"reviewed_at,omitempty"`
	ReviewNotes  *string      `db:"review_notes"  json:"review_notes,omitempty"`

	// Migration state machine
	MigrationStatus  MigrationStatus `db:"migration_status"   json:"migration_status"`
	MigratedAt       *time.Time      `db:"migrated_at"        json:"migrated_at,omitempty"`
	ProductionIdeaID *int64          `db:"production_idea_id" json:"production_idea_id,omitempty"`

	// Transformation provenance (model, confidence)
	Metadata JSONBMap `db:"metadata" json:"metadata,omitempty"`
}

// ReadyForMigration reports whether the item may be migrated.
func (s *StagedItem) ReadyForMigration() bool {
	return s.ReviewStatus == ReviewApproved && s.MigrationStatus == MigrationNotMigrated
}
