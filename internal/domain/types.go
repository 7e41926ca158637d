// Package domain provides domain models used across the application.
package domain

// ReviewStatus tracks the human review decision for a staged item.
type ReviewStatus string

const (
	// ReviewPending means the item has not been reviewed yet.
	ReviewPending ReviewStatus = "PENDING"
	// ReviewApproved means a reviewer accepted the item for migration.
	ReviewApproved ReviewStatus = "APPROVED"
	// ReviewRejected means a reviewer declined the item.
	ReviewRejected ReviewStatus = "REJECTED"
)

// MigrationStatus tracks whether a staged item has reached production.
type MigrationStatus string

const (
	// MigrationNotMigrated means the item has not been moved to production.
	MigrationNotMigrated MigrationStatus = "NOT_MIGRATED"
	// MigrationMigrated means the item was copied into production.
	MigrationMigrated MigrationStatus = "MIGRATED"
	// MigrationFailed means the last migration attempt errored.
	MigrationFailed MigrationStatus = "FAILED"
)

// RunStatus tracks the lifecycle of a scheduled run.
type RunStatus string

const (
	// RunRunning means the run is in progress.
	RunRunning RunStatus = "RUNNING"
	// RunCompleted means the run finished without a run-level error.
	RunCompleted RunStatus = "COMPLETED"
	// RunFailed means the run aborted with an error.
	RunFailed RunStatus = "FAILED"
)

// TagKind distinguishes the production taxonomies.
type TagKind string

const (
	// TagTechnology is the technology taxonomy.
	TagTechnology TagKind = "technology"
	// TagCategory is the category taxonomy.
	TagCategory TagKind = "category"
)

// Bounds enforced on transformed candidates.
const (
	// MaxTechnologies caps the technology list on a candidate.
	MaxTechnologies = 7
	// MaxCategories caps the category list on a candidate.
	MaxCategories = 5
	// MinRating is the lowest accepted quality rating.
	MinRating = 1
	// MaxRating is the highest accepted quality rating.
	MaxRating = 10
)
