package staging_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaminer/internal/dedup"
	"ideaminer/internal/domain"
	"ideaminer/internal/staging"
)

func candidate(name string) *domain.TransformedCandidate {
	return &domain.TransformedCandidate{
		OriginalURL:      "https://example.com/" + name,
		SourceName:       "devpost",
		ScrapedAt:        time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		TransformedAt:    time.Date(2026, 8, 1, 1, 0, 0, 0, time.UTC),
		ProjectName:      name,
		ShortDescription: "short description of " + name,
		Solution:         "solution for " + name,
		CreatedBy:        "AI-Generated",
		Rating:           6,
		ContentHash:      dedup.Fingerprint(name, "short description of "+name, "solution for "+name),
		Model:            "test-model",
		Confidence:       0.8,
	}
}

func TestStage_InitialState(t *testing.T) {
	store := staging.NewMemoryStore()
	ctx := context.Background()

	item, err := store.Stage(ctx, candidate("alpha"))
	require.NoError(t, err)

	assert.NotZero(t, item.ID)
	assert.Equal(t, domain.ReviewPending, item.ReviewStatus)
	assert.Equal(t, domain.MigrationNotMigrated, item.MigrationStatus)
	assert.Equal(t, "test-model", item.Metadata["model"])
}

func TestStage_DuplicateHashRejected(t *testing.T) {
	store := staging.NewMemoryStore()
	ctx := context.Background()

	_, err := store.Stage(ctx, candidate("alpha"))
	require.NoError(t, err)

	_, err = store.Stage(ctx, candidate("alpha"))
	assert.ErrorIs(t, err, staging.ErrDuplicate)

	sum, err := store.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Total)
}

func TestStage_DuplicateURLRejected(t *testing.T) {
	store := staging.NewMemoryStore()
	ctx := context.Background()

	_, err := store.Stage(ctx, candidate("alpha"))
	require.NoError(t, err)

	// A fresh rewrite of the same listing has a new hash but the same
	// source URL.
	rewrite := candidate("alpha")
	rewrite.ShortDescription = "a second rewrite of alpha"
	rewrite.ContentHash = dedup.Fingerprint("alpha", rewrite.ShortDescription, rewrite.Solution)

	_, err = store.Stage(ctx, rewrite)
	assert.ErrorIs(t, err, staging.ErrDuplicate)

	// Candidates without a source URL are only gated by their hash.
	first := candidate("no-url-1")
	first.OriginalURL = ""
	second := candidate("no-url-2")
	second.OriginalURL = ""

	_, err = store.Stage(ctx, first)
	require.NoError(t, err)
	_, err = store.Stage(ctx, second)
	assert.NoError(t, err)
}

func TestSetReview_Transitions(t *testing.T) {
	store := staging.NewMemoryStore()
	ctx := context.Background()

	item, err := store.Stage(ctx, candidate("alpha"))
	require.NoError(t, err)

	notes := "looks solid"
	require.NoError(t, store.SetReview(ctx, item.ID, domain.ReviewApproved, "reviewer", &notes))

	got, err := store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewApproved, got.ReviewStatus)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, "reviewer", *got.ReviewedBy)
	assert.NotNil(t, got.ReviewedAt)

	// A second decision on the same item is rejected.
	err = store.SetReview(ctx, item.ID, domain.ReviewRejected, "other", nil)
	assert.ErrorIs(t, err, staging.ErrNotPending)

	err = store.SetReview(ctx, 9999, domain.ReviewApproved, "reviewer", nil)
	assert.ErrorIs(t, err, staging.ErrNotFound)
}

func TestApprovedReadyForMigration_OrderAndFilter(t *testing.T) {
	store := staging.NewMemoryStore()
	ctx := context.Background()

	first, err := store.Stage(ctx, candidate("first"))
	require.NoError(t, err)
	second, err := store.Stage(ctx, candidate("second"))
	require.NoError(t, err)
	_, err = store.Stage(ctx, candidate("still-pending"))
	require.NoError(t, err)

	require.NoError(t, store.SetReview(ctx, first.ID, domain.ReviewApproved, "r", nil))
	require.NoError(t, store.SetReview(ctx, second.ID, domain.ReviewApproved, "r", nil))

	ready, err := store.ApprovedReadyForMigration(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ready, 2)
	assert.Equal(t, first.ID, ready[0].ID, "oldest approval migrates first")

	// Migrated items drop out of the eligible set.
	claimed, err := store.MarkMigrated(ctx, first.ID, 100, time.Now())
	require.NoError(t, err)
	assert.True(t, claimed)

	ready, err = store.ApprovedReadyForMigration(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, second.ID, ready[0].ID)
}

func TestMarkMigrated_ClaimsOnce(t *testing.T) {
	store := staging.NewMemoryStore()
	ctx := context.Background()

	item, err := store.Stage(ctx, candidate("alpha"))
	require.NoError(t, err)
	require.NoError(t, store.SetReview(ctx, item.ID, domain.ReviewApproved, "r", nil))

	claimed, err := store.MarkMigrated(ctx, item.ID, 42, time.Now())
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.MarkMigrated(ctx, item.ID, 43, time.Now())
	require.NoError(t, err)
	assert.False(t, claimed, "second claim loses")

	got, err := store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ProductionIdeaID)
	assert.Equal(t, int64(42), *got.ProductionIdeaID)
}

func TestResetMigration_RestoresEligibility(t *testing.T) {
	store := staging.NewMemoryStore()
	ctx := context.Background()

	item, err := store.Stage(ctx, candidate("alpha"))
	require.NoError(t, err)
	require.NoError(t, store.SetReview(ctx, item.ID, domain.ReviewApproved, "r", nil))

	_, err = store.MarkMigrated(ctx, item.ID, 42, time.Now())
	require.NoError(t, err)

	require.NoError(t, store.ResetMigration(ctx, []int64{item.ID}))

	got, err := store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MigrationNotMigrated, got.MigrationStatus)
	assert.Nil(t, got.MigratedAt)
	assert.Nil(t, got.ProductionIdeaID)
	assert.True(t, got.ReadyForMigration())
}

func TestCleanup_OnlyMigrated(t *testing.T) {
	store := staging.NewMemoryStore()
	ctx := context.Background()

	migrated, err := store.Stage(ctx, candidate("old-migrated"))
	require.NoError(t, err)
	require.NoError(t, store.SetReview(ctx, migrated.ID, domain.ReviewApproved, "r", nil))
	_, err = store.MarkMigrated(ctx, migrated.ID, 1, time.Now())
	require.NoError(t, err)

	pending, err := store.Stage(ctx, candidate("old-pending"))
	require.NoError(t, err)

	cutoff := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	removed, err := store.Cleanup(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = store.GetByID(ctx, migrated.ID)
	assert.ErrorIs(t, err, staging.ErrNotFound)
	_, err = store.GetByID(ctx, pending.ID)
	assert.NoError(t, err, "pending items survive cleanup")
}

func TestKnownHashesAndRecentTexts(t *testing.T) {
	store := staging.NewMemoryStore()
	ctx := context.Background()

	c := candidate("alpha")
	_, err := store.Stage(ctx, c)
	require.NoError(t, err)

	hashes, err := store.KnownHashes(ctx)
	require.NoError(t, err)
	_, ok := hashes[c.ContentHash]
	assert.True(t, ok)

	texts, err := store.RecentTexts(ctx, c.TransformedAt.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "alpha")

	texts, err = store.RecentTexts(ctx, c.TransformedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestSummary_Counts(t *testing.T) {
	store := staging.NewMemoryStore()
	ctx := context.Background()

	a, err := store.Stage(ctx, candidate("a"))
	require.NoError(t, err)
	b, err := store.Stage(ctx, candidate("b"))
	require.NoError(t, err)
	_, err = store.Stage(ctx, candidate("c"))
	require.NoError(t, err)

	require.NoError(t, store.SetReview(ctx, a.ID, domain.ReviewApproved, "r", nil))
	require.NoError(t, store.SetReview(ctx, b.ID, domain.ReviewRejected, "r", nil))
	_, err = store.MarkMigrated(ctx, a.ID, 7, time.Now())
	require.NoError(t, err)

	sum, err := store.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Pending)
	assert.Equal(t, 1, sum.Approved)
	assert.Equal(t, 1, sum.Rejected)
	assert.Equal(t, 2, sum.NotMigrated)
	assert.Equal(t, 1, sum.Migrated)
}
