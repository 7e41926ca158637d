package migration_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaminer/internal/config"
	"ideaminer/internal/dedup"
	"ideaminer/internal/domain"
	"ideaminer/internal/logger"
	"ideaminer/internal/migration"
	"ideaminer/internal/production"
	"ideaminer/internal/staging"
)

type fixture struct {
	staging *staging.MemoryStore
	sink    *production.MemorySink
	batches *migration.MemoryBatchStore
	engine  *migration.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := staging.NewMemoryStore()
	sink := production.NewMemorySink()
	batches := migration.NewMemoryBatchStore()
	cfg := config.MigrationConfig{BatchSize: 50, EnableRollback: true}

	return &fixture{
		staging: st,
		sink:    sink,
		batches: batches,
		engine:  migration.NewEngine(st, sink, batches, cfg, logger.NewNop()),
	}
}

// stageApproved stages a candidate and approves it, returning the item id.
func (f *fixture) stageApproved(t *testing.T, name string) int64 {
	return stageApprovedIn(t, f.staging, name)
}

func stageApprovedIn(t *testing.T, st *staging.MemoryStore, name string) int64 {
	t.Helper()
	ctx := context.Background()

	item, err := st.Stage(ctx, &domain.TransformedCandidate{
		OriginalURL:      "https://example.com/" + name,
		SourceName:       "devpost",
		ScrapedAt:        time.Now(),
		TransformedAt:    time.Now(),
		ProjectName:      name,
		ShortDescription: "short " + name,
		Solution:         "solution " + name,
		CreatedBy:        "AI-Generated",
		Rating:           6,
		ContentHash:      dedup.Fingerprint(name, "short "+name, "solution "+name),
	})
	require.NoError(t, err)
	require.NoError(t, st.SetReview(ctx, item.ID, domain.ReviewApproved, "reviewer", nil))

	return item.ID
}

func TestMigrateApproved_MovesItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	idA := f.stageApproved(t, "alpha")
	idB := f.stageApproved(t, "beta")

	batch, err := f.engine.MigrateApproved(ctx, 0)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(batch.ID, "MIG_"))
	assert.Equal(t, 2, batch.Migrated)
	assert.Zero(t, batch.Skipped)
	assert.Zero(t, batch.Failed)
	assert.True(t, batch.Successful)
	assert.Equal(t, domain.BatchCompleted, batch.State())
	assert.Equal(t, 2, f.sink.Count())

	for _, id := range []int64{idA, idB} {
		item, getErr := f.staging.GetByID(ctx, id)
		require.NoError(t, getErr)
		assert.Equal(t, domain.MigrationMigrated, item.MigrationStatus)
		assert.NotNil(t, item.ProductionIdeaID)
	}
}

func TestMigrateApproved_EmptySet(t *testing.T) {
	f := newFixture(t)

	batch, err := f.engine.MigrateApproved(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, batch.Migrated)
	assert.True(t, batch.Successful)
}

func TestMigrateApproved_ProductionDuplicateSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.stageApproved(t, "alpha")

	// A production record under the same name and creator already exists.
	_, err := f.sink.Save(ctx, &domain.StagedItem{ProjectName: "alpha", CreatedBy: "AI-Generated"})
	require.NoError(t, err)

	batch, err := f.engine.MigrateApproved(ctx, 10)
	require.NoError(t, err)

	assert.Zero(t, batch.Migrated)
	assert.Equal(t, 1, batch.Skipped)
	assert.NotEmpty(t, batch.Warnings)

	// Skip leaves the item untouched so it stays eligible after the
	// conflict clears.
	item, err := f.staging.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.MigrationNotMigrated, item.MigrationStatus)
	assert.True(t, item.ReadyForMigration())
}

func TestMigrateApproved_DuplicateNameIgnoresCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.stageApproved(t, "Smart Garden")
	_, err := f.engine.MigrateApproved(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, f.sink.Count())

	// A rewrite differing only in name casing, with fresh body text so the
	// content hash passes the staging gate.
	item, err := f.staging.Stage(ctx, &domain.TransformedCandidate{
		OriginalURL:      "https://example.com/smart-garden-again",
		SourceName:       "devpost",
		ScrapedAt:        time.Now(),
		TransformedAt:    time.Now(),
		ProjectName:      "SMART GARDEN",
		ShortDescription: "a second take on the garden",
		Solution:         "water plants automatically",
		CreatedBy:        "ai-generated",
		Rating:           6,
		ContentHash:      dedup.Fingerprint("SMART GARDEN", "a second take on the garden", "water plants automatically"),
	})
	require.NoError(t, err)
	require.NoError(t, f.staging.SetReview(ctx, item.ID, domain.ReviewApproved, "reviewer", nil))

	batch, err := f.engine.MigrateApproved(ctx, 10)
	require.NoError(t, err)

	assert.Zero(t, batch.Migrated)
	assert.Equal(t, 1, batch.Skipped)
	assert.Equal(t, 1, f.sink.Count(), "production holds a single record")
}

func TestMigrateApproved_ConcurrentRunsMigrateOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.stageApproved(t, "alpha")

	var wg sync.WaitGroup
	batches := make([]*domain.MigrationBatch, 2)
	for i := range batches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := f.engine.MigrateApproved(ctx, 10)
			if assert.NoError(t, err) {
				batches[i] = b
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.sink.Count(), "production holds a single record")

	item, err := f.staging.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.MigrationMigrated, item.MigrationStatus)

	migrated := 0
	for _, b := range batches {
		if b != nil {
			migrated += b.Migrated
		}
	}
	assert.Equal(t, 1, migrated, "the item migrates exactly once across concurrent batches")
}

// claimStealer lets a competing writer take the migration claim just before
// the engine records its own.
type claimStealer struct {
	staging.Store
	competitorID int64
	once         sync.Once
}

func (c *claimStealer) MarkMigrated(ctx context.Context, id, productionID int64, at time.Time) (bool, error) {
	c.once.Do(func() {
		_, _ = c.Store.MarkMigrated(ctx, id, c.competitorID, at)
	})
	return c.Store.MarkMigrated(ctx, id, productionID, at)
}

func TestMigrateApproved_LostClaimUndone(t *testing.T) {
	st := staging.NewMemoryStore()
	sink := production.NewMemorySink()
	engine := migration.NewEngine(
		&claimStealer{Store: st, competitorID: 999},
		sink, migration.NewMemoryBatchStore(),
		config.MigrationConfig{BatchSize: 50, EnableRollback: true},
		logger.NewNop(),
	)
	ctx := context.Background()

	id := stageApprovedIn(t, st, "alpha")

	batch, err := engine.MigrateApproved(ctx, 10)
	require.NoError(t, err)

	assert.Zero(t, batch.Migrated)
	assert.Equal(t, 1, batch.Skipped)
	assert.Zero(t, sink.Count(), "the losing insert is removed from production")

	item, err := st.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.MigrationMigrated, item.MigrationStatus)
	require.NotNil(t, item.ProductionIdeaID)
	assert.Equal(t, int64(999), *item.ProductionIdeaID, "the competing claim stands")
}

func TestMigrateApproved_FailureIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Items migrate in review order, so the failing save lands on the
	// first item.
	failingID := f.stageApproved(t, "alpha")
	survivorID := f.stageApproved(t, "beta")
	f.sink.SaveErr = errors.New("production database unavailable")

	batch, err := f.engine.MigrateApproved(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, batch.Migrated)
	assert.Equal(t, 1, batch.Failed)
	assert.False(t, batch.Successful)
	assert.Equal(t, domain.BatchFailed, batch.State())
	require.Len(t, batch.Errors, 1)
	assert.Contains(t, batch.Errors[0], "production database unavailable")

	failed, err := f.staging.GetByID(ctx, failingID)
	require.NoError(t, err)
	assert.Equal(t, domain.MigrationFailed, failed.MigrationStatus)

	survived, err := f.staging.GetByID(ctx, survivorID)
	require.NoError(t, err)
	assert.Equal(t, domain.MigrationMigrated, survived.MigrationStatus)
}

func TestMigrateSpecific_IneligibleSkippedWithWarning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	eligible := f.stageApproved(t, "alpha")

	pending, err := f.staging.Stage(ctx, &domain.TransformedCandidate{
		ProjectName:      "beta",
		ShortDescription: "short beta",
		Solution:         "solution beta",
		CreatedBy:        "AI-Generated",
		Rating:           5,
		ContentHash:      dedup.Fingerprint("beta"),
	})
	require.NoError(t, err)

	batch, err := f.engine.MigrateSpecific(ctx, []int64{eligible, pending.ID, 9999})
	require.NoError(t, err)

	assert.Equal(t, 1, batch.Migrated)
	assert.Len(t, batch.Warnings, 2)
}

func TestRollback_RestoresBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.stageApproved(t, "alpha")

	batch, err := f.engine.MigrateApproved(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, batch.Migrated)
	require.Equal(t, 1, f.sink.Count())

	require.NoError(t, f.engine.Rollback(ctx, batch.ID))

	assert.Zero(t, f.sink.Count(), "production records removed")

	item, err := f.staging.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.MigrationNotMigrated, item.MigrationStatus)
	assert.True(t, item.ReadyForMigration(), "item is eligible again")

	// Rolling back twice is an error.
	err = f.engine.Rollback(ctx, batch.ID)
	assert.ErrorIs(t, err, migration.ErrAlreadyRolledBack)
}

func TestRollback_Disabled(t *testing.T) {
	st := staging.NewMemoryStore()
	engine := migration.NewEngine(
		st, production.NewMemorySink(), migration.NewMemoryBatchStore(),
		config.MigrationConfig{BatchSize: 50, EnableRollback: false},
		logger.NewNop(),
	)

	err := engine.Rollback(context.Background(), "MIG_1_abc")
	assert.ErrorIs(t, err, migration.ErrRollbackDisabled)
}

func TestRollback_UnknownBatch(t *testing.T) {
	f := newFixture(t)

	err := f.engine.Rollback(context.Background(), "MIG_0_missing")
	assert.ErrorIs(t, err, migration.ErrBatchNotFound)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, batch, err := f.engine.Status(ctx, "MIG_0_missing")
	require.NoError(t, err)
	assert.Equal(t, domain.BatchNotStarted, state)
	assert.Nil(t, batch)

	f.stageApproved(t, "alpha")
	completed, err := f.engine.MigrateApproved(ctx, 10)
	require.NoError(t, err)

	state, batch, err = f.engine.Status(ctx, completed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchCompleted, state)
	require.NotNil(t, batch)
	assert.Equal(t, 1, batch.Migrated)
}

func TestHistory_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	f.engine.WithClock(func() time.Time {
		now = now.Add(time.Minute)
		return now
	})

	f.stageApproved(t, "alpha")
	first, err := f.engine.MigrateApproved(ctx, 10)
	require.NoError(t, err)

	f.stageApproved(t, "beta")
	second, err := f.engine.MigrateApproved(ctx, 10)
	require.NoError(t, err)

	history, err := f.engine.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}
