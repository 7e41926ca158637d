package fetch_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaminer/internal/config"
	"ideaminer/internal/database"
	"ideaminer/internal/dedup"
	"ideaminer/internal/domain"
	"ideaminer/internal/fetch"
	"ideaminer/internal/logger"
	"ideaminer/internal/staging"
)

// fakeFetcher serves canned listings per source name.
type fakeFetcher struct {
	listings map[string][]domain.RawListing
	err      error
}

func (f *fakeFetcher) Fetch(_ context.Context, source domain.Source) ([]domain.RawListing, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.listings[source.Name], nil
}

func (f *fakeFetcher) Validate(listing *domain.RawListing) bool {
	return !strings.Contains(listing.Title, "spam")
}

// fakeTransformer turns every listing into a candidate without calling out.
type fakeTransformer struct{}

func (fakeTransformer) BatchTransform(_ context.Context, listings []domain.RawListing) []domain.TransformedCandidate {
	candidates := make([]domain.TransformedCandidate, 0, len(listings))
	for _, l := range listings {
		candidates = append(candidates, domain.TransformedCandidate{
			OriginalURL:      l.SourceURL,
			SourceName:       l.SourceName,
			ScrapedAt:        l.ScrapedAt,
			TransformedAt:    time.Now(),
			ProjectName:      "Rewritten " + l.Title,
			ShortDescription: "rewritten description of " + l.Title,
			Solution:         "rewritten solution for " + l.Title,
			CreatedBy:        "AI-Generated",
			Rating:           6,
			ContentHash:      dedup.Fingerprint("Rewritten "+l.Title, l.Description),
		})
	}
	return candidates
}

func listing(source, title string) domain.RawListing {
	return domain.RawListing{
		SourceName:  source,
		SourceURL:   "https://example.com/" + source + "/" + title,
		ScrapedAt:   time.Now(),
		Title:       title,
		Description: "description of " + title,
	}
}

func newOrchestrator(fetcher fetch.Fetcher, store *staging.MemoryStore, runs *database.MemoryRunRepository) *fetch.Orchestrator {
	registry := fetch.NewRegistry()
	registry.Register("fake", fetcher)

	return fetch.NewOrchestrator(fetch.OrchestratorParams{
		Registry:     registry,
		Runs:         runs,
		Transformer:  fakeTransformer{},
		Stager:       store,
		Detector:     dedup.NewDetector(dedup.DefaultThreshold),
		Scraping:     config.ScrapingConfig{Enabled: true, MaxWorkers: 3},
		RecentWindow: 30 * 24 * time.Hour,
		Logger:       logger.NewNop(),
	})
}

func source(name string) domain.Source {
	return domain.Source{Name: name, Enabled: true, Fetcher: "fake"}
}

func TestRunOne_HappyPath(t *testing.T) {
	fetcher := &fakeFetcher{listings: map[string][]domain.RawListing{
		"devpost": {listing("devpost", "alpha"), listing("devpost", "beta")},
	}}
	store := staging.NewMemoryStore()
	runs := database.NewMemoryRunRepository()

	src := source("devpost")
	run, err := newOrchestrator(fetcher, store, runs).RunOne(context.Background(), &src)
	require.NoError(t, err)

	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, 2, run.Fetched)
	assert.Equal(t, 2, run.Transformed)
	assert.Equal(t, 2, run.Staged)
	assert.NotNil(t, run.CompletedAt)
	assert.Empty(t, run.Warnings)

	sum, err := store.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 2, sum.Pending)
}

func TestRunOne_FetchFailureClosesRun(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("source unreachable")}
	runs := database.NewMemoryRunRepository()

	src := source("devpost")
	run, err := newOrchestrator(fetcher, staging.NewMemoryStore(), runs).RunOne(context.Background(), &src)
	require.Error(t, err)
	require.NotNil(t, run)

	assert.Equal(t, domain.RunFailed, run.Status)
	assert.NotNil(t, run.CompletedAt, "failed runs are still closed")
	require.NotNil(t, run.ErrorMessage)
	assert.Contains(t, *run.ErrorMessage, "source unreachable")
}

func TestRunOne_UnknownFetcher(t *testing.T) {
	runs := database.NewMemoryRunRepository()
	orch := newOrchestrator(&fakeFetcher{}, staging.NewMemoryStore(), runs)

	src := domain.Source{Name: "unknown", Enabled: true}
	run, err := orch.RunOne(context.Background(), &src)
	require.Error(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)
}

func TestRunOne_FiltersDuplicatesAndInvalid(t *testing.T) {
	same := listing("devpost", "alpha")
	fetcher := &fakeFetcher{listings: map[string][]domain.RawListing{
		"devpost": {
			same,
			same, // exact duplicate within the batch
			listing("devpost", "spam offer"),   // rejected by fetcher.Validate
			{SourceName: "devpost", Title: ""}, // structurally invalid
		},
	}}
	store := staging.NewMemoryStore()

	src := source("devpost")
	run, err := newOrchestrator(fetcher, store, database.NewMemoryRunRepository()).RunOne(context.Background(), &src)
	require.NoError(t, err)

	assert.Equal(t, 4, run.Fetched)
	assert.Equal(t, 1, run.Transformed)
	assert.Equal(t, 1, run.Staged)
	assert.Len(t, run.Warnings, 2)
}

func TestRunOne_DropsStagingDuplicates(t *testing.T) {
	fetcher := &fakeFetcher{listings: map[string][]domain.RawListing{
		"devpost": {listing("devpost", "alpha")},
	}}
	store := staging.NewMemoryStore()
	runs := database.NewMemoryRunRepository()
	orch := newOrchestrator(fetcher, store, runs)
	ctx := context.Background()

	src := source("devpost")
	first, err := orch.RunOne(ctx, &src)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Staged)

	// Same listing again: same content hash, dropped against staging.
	second, err := orch.RunOne(ctx, &src)
	require.NoError(t, err)
	assert.Zero(t, second.Staged)
	assert.NotEmpty(t, second.Warnings)

	sum, err := store.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Total)
}

func TestScrapingDisabled_NothingRuns(t *testing.T) {
	fetcher := &fakeFetcher{listings: map[string][]domain.RawListing{
		"devpost": {listing("devpost", "alpha")},
	}}
	registry := fetch.NewRegistry()
	registry.Register("fake", fetcher)

	runs := database.NewMemoryRunRepository()
	orch := fetch.NewOrchestrator(fetch.OrchestratorParams{
		Registry:     registry,
		Runs:         runs,
		Transformer:  fakeTransformer{},
		Stager:       staging.NewMemoryStore(),
		Scraping:     config.ScrapingConfig{Enabled: false, MaxWorkers: 3},
		RecentWindow: 30 * 24 * time.Hour,
		Logger:       logger.NewNop(),
	})
	ctx := context.Background()

	assert.Empty(t, orch.RunAll(ctx, []domain.Source{source("devpost")}))

	src := source("devpost")
	_, err := orch.RunOne(ctx, &src)
	assert.ErrorIs(t, err, fetch.ErrScrapingDisabled)

	all, err := runs.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, all, "no run records are opened while scraping is off")
}

func TestRunAll_IsolatesSourceFailures(t *testing.T) {
	registry := fetch.NewRegistry()
	registry.Register("good", &fakeFetcher{listings: map[string][]domain.RawListing{
		"good-source": {listing("good-source", "alpha")},
	}})
	registry.Register("bad", &fakeFetcher{err: errors.New("boom")})

	store := staging.NewMemoryStore()
	runs := database.NewMemoryRunRepository()
	orch := fetch.NewOrchestrator(fetch.OrchestratorParams{
		Registry:     registry,
		Runs:         runs,
		Transformer:  fakeTransformer{},
		Stager:       store,
		Scraping:     config.ScrapingConfig{Enabled: true, MaxWorkers: 2},
		RecentWindow: 30 * 24 * time.Hour,
		Logger:       logger.NewNop(),
	})

	sources := []domain.Source{
		{Name: "good-source", Enabled: true, Fetcher: "good"},
		{Name: "bad-source", Enabled: true, Fetcher: "bad"},
		{Name: "disabled-source", Enabled: false, Fetcher: "good"},
	}

	results := orch.RunAll(context.Background(), sources)
	require.Len(t, results, 2, "disabled sources are not run")

	byName := map[string]*domain.ScheduledRun{}
	for _, run := range results {
		byName[run.SourceName] = run
	}
	assert.Equal(t, domain.RunCompleted, byName["good-source"].Status)
	assert.Equal(t, domain.RunFailed, byName["bad-source"].Status)
}
