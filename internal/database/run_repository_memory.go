package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"ideaminer/internal/domain"
)

// MemoryRunRepository is an in-memory run repository. Used in tests and for
// running the pipeline without a database.
type MemoryRunRepository struct {
	mu   sync.Mutex
	runs map[string]*domain.ScheduledRun
}

// NewMemoryRunRepository creates an empty in-memory run repository.
func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{runs: make(map[string]*domain.ScheduledRun)}
}

// Create inserts a run record.
func (r *MemoryRunRepository) Create(_ context.Context, run *domain.ScheduledRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *run
	r.runs[run.ID] = &copied

	return nil
}

// Update overwrites the run record.
func (r *MemoryRunRepository) Update(_ context.Context, run *domain.ScheduledRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; !ok {
		return ErrRunNotFound
	}

	copied := *run
	r.runs[run.ID] = &copied

	return nil
}

// LastCompleted returns the most recent completed run for a source, or nil.
func (r *MemoryRunRepository) LastCompleted(_ context.Context, sourceName string) (*domain.ScheduledRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *domain.ScheduledRun
	for _, run := range r.runs {
		if run.SourceName != sourceName || run.Status != domain.RunCompleted || run.CompletedAt == nil {
			continue
		}
		if latest == nil || run.CompletedAt.After(*latest.CompletedAt) {
			latest = run
		}
	}

	if latest == nil {
		return nil, nil
	}

	copied := *latest
	return &copied, nil
}

// ExistsForSourceSince reports whether any run started for the source after
// the cutoff.
func (r *MemoryRunRepository) ExistsForSourceSince(_ context.Context, sourceName string, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, run := range r.runs {
		if run.SourceName == sourceName && !run.StartedAt.Before(since) {
			return true, nil
		}
	}

	return false, nil
}

// FindFailedSince returns failed runs started after the cutoff, oldest
// first.
func (r *MemoryRunRepository) FindFailedSince(_ context.Context, since time.Time) ([]domain.ScheduledRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	failed := []domain.ScheduledRun{}
	for _, run := range r.runs {
		if run.Status == domain.RunFailed && !run.StartedAt.Before(since) {
			failed = append(failed, *run)
		}
	}

	sort.Slice(failed, func(i, j int) bool { return failed[i].StartedAt.Before(failed[j].StartedAt) })

	return failed, nil
}

// List returns runs newest first.
func (r *MemoryRunRepository) List(_ context.Context, limit int) ([]domain.ScheduledRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]domain.ScheduledRun, 0, len(r.runs))
	for _, run := range r.runs {
		all = append(all, *run)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].StartedAt.After(all[j].StartedAt) })

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	return all, nil
}
