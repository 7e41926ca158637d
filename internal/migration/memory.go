package migration

import (
	"context"
	"sort"
	"sync"

	"ideaminer/internal/domain"
)

// MemoryBatchStore implements BatchStore with an in-memory map. Used in
// tests.
type MemoryBatchStore struct {
	mu      sync.Mutex
	batches map[string]*domain.MigrationBatch
}

// NewMemoryBatchStore creates an empty in-memory batch store.
func NewMemoryBatchStore() *MemoryBatchStore {
	return &MemoryBatchStore{batches: make(map[string]*domain.MigrationBatch)}
}

// Create inserts a batch record.
func (s *MemoryBatchStore) Create(_ context.Context, batch *domain.MigrationBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *batch
	s.batches[batch.ID] = &copied

	return nil
}

// Update overwrites the batch record.
func (s *MemoryBatchStore) Update(_ context.Context, batch *domain.MigrationBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[batch.ID]; !ok {
		return ErrBatchNotFound
	}

	copied := *batch
	s.batches[batch.ID] = &copied

	return nil
}

// Get returns the batch or ErrBatchNotFound.
func (s *MemoryBatchStore) Get(_ context.Context, id string) (*domain.MigrationBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, ok := s.batches[id]
	if !ok {
		return nil, ErrBatchNotFound
	}

	copied := *batch
	return &copied, nil
}

// List returns batches newest first.
func (s *MemoryBatchStore) List(_ context.Context, limit int) ([]domain.MigrationBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]domain.MigrationBatch, 0, len(s.batches))
	for _, b := range s.batches {
		all = append(all, *b)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].StartedAt.After(all[j].StartedAt) })

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	return all, nil
}
