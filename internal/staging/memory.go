package staging

import (
	"context"
	"sort"
	"sync"
	"time"

	"ideaminer/internal/domain"
)

// MemoryStore implements Store with an in-memory map. Used in tests and for
// running the pipeline without a database.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.StagedItem
	hashes map[string]int64
	urls   map[string]int64
}

// NewMemoryStore creates an empty in-memory staging store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		items:  make(map[int64]*domain.StagedItem),
		hashes: make(map[string]int64),
		urls:   make(map[string]int64),
	}
}

// Stage inserts a candidate, enforcing content hash and source URL
// uniqueness.
func (s *MemoryStore) Stage(_ context.Context, candidate *domain.TransformedCandidate) (*domain.StagedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.hashes[candidate.ContentHash]; ok {
		return nil, ErrDuplicate
	}
	if candidate.OriginalURL != "" {
		if _, ok := s.urls[candidate.OriginalURL]; ok {
			return nil, ErrDuplicate
		}
	}

	item := fromCandidate(candidate)
	item.ID = s.nextID
	s.nextID++

	s.items[item.ID] = item
	s.hashes[item.ContentHash] = item.ID
	if item.OriginalURL != "" {
		s.urls[item.OriginalURL] = item.ID
	}

	copied := *item
	return &copied, nil
}

// GetByID returns a copy of the item or ErrNotFound.
func (s *MemoryStore) GetByID(_ context.Context, id int64) (*domain.StagedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *item
	return &copied, nil
}

// ListByReviewStatus returns items in the given review state, newest first.
func (s *MemoryStore) ListByReviewStatus(_ context.Context, status domain.ReviewStatus, limit, offset int) ([]domain.StagedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []domain.StagedItem{}
	for _, item := range s.items {
		if item.ReviewStatus == status {
			matched = append(matched, *item)
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	if offset >= len(matched) {
		return []domain.StagedItem{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

// SetReview applies a review decision to a PENDING item.
func (s *MemoryStore) SetReview(_ context.Context, id int64, status domain.ReviewStatus, reviewer string, notes *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	if item.ReviewStatus != domain.ReviewPending {
		return ErrNotPending
	}

	now := time.Now()
	item.ReviewStatus = status
	item.ReviewedBy = &reviewer
	item.ReviewedAt = &now
	item.ReviewNotes = notes

	return nil
}

// ApprovedReadyForMigration returns approved, unmigrated items in review
// order.
func (s *MemoryStore) ApprovedReadyForMigration(_ context.Context, limit int) ([]domain.StagedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []domain.StagedItem{}
	for _, item := range s.items {
		if item.ReadyForMigration() {
			matched = append(matched, *item)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].ReviewedAt, matched[j].ReviewedAt
		if a == nil || b == nil {
			return matched[i].ID < matched[j].ID
		}
		return a.Before(*b)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

// MarkMigrated claims the item, returning false when it was already moved.
func (s *MemoryStore) MarkMigrated(_ context.Context, id, productionID int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || item.MigrationStatus != domain.MigrationNotMigrated {
		return false, nil
	}

	item.MigrationStatus = domain.MigrationMigrated
	item.MigratedAt = &at
	item.ProductionIdeaID = &productionID

	return true, nil
}

// MarkMigrationFailed records a failed attempt.
func (s *MemoryStore) MarkMigrationFailed(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	item.MigrationStatus = domain.MigrationFailed

	return nil
}

// ResetMigration returns items to NOT_MIGRATED.
func (s *MemoryStore) ResetMigration(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		item, ok := s.items[id]
		if !ok {
			continue
		}
		item.MigrationStatus = domain.MigrationNotMigrated
		item.MigratedAt = nil
		item.ProductionIdeaID = nil
	}

	return nil
}

// RecentTexts returns rewritten text for items staged since the cutoff.
func (s *MemoryStore) RecentTexts(_ context.Context, since time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	texts := []string{}
	for _, item := range s.items {
		if item.TransformedAt != nil && !item.TransformedAt.Before(since) {
			texts = append(texts, item.ProjectName+" "+item.ShortDescription+" "+item.Solution)
		}
	}

	return texts, nil
}

// KnownHashes returns all staged content hashes.
func (s *MemoryStore) KnownHashes(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[string]struct{}, len(s.hashes))
	for h := range s.hashes {
		set[h] = struct{}{}
	}

	return set, nil
}

// Cleanup deletes migrated items scraped before the cutoff.
func (s *MemoryStore) Cleanup(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, item := range s.items {
		if item.MigrationStatus == domain.MigrationMigrated && item.ScrapedAt.Before(before) {
			delete(s.items, id)
			delete(s.hashes, item.ContentHash)
			delete(s.urls, item.OriginalURL)
			removed++
		}
	}

	return removed, nil
}

// Summary aggregates counts over the store.
func (s *MemoryStore) Summary(_ context.Context) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := &Summary{Total: len(s.items)}
	for _, item := range s.items {
		switch item.ReviewStatus {
		case domain.ReviewPending:
			sum.Pending++
		case domain.ReviewApproved:
			sum.Approved++
		case domain.ReviewRejected:
			sum.Rejected++
		}
		switch item.MigrationStatus {
		case domain.MigrationNotMigrated:
			sum.NotMigrated++
		case domain.MigrationMigrated:
			sum.Migrated++
		case domain.MigrationFailed:
			sum.Failed++
		}
	}

	return sum, nil
}
