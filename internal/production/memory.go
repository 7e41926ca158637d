package production

import (
	"context"
	"strings"
	"sync"

	"ideaminer/internal/domain"
)

// Idea is the in-memory production record.
type Idea struct {
	ID           int64
	ProjectName  string
	CreatedBy    string
	Likes        int
	Rating       int
	SourceURL    string
	Technologies []string
	Categories   []string
}

// MemorySink implements Sink with an in-memory map. Used in tests.
type MemorySink struct {
	mu     sync.Mutex
	nextID int64
	ideas  map[int64]*Idea

	// SaveErr, when set, makes the next Save fail. Used to exercise
	// failure isolation in migration tests.
	SaveErr error
}

// NewMemorySink creates an empty in-memory production sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		nextID: 1,
		ideas:  make(map[int64]*Idea),
	}
}

// Save inserts the staged item as a production idea.
func (s *MemorySink) Save(_ context.Context, item *domain.StagedItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		err := s.SaveErr
		s.SaveErr = nil
		return 0, err
	}

	idea := &Idea{
		ID:           s.nextID,
		ProjectName:  item.ProjectName,
		CreatedBy:    item.CreatedBy,
		Likes:        item.Likes,
		Rating:       item.Rating,
		SourceURL:    item.OriginalURL,
		Technologies: append([]string(nil), item.Technologies...),
		Categories:   append([]string(nil), item.Categories...),
	}
	s.nextID++
	s.ideas[idea.ID] = idea

	return idea.ID, nil
}

// ExistsByNameAndCreator reports whether an idea exists with the name and
// creator, ignoring case.
func (s *MemorySink) ExistsByNameAndCreator(_ context.Context, name, creator string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, idea := range s.ideas {
		if strings.EqualFold(idea.ProjectName, name) && strings.EqualFold(idea.CreatedBy, creator) {
			return true, nil
		}
	}

	return false, nil
}

// Delete removes ideas by id.
func (s *MemorySink) Delete(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.ideas, id)
	}

	return nil
}

// Get returns the idea under id, or nil. Used in tests.
func (s *MemorySink) Get(id int64) *Idea {
	s.mu.Lock()
	defer s.mu.Unlock()

	idea, ok := s.ideas[id]
	if !ok {
		return nil
	}
	copied := *idea
	return &copied
}

// Count returns the number of production ideas. Used in tests.
func (s *MemorySink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ideas)
}
