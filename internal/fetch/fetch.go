// Package fetch orchestrates listing collection from configured sources.
// Fetch mechanics live behind the Fetcher interface so sources can be added
// without touching the orchestration.
package fetch

import (
	"context"
	"fmt"
	"sync"

	"ideaminer/internal/domain"
)

// Fetcher collects raw listings from one kind of source. Implementations
// honor source.RateLimit() between page requests and ctx cancellation.
type Fetcher interface {
	// Fetch returns the raw listings currently visible on the source.
	Fetch(ctx context.Context, source domain.Source) ([]domain.RawListing, error)

	// Validate reports whether a listing meets the fetcher's own quality
	// bar, beyond the structural minimum.
	Validate(listing *domain.RawListing) bool
}

// Registry maps fetcher names to implementations.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[string]Fetcher
}

// NewRegistry creates an empty fetcher registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]Fetcher)}
}

// Register binds a fetcher under a name. Re-registering a name replaces the
// previous fetcher.
func (r *Registry) Register(name string, f Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[name] = f
}

// Get returns the fetcher for a source, resolving the source's explicit
// fetcher name first and falling back to the source name.
func (r *Registry) Get(source *domain.Source) (Fetcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := source.Fetcher
	if name == "" {
		name = source.Name
	}

	f, ok := r.fetchers[name]
	if !ok {
		return nil, fmt.Errorf("no fetcher registered for %q", name)
	}

	return f, nil
}

// Names returns the registered fetcher names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.fetchers))
	for name := range r.fetchers {
		names = append(names, name)
	}

	return names
}
