package scheduler

import "sync"

// Registry tracks in-flight work so overlapping runs are skipped, never
// queued. Source slots guard single-source runs; the global slot guards
// full sweeps.
type Registry struct {
	mu      sync.Mutex
	sources map[string]struct{}
	global  bool
}

// NewRegistry creates an empty run registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]struct{})}
}

// AcquireSource claims the slot for a source. Returns false when the source
// is already running.
func (r *Registry) AcquireSource(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, running := r.sources[name]; running {
		return false
	}
	r.sources[name] = struct{}{}

	return true
}

// ReleaseSource frees the slot for a source.
func (r *Registry) ReleaseSource(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, name)
}

// AcquireGlobal claims the sweep slot. Returns false when a sweep is
// already running.
func (r *Registry) AcquireGlobal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.global {
		return false
	}
	r.global = true

	return true
}

// ReleaseGlobal frees the sweep slot.
func (r *Registry) ReleaseGlobal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = false
}

// GlobalRunning reports whether a sweep is in flight.
func (r *Registry) GlobalRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.global
}

// RunningSources returns the names of sources currently running.
func (r *Registry) RunningSources() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}

	return names
}
