package actor

import (
	"sort"
	"sync"
)

// Registry tracks the actors hosted by one server process, keyed by name,
// an adapter-lookup shape generalized from channel adapters to actor
// handles. internal/controlplane dispatches every operation through a
// Registry rather than holding its own actor map.
type Registry struct {
	mu     sync.RWMutex
	actors map[string]*Actor
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{actors: make(map[string]*Actor)}
}

// Register adds a (the caller is presumed to have already started a.Run in
// its own goroutine). Registering a name that already exists replaces it.
func (r *Registry) Register(a *Actor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors[a.Name()] = a
}

// Unregister removes name from the registry, e.g. after it has been shut down.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.actors, name)
}

// Get returns the actor named name, if hosted by this process.
func (r *Registry) Get(name string) (*Actor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actors[name]
	return a, ok
}

// Names returns every hosted actor's name, sorted for stable listing.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actors))
	for name := range r.actors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
