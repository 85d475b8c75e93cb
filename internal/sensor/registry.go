package sensor

import (
	"sync"

	"github.com/couchcryptid/marine-weather-service/internal/observability"
)

// Registry is the concurrency-safe store of published entities. Listing
// preserves registration order so API output is stable across polls.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]Entity
	order    []string
	metrics  *observability.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(metrics *observability.Metrics) *Registry {
	return &Registry{
		entities: make(map[string]Entity),
		metrics:  metrics,
	}
}

// Upsert stores an entity, replacing any previous version with the same id,
// and refreshes the active-sensors gauge.
func (r *Registry) Upsert(e Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[e.ID]; !exists {
		r.order = append(r.order, e.ID)
	}
	r.entities[e.ID] = e

	available := 0
	for _, ent := range r.entities {
		if ent.Available {
			available++
		}
	}
	r.metrics.SensorsActive.Set(float64(available))
}

// Get returns the entity with the given id.
func (r *Registry) Get(id string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	return e, ok
}

// List returns all entities in registration order.
func (r *Registry) List() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entities[id])
	}
	return out
}

// Len reports the number of registered entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}
