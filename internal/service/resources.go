package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

type resource struct {
	name  string
	close func(ctx context.Context) error
}

// Resources tracks every long-lived resource a service instance owns so
// teardown can close them exactly once, in reverse registration order.
type Resources struct {
	mu     sync.Mutex
	items  []resource
	closed bool
}

func NewResources() *Resources {
	return &Resources{}
}

// Add registers a close function under a stable name. Registration order is
// preserved; CloseAll runs in reverse.
func (r *Resources) Add(name string, close func(ctx context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, resource{name: name, close: close})
}

// AddCloser registers an io.Closer whose Close does not take a context.
func (r *Resources) AddCloser(name string, c io.Closer) {
	r.Add(name, func(context.Context) error { return c.Close() })
}

// Names returns the registered resource names in registration order.
func (r *Resources) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.items))
	for i, item := range r.items {
		names[i] = item.name
	}
	return names
}

// Len returns the number of registered resources.
func (r *Resources) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// CloseAll closes every registered resource in reverse registration order,
// bounded by ctx. Errors are logged, not returned, and teardown continues
// past them. A second call is a no-op.
func (r *Resources) CloseAll(ctx context.Context, logger *slog.Logger) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	items := make([]resource, len(r.items))
	copy(items, r.items)
	r.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		if err := items[i].close(ctx); err != nil {
			logger.Error("resource close failed", "resource", items[i].name, "error", err)
			continue
		}
		logger.Debug("resource closed", "resource", items[i].name)
	}
}
