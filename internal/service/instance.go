// Package service holds the per-run instance handle: identity, resource
// bookkeeping for teardown, the health-transition fan-out, and the
// diagnostics export.
package service

import (
	"time"

	"github.com/google/uuid"
)

// Instance identifies one run of the service. The ID is stamped on published
// events and the diagnostics export so overlapping deployments can be told
// apart.
type Instance struct {
	ID        string
	StartedAt time.Time
	Version   string
	Resources *Resources
}

// NewInstance creates a fresh instance handle with a random ID.
func NewInstance(version string) *Instance {
	return &Instance{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Version:   version,
		Resources: NewResources(),
	}
}

// Uptime reports how long this instance has been running.
func (i *Instance) Uptime() time.Duration {
	return time.Since(i.StartedAt)
}
