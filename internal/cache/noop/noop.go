// Package noop provides the ephemeral tier used when Redis is disabled or unreachable.
// Reads always miss and writes are discarded; hit/miss counters still work.
package noop

import (
	"context"
	"time"

	"github.com/davidbz/kiln/internal/domain"
)

const backendName = "noop"

// EphemeralCache implements domain.EphemeralCache without storage.
type EphemeralCache struct {
	metrics *domain.CacheMetrics
}

// New creates a no-op ephemeral tier.
func New() *EphemeralCache {
	return &EphemeralCache{metrics: domain.NewCacheMetrics()}
}

// Get always misses.
func (e *EphemeralCache) Get(context.Context, string) ([]byte, bool) {
	return nil, false
}

// GetMulti always returns an empty map.
func (e *EphemeralCache) GetMulti(context.Context, []string) map[string][]byte {
	return map[string][]byte{}
}

// Set discards the value.
func (e *EphemeralCache) Set(context.Context, string, []byte, time.Duration) {}

// Delete does nothing.
func (e *EphemeralCache) Delete(context.Context, string) {}

// ClearNamespace removes nothing.
func (e *EphemeralCache) ClearNamespace(context.Context, string) int {
	return 0
}

// Metrics returns the hit/miss counters.
func (e *EphemeralCache) Metrics() *domain.CacheMetrics {
	return e.metrics
}

// Name returns the implementation identifier.
func (e *EphemeralCache) Name() string {
	return backendName
}
