package domain

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// NamespaceStats is a point-in-time view of one namespace's counters.
type NamespaceStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Errors    int64   `json:"errors"`
	ErrorRate float64 `json:"error_rate"`
}

// MetricsReport is the read-only metrics view handed to callers.
type MetricsReport struct {
	Backend      string                       `json:"backend"`
	Since        time.Time                    `json:"since"`
	PerNamespace map[Namespace]NamespaceStats `json:"per_namespace"`
}

type namespaceCounters struct {
	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// CacheMetrics holds process-lifetime hit/miss/error counters per namespace.
type CacheMetrics struct {
	mu       sync.RWMutex
	counters map[Namespace]*namespaceCounters
	since    time.Time
}

// NewCacheMetrics creates empty counters.
func NewCacheMetrics() *CacheMetrics {
	return &CacheMetrics{
		mu:       sync.RWMutex{},
		counters: make(map[Namespace]*namespaceCounters),
		since:    time.Now(),
	}
}

func (m *CacheMetrics) forNamespace(ns Namespace) *namespaceCounters {
	m.mu.RLock()
	c, ok := m.counters[ns]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.counters[ns]; ok {
		return c
	}
	c = &namespaceCounters{}
	m.counters[ns] = c
	return c
}

// RecordHit counts a served cache hit.
func (m *CacheMetrics) RecordHit(ns Namespace) {
	m.forNamespace(ns).hits.Add(1)
}

// RecordMiss counts a full miss that required generation.
func (m *CacheMetrics) RecordMiss(ns Namespace) {
	m.forNamespace(ns).misses.Add(1)
}

// RecordError counts a failure in a tier or back end.
func (m *CacheMetrics) RecordError(ns Namespace) {
	m.forNamespace(ns).errors.Add(1)
}

// Snapshot returns the current counters.
func (m *CacheMetrics) Snapshot() map[Namespace]NamespaceStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[Namespace]NamespaceStats, len(m.counters))
	for ns, c := range m.counters {
		stats := NamespaceStats{
			Hits:   c.hits.Load(),
			Misses: c.misses.Load(),
			Errors: c.errors.Load(),
		}
		if total := stats.Hits + stats.Misses; total > 0 {
			stats.ErrorRate = float64(stats.Errors) / float64(total)
		}
		out[ns] = stats
	}
	return out
}

// Since returns when the counters were last reset.
func (m *CacheMetrics) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.since
}

// Reset zeroes every counter in place. Recorders already holding a
// namespace's counters keep counting into the live set.
func (m *CacheMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.counters {
		c.hits.Store(0)
		c.misses.Store(0)
		c.errors.Store(0)
	}
	m.since = time.Now()
}

// RunResetLoop resets the counters every interval until ctx is done.
func (m *CacheMetrics) RunResetLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Reset()
		}
	}
}

// SortedNamespaces returns the namespaces of a snapshot in stable order.
func SortedNamespaces(snapshot map[Namespace]NamespaceStats) []Namespace {
	out := make([]Namespace, 0, len(snapshot))
	for ns := range snapshot {
		out = append(out, ns)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
