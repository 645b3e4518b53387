package domain_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/storage/filesystem"
)

const testBaseURL = "http://kiln.test/artifacts"

// memEphemeral is an in-memory ephemeral tier.
type memEphemeral struct {
	mu      sync.Mutex
	entries map[string][]byte
	metrics *domain.CacheMetrics
}

func newMemEphemeral() *memEphemeral {
	return &memEphemeral{entries: map[string][]byte{}, metrics: domain.NewCacheMetrics()}
}

func (m *memEphemeral) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *memEphemeral) GetMulti(ctx context.Context, keys []string) map[string][]byte {
	out := map[string][]byte{}
	for _, k := range keys {
		if v, ok := m.Get(ctx, k); ok {
			out[k] = v
		}
	}
	return out
}

func (m *memEphemeral) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
}

func (m *memEphemeral) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *memEphemeral) ClearNamespace(_ context.Context, prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

func (m *memEphemeral) Metrics() *domain.CacheMetrics { return m.metrics }

func (m *memEphemeral) Name() string { return "memory" }

func (m *memEphemeral) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// flakyStore fails writes while broken is set and blocks them until the
// context ends while hang is set.
type flakyStore struct {
	*filesystem.Store
	broken atomic.Bool
	hang   atomic.Bool
	writes atomic.Int32
}

var errDiskFull = errors.New("disk full")

func (s *flakyStore) WriteOnce(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	s.writes.Add(1)
	if s.hang.Load() {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.broken.Load() {
		return "", errDiskFull
	}
	return s.Store.WriteOnce(ctx, path, data, contentType)
}

// memLedger is an in-memory entry ledger.
type memLedger struct {
	mu      sync.Mutex
	entries map[string]domain.LedgerEntry
}

func newMemLedger() *memLedger {
	return &memLedger{entries: map[string]domain.LedgerEntry{}}
}

func (l *memLedger) Record(_ context.Context, entry domain.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[string(entry.Namespace)+"/"+string(entry.Key)] = entry
	return nil
}

func (l *memLedger) Pending(_ context.Context, limit int) ([]domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range l.entries {
		if !e.Durable && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *memLedger) Stats(context.Context) ([]domain.LedgerStats, error) {
	return nil, nil
}

func (l *memLedger) DeleteNamespace(_ context.Context, ns domain.Namespace) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, e := range l.entries {
		if e.Namespace == ns {
			delete(l.entries, k)
			removed++
		}
	}
	return removed, nil
}

func (l *memLedger) get(ns domain.Namespace, key domain.CacheKey) (domain.LedgerEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[string(ns)+"/"+string(key)]
	return e, ok
}

type testTiers struct {
	ephemeral *memEphemeral
	store     *flakyStore
	ledger    *memLedger
}

func newTestTiers(t *testing.T) *testTiers {
	t.Helper()
	store, err := filesystem.New(t.TempDir(), testBaseURL)
	require.NoError(t, err)
	return &testTiers{
		ephemeral: newMemEphemeral(),
		store:     &flakyStore{Store: store},
		ledger:    newMemLedger(),
	}
}

func (tt *testTiers) orchestrator() *domain.CacheOrchestrator {
	return domain.NewCacheOrchestrator(tt.ephemeral, tt.store, tt.ledger, testConfig())
}

func testConfig() domain.OrchestratorConfig {
	return domain.OrchestratorConfig{
		Policies: map[domain.Namespace]domain.NamespacePolicy{
			domain.NamespaceSpeech:    {Version: "v1", TTL: time.Hour},
			domain.NamespaceDialogue:  {Version: "v1", TTL: time.Hour},
			domain.NamespaceTurnAudio: {Version: "v1", TTL: time.Hour},
		},
		EphemeralTimeout:  time.Second,
		DurableTimeout:    5 * time.Second,
		GenerationTimeout: 10 * time.Second,
	}
}

// countingGenerator returns fixed bytes and counts its calls.
type countingGenerator struct {
	calls atomic.Int32
	data  []byte
	err   error
	delay time.Duration
}

func (g *countingGenerator) generate(ctx context.Context, _ domain.CacheKey) ([]byte, error) {
	g.calls.Add(1)
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.data, nil
}
