package domain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheMetrics_Reset(t *testing.T) {
	t.Run("should zero counters and move the reset time", func(t *testing.T) {
		m := NewCacheMetrics()
		m.RecordHit(NamespaceSpeech)
		m.RecordMiss(NamespaceSpeech)
		m.RecordError(NamespaceDialogue)
		before := m.Since()

		m.Reset()

		snapshot := m.Snapshot()
		require.Equal(t, NamespaceStats{}, snapshot[NamespaceSpeech])
		require.Equal(t, NamespaceStats{}, snapshot[NamespaceDialogue])
		require.False(t, m.Since().Before(before))
	})

	t.Run("should keep increments from recorders that looked up counters before the reset", func(t *testing.T) {
		m := NewCacheMetrics()
		m.RecordHit(NamespaceSpeech)
		held := m.forNamespace(NamespaceSpeech)

		m.Reset()
		held.hits.Add(1)

		require.Equal(t, int64(1), m.Snapshot()[NamespaceSpeech].Hits)
	})

	t.Run("should not lose increments recorded after concurrent resets finish", func(t *testing.T) {
		m := NewCacheMetrics()
		m.RecordHit(NamespaceSpeech)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				m.Reset()
			}()
			go func() {
				defer wg.Done()
				m.RecordMiss(NamespaceSpeech)
			}()
		}
		wg.Wait()

		m.Reset()
		for i := 0; i < 5; i++ {
			m.RecordHit(NamespaceSpeech)
		}
		require.Equal(t, int64(5), m.Snapshot()[NamespaceSpeech].Hits)
		require.Zero(t, m.Snapshot()[NamespaceSpeech].Misses)
	})
}
