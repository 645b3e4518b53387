package domain

import (
	"context"
	"time"
)

// SpeechSynthesizer converts text to audio.
type SpeechSynthesizer interface {
	// Synthesize returns encoded audio for text spoken by voiceID.
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)

	// Name returns the back-end identifier.
	Name() string
}

// DialogueGenerator produces a structured dialogue about a topic.
type DialogueGenerator interface {
	// GenerateDialogue returns the ordered turns of a dialogue.
	GenerateDialogue(ctx context.Context, topic, promptContext string) ([]Turn, error)

	// Name returns the back-end identifier.
	Name() string
}

// SynthesizerRegistry resolves speech back ends from voice identifiers.
type SynthesizerRegistry interface {
	// Register adds a synthesizer to the registry.
	Register(ctx context.Context, synthesizer SpeechSynthesizer) error

	// GetByVoice returns the synthesizer serving voiceID and the back-end local voice name.
	GetByVoice(ctx context.Context, voiceID string) (SpeechSynthesizer, string, error)

	// List returns all registered back-end names.
	List(ctx context.Context) ([]string, error)
}

// DurableStore is a write-once, content-addressed object store.
type DurableStore interface {
	// Exists reports whether an object is stored at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Read returns the object at path or ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)

	// WriteOnce stores data at path unless an object already exists there and
	// returns its public location. An existing object is not an error.
	WriteOnce(ctx context.Context, path string, data []byte, contentType string) (string, error)

	// Location returns the public location of path.
	Location(path string) string

	// DeletePrefix removes every object under prefix and returns the count.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// EphemeralCache is a fast TTL tier. Every method fails open.
type EphemeralCache interface {
	// Get returns the value at key, or false on miss or failure.
	Get(ctx context.Context, key string) ([]byte, bool)

	// GetMulti returns the values found for keys.
	GetMulti(ctx context.Context, keys []string) map[string][]byte

	// Set stores value at key for ttl, best effort.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Delete removes key, best effort.
	Delete(ctx context.Context, key string)

	// ClearNamespace removes every key starting with prefix and returns the count.
	ClearNamespace(ctx context.Context, prefix string) int

	// Metrics returns the hit/miss counters owned by this tier.
	Metrics() *CacheMetrics

	// Name returns the implementation identifier.
	Name() string
}

// LedgerEntry is the durable metadata of one cache entry.
type LedgerEntry struct {
	Namespace   Namespace
	Key         CacheKey
	Path        string
	ContentType string
	Version     string
	Size        int
	CreatedAt   time.Time
	Durable     bool
	LastError   string
}

// LedgerStats summarizes ledger entries of one namespace.
type LedgerStats struct {
	Namespace Namespace
	Entries   int64
	Bytes     int64
	Pending   int64
}

// EntryLedger records entry metadata and durable write failures for reconciliation.
type EntryLedger interface {
	// Record upserts an entry.
	Record(ctx context.Context, entry LedgerEntry) error

	// Pending returns entries whose durable write has not succeeded.
	Pending(ctx context.Context, limit int) ([]LedgerEntry, error)

	// Stats returns per-namespace totals.
	Stats(ctx context.Context) ([]LedgerStats, error)

	// DeleteNamespace removes every entry of ns and returns the count.
	DeleteNamespace(ctx context.Context, ns Namespace) (int, error)
}
