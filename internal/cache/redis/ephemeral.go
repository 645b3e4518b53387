package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/observability"
)

const (
	backendName = "redis"

	scanCount      = 500
	unlinkBatch    = 500
	defaultSetTTL  = time.Hour
	namespaceDelim = ":"
)

// EphemeralCache implements domain.EphemeralCache on Redis.
// Every method fails open: Redis errors are logged and counted, never returned.
type EphemeralCache struct {
	client  *redis.Client
	prefix  string
	codec   *codec
	metrics *domain.CacheMetrics
}

// NewClient creates a Redis client from config.
func NewClient(cfg *Config) *redis.Client {
	//nolint:exhaustruct // go-redis options have many optional fields
	return redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
}

// NewEphemeralCache creates a new Redis ephemeral tier.
func NewEphemeralCache(client *redis.Client, prefix string, compressionLevel int) (*EphemeralCache, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	c, err := newCodec(compressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create codec: %w", err)
	}

	return &EphemeralCache{
		client:  client,
		prefix:  prefix,
		codec:   c,
		metrics: domain.NewCacheMetrics(),
	}, nil
}

// Ping verifies the Redis connection.
func (e *EphemeralCache) Ping(ctx context.Context) error {
	if err := e.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Get returns the value at key, or false on miss or failure.
func (e *EphemeralCache) Get(ctx context.Context, key string) ([]byte, bool) {
	stored, err := e.client.Get(ctx, e.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		e.fail(ctx, "get", key, err)
		return nil, false
	}

	value, err := e.codec.decode(stored)
	if err != nil {
		e.fail(ctx, "decode", key, err)
		return nil, false
	}
	return value, true
}

// GetMulti returns the values found for keys.
func (e *EphemeralCache) GetMulti(ctx context.Context, keys []string) map[string][]byte {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = e.key(k)
	}

	values, err := e.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		e.fail(ctx, "mget", keys[0], err)
		return out
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		value, decodeErr := e.codec.decode([]byte(s))
		if decodeErr != nil {
			e.fail(ctx, "decode", keys[i], decodeErr)
			continue
		}
		out[keys[i]] = value
	}
	return out
}

// Set stores value at key for ttl, best effort.
func (e *EphemeralCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultSetTTL
	}
	if err := e.client.Set(ctx, e.key(key), e.codec.encode(value), ttl).Err(); err != nil {
		e.fail(ctx, "set", key, err)
	}
}

// Delete removes key, best effort.
func (e *EphemeralCache) Delete(ctx context.Context, key string) {
	if err := e.client.Unlink(ctx, e.key(key)).Err(); err != nil {
		e.fail(ctx, "delete", key, err)
	}
}

// ClearNamespace removes every key starting with prefix and returns the count.
func (e *EphemeralCache) ClearNamespace(ctx context.Context, prefix string) int {
	logger := observability.FromContext(ctx)
	pattern := escapeGlob(e.key(prefix)) + "*"

	removed := 0
	batch := make([]string, 0, unlinkBatch)
	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		n, err := e.client.Unlink(ctx, batch...).Result()
		if err != nil {
			e.fail(ctx, "unlink", prefix, err)
			return false
		}
		removed += int(n)
		batch = batch[:0]
		return true
	}

	iter := e.client.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == unlinkBatch && !flush() {
			return removed
		}
	}
	if err := iter.Err(); err != nil {
		e.fail(ctx, "scan", prefix, err)
		return removed
	}
	flush()

	logger.Info("ephemeral namespace cleared",
		observability.String("prefix", prefix),
		observability.Int("removed", removed))
	return removed
}

// Metrics returns the hit/miss counters owned by this tier.
func (e *EphemeralCache) Metrics() *domain.CacheMetrics {
	return e.metrics
}

// Name returns the implementation identifier.
func (e *EphemeralCache) Name() string {
	return backendName
}

// Close releases the client and codec.
func (e *EphemeralCache) Close() error {
	e.codec.close()
	if err := e.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}

func (e *EphemeralCache) key(k string) string {
	return e.prefix + k
}

// fail logs and counts a Redis failure against the key's namespace.
func (e *EphemeralCache) fail(ctx context.Context, op, key string, err error) {
	ns, _, _ := strings.Cut(key, namespaceDelim)
	e.metrics.RecordError(domain.Namespace(ns))

	observability.FromContext(ctx).Warn("ephemeral tier operation failed, continuing without cache",
		observability.String("op", op),
		observability.String("key", key),
		observability.Error(err))
}

// escapeGlob escapes Redis glob metacharacters.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
