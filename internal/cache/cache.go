// Package cache selects the ephemeral tier at startup.
package cache

import (
	"context"
	"time"

	"github.com/davidbz/kiln/internal/cache/noop"
	rediscache "github.com/davidbz/kiln/internal/cache/redis"
	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/observability"
)

const defaultProbeTimeout = 500 * time.Millisecond

// NewEphemeralCache returns the Redis tier when it is enabled and answers a
// bounded-timeout ping, and the no-op tier otherwise.
func NewEphemeralCache(ctx context.Context, cfg *rediscache.Config) domain.EphemeralCache {
	logger := observability.FromContext(ctx)

	if cfg == nil || !cfg.Enabled {
		logger.Info("ephemeral tier disabled, using no-op cache")
		return noop.New()
	}

	client := rediscache.NewClient(cfg)
	tier, err := rediscache.NewEphemeralCache(client, cfg.KeyPrefix, cfg.CompressionLevel)
	if err != nil {
		_ = client.Close()
		logger.Warn("failed to create redis tier, using no-op cache", observability.Error(err))
		return noop.New()
	}

	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if pingErr := tier.Ping(probeCtx); pingErr != nil {
		_ = tier.Close()
		logger.Warn("redis unreachable, using no-op cache",
			observability.String("addr", cfg.Addr),
			observability.Duration("probe_timeout", probeTimeout),
			observability.Error(pingErr))
		return noop.New()
	}

	logger.Info("redis ephemeral tier connected",
		observability.String("addr", cfg.Addr),
		observability.String("key_prefix", cfg.KeyPrefix))
	return tier
}
