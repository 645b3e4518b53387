// Package storage selects the durable tier at startup.
package storage

import (
	"context"
	"fmt"

	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/observability"
	"github.com/davidbz/kiln/internal/storage/filesystem"
	"github.com/davidbz/kiln/internal/storage/gcs"
)

// Supported durable backends.
const (
	BackendFilesystem = "filesystem"
	BackendGCS        = "gcs"
)

// DefaultFilesystemBaseURL matches the artifact route served by the HTTP server.
const DefaultFilesystemBaseURL = "http://localhost:8080/artifacts"

// NewDurableStore creates the durable tier named by cfg.Backend.
func NewDurableStore(ctx context.Context, cfg *Config) (domain.DurableStore, error) {
	logger := observability.FromContext(ctx)

	switch cfg.Backend {
	case BackendFilesystem, "":
		base := cfg.PublicBaseURL
		if base == "" {
			base = DefaultFilesystemBaseURL
		}
		store, err := filesystem.New(cfg.Root, base)
		if err != nil {
			return nil, err
		}
		logger.Info("filesystem durable tier ready", observability.String("root", store.Root()))
		return store, nil

	case BackendGCS:
		store, err := gcs.New(ctx, cfg.Bucket, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("gcs durable tier ready", observability.String("bucket", cfg.Bucket))
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
