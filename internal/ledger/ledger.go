// Package ledger selects the entry ledger at startup.
package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/ledger/sqlite"
	"github.com/davidbz/kiln/internal/observability"
)

// New returns the SQLite ledger when enabled and a no-op ledger otherwise.
// The returned close function is always safe to call.
func New(ctx context.Context, cfg *Config) (domain.EntryLedger, func() error, error) {
	logger := observability.FromContext(ctx)

	if cfg == nil || !cfg.Enabled {
		logger.Info("entry ledger disabled")
		return domain.NopLedger{}, func() error { return nil }, nil
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	l, err := sqlite.New(cfg.Path)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("entry ledger ready", observability.String("path", cfg.Path))
	return l, l.Close, nil
}
