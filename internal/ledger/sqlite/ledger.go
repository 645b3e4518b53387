// Package sqlite implements the entry ledger on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/davidbz/kiln/internal/domain"
)

const createEntriesTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	namespace TEXT NOT NULL,
	cache_key TEXT NOT NULL,
	path TEXT NOT NULL,
	content_type TEXT NOT NULL,
	version TEXT NOT NULL,
	size INTEGER NOT NULL,
	durable INTEGER NOT NULL,
	last_error TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (namespace, cache_key)
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_pending ON cache_entries(durable, updated_at);
`

// Ledger is an entry ledger backed by SQLite.
type Ledger struct {
	db *sql.DB
}

// New opens the ledger at dbPath and creates its schema.
func New(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createEntriesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger db: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Record upserts an entry, keeping the original creation time.
func (l *Ledger) Record(ctx context.Context, entry domain.LedgerEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO cache_entries
			(namespace, cache_key, path, content_type, version, size, durable, last_error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(namespace, cache_key) DO UPDATE SET
			path = excluded.path,
			content_type = excluded.content_type,
			version = excluded.version,
			size = excluded.size,
			durable = excluded.durable,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at`,
		string(entry.Namespace), string(entry.Key), entry.Path, entry.ContentType, entry.Version,
		entry.Size, entry.Durable, entry.LastError, createdAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("ledger record: %w", err)
	}
	return nil
}

// Pending returns entries whose durable write has not succeeded, oldest first.
func (l *Ledger) Pending(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT namespace, cache_key, path, content_type, version, size, durable, last_error, created_at
		 FROM cache_entries WHERE durable = 0 ORDER BY updated_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger pending: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var ns, key string
		if err := rows.Scan(&ns, &key, &e.Path, &e.ContentType, &e.Version, &e.Size,
			&e.Durable, &e.LastError, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ledger pending scan: %w", err)
		}
		e.Namespace = domain.Namespace(ns)
		e.Key = domain.CacheKey(key)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger pending rows: %w", err)
	}
	return entries, nil
}

// Stats returns per-namespace totals ordered by namespace.
func (l *Ledger) Stats(ctx context.Context) ([]domain.LedgerStats, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT namespace, COUNT(*), COALESCE(SUM(size), 0), COALESCE(SUM(CASE WHEN durable = 0 THEN 1 ELSE 0 END), 0)
		 FROM cache_entries GROUP BY namespace ORDER BY namespace`)
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.LedgerStats
	for rows.Next() {
		var s domain.LedgerStats
		var ns string
		if err := rows.Scan(&ns, &s.Entries, &s.Bytes, &s.Pending); err != nil {
			return nil, fmt.Errorf("ledger stats scan: %w", err)
		}
		s.Namespace = domain.Namespace(ns)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger stats rows: %w", err)
	}
	return stats, nil
}

// DeleteNamespace removes every entry of ns.
func (l *Ledger) DeleteNamespace(ctx context.Context, ns domain.Namespace) (int, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE namespace = ?`, string(ns))
	if err != nil {
		return 0, fmt.Errorf("ledger delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ledger delete: %w", err)
	}
	return int(n), nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}
