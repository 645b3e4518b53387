// Package filesystem implements the durable store on a local directory.
// Objects become visible only through an atomic hard link of a fully written
// temp file, so readers never observe a truncated object.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/observability"
)

const (
	dirPerm    = 0o755
	tempPrefix = ".tmp-"
)

// Store implements domain.DurableStore on the local filesystem.
type Store struct {
	root          string
	publicBaseURL string
}

// New creates a filesystem store rooted at root.
func New(root, publicBaseURL string) (*Store, error) {
	if root == "" {
		return nil, errors.New("storage root cannot be empty")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}

	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	return &Store{
		root:          abs,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Root returns the absolute storage directory.
func (s *Store) Root() string {
	return s.root
}

// Exists reports whether an object is stored at path.
func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	full, err := s.fullPath(path)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// Read returns the object at path or domain.ErrNotFound.
func (s *Store) Read(_ context.Context, path string) ([]byte, error) {
	full, err := s.fullPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// WriteOnce stores data at path unless an object already exists there.
// The content type is implied by the namespace and not stored.
func (s *Store) WriteOnce(ctx context.Context, path string, data []byte, _ string) (string, error) {
	full, err := s.fullPath(path)
	if err != nil {
		return "", err
	}

	if _, statErr := os.Stat(full); statErr == nil {
		return s.Location(path), nil
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp object: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write temp object: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to sync temp object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp object: %w", err)
	}

	// Link fails if the target exists, which makes the publish write-once.
	if err := os.Link(tmpName, full); err != nil && !errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("failed to publish object: %w", err)
	}

	observability.FromContext(ctx).Debug("object written",
		observability.String("path", path),
		observability.Int("size", len(data)))
	return s.Location(path), nil
}

// Location returns the public URL of path.
func (s *Store) Location(path string) string {
	return s.publicBaseURL + "/" + path
}

// DeletePrefix removes every object whose path starts with prefix.
func (s *Store) DeletePrefix(_ context.Context, prefix string) (int, error) {
	removed := 0
	err := filepath.WalkDir(s.root, func(full string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(s.root, full)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(filepath.ToSlash(rel), prefix) {
			return nil
		}

		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if !strings.HasPrefix(d.Name(), tempPrefix) {
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to delete objects under %s: %w", prefix, err)
	}

	if strings.HasSuffix(prefix, "/") {
		if full, pathErr := s.fullPath(strings.TrimSuffix(prefix, "/")); pathErr == nil {
			_ = os.RemoveAll(full)
		}
	}

	return removed, nil
}

// fullPath maps a slash-separated object path to a file inside root.
func (s *Store) fullPath(path string) (string, error) {
	local := filepath.FromSlash(path)
	if path == "" || !filepath.IsLocal(local) {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return filepath.Join(s.root, local), nil
}
