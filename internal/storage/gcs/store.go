// Package gcs implements the durable store on a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/observability"
)

const (
	defaultPublicHost = "https://storage.googleapis.com"
	immutableCaching  = "public, max-age=31536000, immutable"
)

// Store implements domain.DurableStore on a GCS bucket.
type Store struct {
	client        *storage.Client
	bucket        *storage.BucketHandle
	publicBaseURL string
}

// New creates a GCS store using application default credentials.
func New(ctx context.Context, bucket, publicBaseURL string) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("storage bucket cannot be empty")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return NewWithClient(client, bucket, publicBaseURL), nil
}

// NewWithClient creates a GCS store around an existing client.
func NewWithClient(client *storage.Client, bucket, publicBaseURL string) *Store {
	return &Store{
		client:        client,
		bucket:        client.Bucket(bucket),
		publicBaseURL: publicURL(bucket, publicBaseURL),
	}
}

// Exists reports whether an object is stored at path.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.bucket.Object(path).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}

// Read returns the object at path or domain.ErrNotFound.
func (s *Store) Read(ctx context.Context, path string) ([]byte, error) {
	r, err := s.bucket.Object(path).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// WriteOnce uploads data under a does-not-exist precondition. Losing the race
// to another writer counts as success since keys address identical content.
func (s *Store) WriteOnce(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.bucket.Object(path).If(storage.Conditions{DoesNotExist: true}).NewWriter(writeCtx)
	w.ContentType = contentType
	w.CacheControl = immutableCaching

	if _, err := w.Write(data); err != nil {
		// Cancelling before Close aborts the upload.
		cancel()
		_ = w.Close()
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			observability.FromContext(ctx).Debug("object already exists",
				observability.String("path", path))
			return s.Location(path), nil
		}
		return "", fmt.Errorf("failed to finalize object: %w", err)
	}

	return s.Location(path), nil
}

// Location returns the public URL of path.
func (s *Store) Location(path string) string {
	return s.publicBaseURL + "/" + path
}

// DeletePrefix removes every object whose name starts with prefix.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	//nolint:exhaustruct // only the prefix filter is needed
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	removed := 0
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return removed, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}

		err = s.bucket.Object(attrs.Name).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return removed, fmt.Errorf("failed to delete object %s: %w", attrs.Name, err)
		}
		removed++
	}
	return removed, nil
}

// Close releases the storage client.
func (s *Store) Close() error {
	return s.client.Close()
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}

func publicURL(bucket, base string) string {
	if base != "" {
		return strings.TrimRight(base, "/")
	}
	return defaultPublicHost + "/" + bucket
}
