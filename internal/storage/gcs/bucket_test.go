package gcs_test

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/storage/gcs"
)

const (
	testBucket  = "kiln-artifacts"
	testBaseURL = "https://cdn.kiln.test"
)

type fakeObject struct {
	data        []byte
	contentType string
}

// fakeBucket serves the subset of the JSON API the store uses.
type fakeBucket struct {
	mu         sync.Mutex
	objects    map[string]fakeObject
	denyWrites atomic.Bool
	inserts    atomic.Int32
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string]fakeObject{}}
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	uploadPath := "/upload/storage/v1/b/" + testBucket + "/o"
	listPath := "/storage/v1/b/" + testBucket + "/o"

	switch {
	case r.Method == http.MethodPost && r.URL.Path == uploadPath:
		b.insert(w, r)
	case r.Method == http.MethodGet && r.URL.Path == listPath:
		b.list(w, r)
	case strings.HasPrefix(r.URL.Path, listPath+"/"):
		name := strings.TrimPrefix(r.URL.Path, listPath+"/")
		switch r.Method {
		case http.MethodGet:
			b.get(w, r, name)
		case http.MethodDelete:
			b.remove(w, name)
		default:
			writeAPIError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	default:
		writeAPIError(w, http.StatusNotFound, "unknown route "+r.URL.Path)
	}
}

func (b *fakeBucket) insert(w http.ResponseWriter, r *http.Request) {
	b.inserts.Add(1)
	if b.denyWrites.Load() {
		writeAPIError(w, http.StatusForbidden, "forbidden")
		return
	}

	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	parts := multipart.NewReader(r.Body, params["boundary"])

	metaPart, err := parts.NextPart()
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	var meta struct {
		Name        string `json:"name"`
		ContentType string `json:"contentType"`
	}
	if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	mediaPart, err := parts.NextPart()
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := io.ReadAll(mediaPart)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	_, exists := b.objects[meta.Name]
	if exists && r.URL.Query().Get("ifGenerationMatch") == "0" {
		b.mu.Unlock()
		writeAPIError(w, http.StatusPreconditionFailed, "conditionNotMet")
		return
	}
	b.objects[meta.Name] = fakeObject{data: data, contentType: meta.ContentType}
	b.mu.Unlock()

	writeJSON(w, objectResource(meta.Name, fakeObject{data: data, contentType: meta.ContentType}))
}

func (b *fakeBucket) get(w http.ResponseWriter, r *http.Request, name string) {
	b.mu.Lock()
	obj, ok := b.objects[name]
	b.mu.Unlock()
	if !ok {
		writeAPIError(w, http.StatusNotFound, "No such object: "+testBucket+"/"+name)
		return
	}

	if r.URL.Query().Get("alt") != "media" {
		writeJSON(w, objectResource(name, obj))
		return
	}

	w.Header().Set("Content-Type", obj.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.Header().Set("X-Goog-Generation", "1")
	w.Header().Set("X-Goog-Metageneration", "1")
	_, _ = w.Write(obj.data)
}

func (b *fakeBucket) remove(w http.ResponseWriter, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[name]; !ok {
		writeAPIError(w, http.StatusNotFound, "No such object: "+testBucket+"/"+name)
		return
	}
	delete(b.objects, name)
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBucket) list(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")

	b.mu.Lock()
	names := make([]string, 0, len(b.objects))
	for name := range b.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	items := make([]map[string]any, 0, len(names))
	sort.Strings(names)
	for _, name := range names {
		items = append(items, objectResource(name, b.objects[name]))
	}
	b.mu.Unlock()

	writeJSON(w, map[string]any{"kind": "storage#objects", "items": items})
}

func (b *fakeBucket) has(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[name]
	return ok
}

func objectResource(name string, obj fakeObject) map[string]any {
	return map[string]any{
		"kind":           "storage#object",
		"bucket":         testBucket,
		"name":           name,
		"generation":     "1",
		"metageneration": "1",
		"contentType":    obj.contentType,
		"size":           strconv.Itoa(len(obj.data)),
	}
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeAPIError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}

func newTestStore(t *testing.T) (*gcs.Store, *fakeBucket) {
	t.Helper()

	bucket := newFakeBucket()
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		storage.WithJSONReads(),
	)
	require.NoError(t, err)

	store := gcs.NewWithClient(client, testBucket, testBaseURL)
	t.Cleanup(func() { _ = store.Close() })
	return store, bucket
}

func TestStore_Exists(t *testing.T) {
	ctx := context.Background()

	t.Run("should report missing objects without an error", func(t *testing.T) {
		store, _ := newTestStore(t)

		exists, err := store.Exists(ctx, "speech/v1/abc")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("should report written objects", func(t *testing.T) {
		store, _ := newTestStore(t)
		_, err := store.WriteOnce(ctx, "speech/v1/abc", []byte("mp3"), domain.ContentTypeAudio)
		require.NoError(t, err)

		exists, err := store.Exists(ctx, "speech/v1/abc")
		require.NoError(t, err)
		require.True(t, exists)
	})
}

func TestStore_Read(t *testing.T) {
	ctx := context.Background()

	t.Run("should map missing objects to ErrNotFound", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, err := store.Read(ctx, "speech/v1/missing")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("should return the stored bytes", func(t *testing.T) {
		store, _ := newTestStore(t)
		_, err := store.WriteOnce(ctx, "dialogue/v1/abc", []byte(`{"turns":[]}`), domain.ContentTypeDialogue)
		require.NoError(t, err)

		data, err := store.Read(ctx, "dialogue/v1/abc")
		require.NoError(t, err)
		require.Equal(t, []byte(`{"turns":[]}`), data)
	})
}

func TestStore_WriteOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("should return the public location of the object", func(t *testing.T) {
		store, bucket := newTestStore(t)

		location, err := store.WriteOnce(ctx, "speech/v1/abc", []byte("mp3"), domain.ContentTypeAudio)
		require.NoError(t, err)
		require.Equal(t, testBaseURL+"/speech/v1/abc", location)
		require.True(t, bucket.has("speech/v1/abc"))
	})

	t.Run("should keep the first write when the object already exists", func(t *testing.T) {
		store, bucket := newTestStore(t)

		first, err := store.WriteOnce(ctx, "speech/v1/abc", []byte("first"), domain.ContentTypeAudio)
		require.NoError(t, err)
		second, err := store.WriteOnce(ctx, "speech/v1/abc", []byte("second"), domain.ContentTypeAudio)
		require.NoError(t, err)
		require.Equal(t, first, second)
		require.Equal(t, int32(2), bucket.inserts.Load())

		data, err := store.Read(ctx, "speech/v1/abc")
		require.NoError(t, err)
		require.Equal(t, []byte("first"), data)
	})

	t.Run("should report rejected uploads and store nothing", func(t *testing.T) {
		store, bucket := newTestStore(t)
		bucket.denyWrites.Store(true)

		location, err := store.WriteOnce(ctx, "speech/v1/abc", []byte("mp3"), domain.ContentTypeAudio)
		require.Error(t, err)
		require.Empty(t, location)
		require.False(t, bucket.has("speech/v1/abc"))
	})
}

func TestStore_DeletePrefix(t *testing.T) {
	ctx := context.Background()

	t.Run("should delete only objects under the prefix", func(t *testing.T) {
		store, bucket := newTestStore(t)
		for _, path := range []string{"speech/v1/a", "speech/v1/b", "speech/v2/c", "dialogue/v1/d"} {
			_, err := store.WriteOnce(ctx, path, []byte("x"), domain.ContentTypeAudio)
			require.NoError(t, err)
		}

		removed, err := store.DeletePrefix(ctx, "speech/v1/")
		require.NoError(t, err)
		require.Equal(t, 2, removed)
		require.False(t, bucket.has("speech/v1/a"))
		require.False(t, bucket.has("speech/v1/b"))
		require.True(t, bucket.has("speech/v2/c"))
		require.True(t, bucket.has("dialogue/v1/d"))
	})

	t.Run("should report zero for an empty prefix match", func(t *testing.T) {
		store, _ := newTestStore(t)

		removed, err := store.DeletePrefix(ctx, "turnaudio/v1/")
		require.NoError(t, err)
		require.Zero(t, removed)
	})
}
