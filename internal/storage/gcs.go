package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// gcsChunkSize is the resumable upload buffer held per writer.
const gcsChunkSize = 4 << 20

// GCSStorage stores objects in a Google Cloud Storage bucket.
type GCSStorage struct {
	client *storage.Client
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

// NewGCSStorage creates a GCSStorage for the given bucket. opts are passed
// through to the underlying GCS client, allowing credential injection.
func NewGCSStorage(ctx context.Context, bucket string, ttl time.Duration, opts ...option.ClientOption) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create GCS client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket, ttl: ttlOrDefault(ttl), now: time.Now}, nil
}

// Put streams r into the object at key. On a read error the writer's context
// is cancelled so the partial upload is discarded.
func (g *GCSStorage) Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
	if !validKey(key) {
		return 0, ErrInvalidKey
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(wctx)
	w.ContentType = contentType
	w.ChunkSize = gcsChunkSize

	n, err := io.Copy(w, r)
	if err != nil {
		cancel()
		_ = w.Close()
		return 0, fmt.Errorf("storage: upload write failed for %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("storage: upload close failed for %q: %w", key, err)
	}
	return n, nil
}

func (g *GCSStorage) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("storage: delete failed for %q: %w", key, err)
	}
	return nil
}

// SignedURL returns a V4 signed GET URL valid for the configured TTL.
func (g *GCSStorage) SignedURL(_ context.Context, key string) (string, error) {
	u, err := g.client.Bucket(g.bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: g.now().Add(g.ttl),
	})
	if err != nil {
		return "", fmt.Errorf("storage: failed to sign URL for %q: %w", key, err)
	}
	return u, nil
}

func (g *GCSStorage) Ping(ctx context.Context) error {
	if _, err := g.client.Bucket(g.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("storage: bucket attrs: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (g *GCSStorage) Close() error {
	return g.client.Close()
}
