// Package storage defines the object store used for uploaded media.
// Swap implementations by changing the concrete type injected at startup:
// MinIO works with any S3-compatible provider, GCS with Google Cloud Storage,
// and Disk with a local directory for development.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// DefaultSignedURLTTL is used when a backend is configured without a TTL.
const DefaultSignedURLTTL = 15 * time.Minute

// ErrInvalidKey is returned for keys that cannot name an object.
var ErrInvalidKey = errors.New("storage: invalid object key")

// Storage is the interface for storing and retrieving objects.
type Storage interface {
	// Put streams r to the store under key until EOF and reports the number
	// of bytes persisted. A read error from r aborts the write.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	// Delete removes the object at key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
	// SignedURL returns a time-limited URL for reading the object at key.
	SignedURL(ctx context.Context, key string) (string, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

func validKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	for _, c := range key {
		if c == '/' || c == '\\' || c == 0 {
			return false
		}
	}
	return true
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultSignedURLTTL
	}
	return ttl
}
