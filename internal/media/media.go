// Package media holds the stored-media descriptor, its metadata repositories
// and the retrieval endpoints built on top of them.
package media

import (
	"context"
	"errors"
	"time"
)

// Media is the canonical record of one stored file. Key doubles as the object
// key in storage and the primary key in the metadata store.
type Media struct {
	Key       string    `json:"id"`
	Size      int64     `json:"size"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mimetype"`
	CreatedAt time.Time `json:"createdAt"`
}

// ErrNotFound is returned when no descriptor exists for a key.
var ErrNotFound = errors.New("media not found")

// Repository persists media descriptors keyed by Media.Key.
type Repository interface {
	Put(ctx context.Context, m Media) error
	Get(ctx context.Context, key string) (*Media, error)
	Ping(ctx context.Context) error
}
