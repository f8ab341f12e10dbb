package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DiskStorage writes objects to a directory on the local filesystem. It has
// no real signing; SignedURL returns a file:// URL, or a URL under publicBase
// when one is configured, with an informational expires parameter.
type DiskStorage struct {
	baseDir    string
	publicBase string
	ttl        time.Duration
	now        func() time.Time
}

// NewDiskStorage creates a DiskStorage that writes objects under baseDir.
// The directory is created if it does not already exist.
func NewDiskStorage(baseDir, publicBase string, ttl time.Duration) (*DiskStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create local base directory %q: %w", baseDir, err)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to resolve absolute path for %q: %w", baseDir, err)
	}
	return &DiskStorage{
		baseDir:    abs,
		publicBase: strings.TrimRight(publicBase, "/"),
		ttl:        ttlOrDefault(ttl),
		now:        time.Now,
	}, nil
}

// Put writes r to a temporary file and renames it into place once r is
// exhausted, so a failed upload never leaves a readable object.
func (d *DiskStorage) Put(_ context.Context, key string, r io.Reader, _ string) (int64, error) {
	if !validKey(key) {
		return 0, ErrInvalidKey
	}

	tmp, err := os.CreateTemp(d.baseDir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("storage: failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("storage: failed to write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("storage: failed to close %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), d.path(key)); err != nil {
		return 0, fmt.Errorf("storage: failed to move %q into place: %w", key, err)
	}
	return n, nil
}

func (d *DiskStorage) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	if err := os.Remove(d.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: failed to delete %q: %w", key, err)
	}
	return nil
}

func (d *DiskStorage) SignedURL(_ context.Context, key string) (string, error) {
	if !validKey(key) {
		return "", ErrInvalidKey
	}
	q := url.Values{"expires": {strconv.FormatInt(d.now().Add(d.ttl).Unix(), 10)}}

	if d.publicBase != "" {
		return d.publicBase + "/" + url.PathEscape(key) + "?" + q.Encode(), nil
	}
	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(d.path(key)), RawQuery: q.Encode()}
	return u.String(), nil
}

func (d *DiskStorage) Ping(_ context.Context) error {
	info, err := os.Stat(d.baseDir)
	if err != nil {
		return fmt.Errorf("storage: stat %q: %w", d.baseDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: %q is not a directory", d.baseDir)
	}
	return nil
}

func (d *DiskStorage) path(key string) string {
	return filepath.Join(d.baseDir, key)
}
