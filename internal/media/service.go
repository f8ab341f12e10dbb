package media

import (
	"context"
	"errors"
	"fmt"
)

// URLSigner issues time-limited retrieval URLs for stored objects.
type URLSigner interface {
	SignedURL(ctx context.Context, key string) (string, error)
}

// Service contains the retrieval logic for stored media.
type Service struct {
	repo   Repository
	signer URLSigner
}

// NewService creates a new media Service.
func NewService(repo Repository, signer URLSigner) *Service {
	return &Service{repo: repo, signer: signer}
}

// Get returns the descriptor for key, or ErrNotFound.
func (s *Service) Get(ctx context.Context, key string) (*Media, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	return s.repo.Get(ctx, key)
}

// DownloadURL checks that key is recorded and only then asks storage for a
// signed URL. Objects without a descriptor (orphans) are never exposed.
func (s *Service) DownloadURL(ctx context.Context, key string) (string, error) {
	if _, err := s.Get(ctx, key); err != nil {
		return "", err
	}
	u, err := s.signer.SignedURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("sign url for %q: %w", key, err)
	}
	return u, nil
}

// IsNotFound returns true when the error indicates the media does not exist.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
