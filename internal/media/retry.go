package media

import (
	"context"
	"errors"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// RetryingRepository wraps a Repository and retries transient failures.
// ErrNotFound and ErrAlreadyExists are final answers and are never retried.
type RetryingRepository struct {
	delegate     Repository
	buildBackoff func() backoff.BackOff
}

// NewRetryingRepository creates a retrying decorator. A nil factory uses a
// short exponential backoff.
func NewRetryingRepository(delegate Repository, factory func() backoff.BackOff) *RetryingRepository {
	if factory == nil {
		factory = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxElapsedTime = 2 * time.Second
			return b
		}
	}
	return &RetryingRepository{delegate: delegate, buildBackoff: factory}
}

// Put retries transient failures. A retry that finds m already stored is a
// success, since the earlier attempt may have committed before it failed.
func (r *RetryingRepository) Put(ctx context.Context, m Media) error {
	attempts := 0
	return r.retry(ctx, func() error {
		attempts++
		err := r.delegate.Put(ctx, m)
		if attempts > 1 && errors.Is(err, ErrAlreadyExists) && r.holds(ctx, m) {
			return nil
		}
		return err
	})
}

// holds reports whether the stored descriptor for m.Key matches m.
func (r *RetryingRepository) holds(ctx context.Context, m Media) bool {
	got, err := r.delegate.Get(ctx, m.Key)
	if err != nil {
		return false
	}
	return got.Size == m.Size && got.Name == m.Name && got.MimeType == m.MimeType
}

func (r *RetryingRepository) Get(ctx context.Context, key string) (*Media, error) {
	var out *Media
	err := r.retry(ctx, func() error {
		m, err := r.delegate.Get(ctx, key)
		if err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

func (r *RetryingRepository) Ping(ctx context.Context) error {
	return r.delegate.Ping(ctx)
}

func (r *RetryingRepository) retry(ctx context.Context, fn func() error) error {
	b := backoff.WithContext(r.buildBackoff(), ctx)
	return backoff.Retry(func() error {
		err := fn()
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

var _ Repository = (*RetryingRepository)(nil)
