package media

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is a concurrency-safe in-memory Repository for a single
// instance. Descriptors are lost on restart.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Media
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]Media)}
}

func (r *MemoryRepository) Put(_ context.Context, m Media) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[m.Key]; ok {
		return ErrAlreadyExists
	}
	r.items[m.Key] = m
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, key string) (*Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	// Return a copy to prevent callers from mutating internal state.
	out := m
	return &out, nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }

// Len reports how many descriptors are stored.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
