package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "media:"

// RedisRepository keeps descriptors as JSON values under "media:<key>".
type RedisRepository struct {
	rdb *redis.Client
}

// RedisConfig holds the connection settings for RedisRepository.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisRepository creates a client for cfg. The connection is lazy; call
// Ping to verify it.
func NewRedisRepository(cfg RedisConfig) *RedisRepository {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisRepository{rdb: rdb}
}

func redisKey(key string) string { return redisKeyPrefix + key }

// Put stores m unless the key is already taken.
func (r *RedisRepository) Put(ctx context.Context, m Media) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal media %q: %w", m.Key, err)
	}
	ok, err := r.rdb.SetNX(ctx, redisKey(m.Key), b, 0).Result()
	if err != nil {
		return fmt.Errorf("setnx media %q: %w", m.Key, err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

// Get loads the descriptor for key.
func (r *RedisRepository) Get(ctx context.Context, key string) (*Media, error) {
	b, err := r.rdb.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get media %q: %w", key, err)
	}
	m := &Media{}
	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("decode media %q: %w", key, err)
	}
	return m, nil
}

// Ping checks the Redis connection.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *RedisRepository) Close() error {
	return r.rdb.Close()
}
