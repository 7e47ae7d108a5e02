// Package redisstore wraps the redis client used as the gateway's shared cache:
// resolved users, system configuration, and usage counters all live here.
package redisstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
}

type Options struct {
	Addr     string
	Password string
	DB       int
}

func New(opts Options) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
	}
}

var (
	sharedOnce sync.Once
	shared     *Store
)

// Shared returns the process-scoped store, constructed lazily on first use.
// The client is safe to reuse across requests; everything else is per-request.
func Shared(opts Options) *Store {
	sharedOnce.Do(func() {
		shared = New(opts)
	})
	return shared
}

// Get returns the string value for key. The second return is false when the
// key does not exist.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores a string value. A zero ttl means no expiry.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Incr atomically increments the counter at key, initializing an absent key
// to 1. Counter updates must go through here; read-modify-write on counters
// loses updates under concurrent requests.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *Store) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// GetJSON unmarshals the value at key into dest. The first return is false
// when the key does not exist.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	val, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(b), ttl)
}

func (s *Store) Close() error {
	return s.client.Close()
}
