// Package kvstore provides the device-local key-value storage layer backed
// by Redis. The rest of the application treats it as a durable string-keyed,
// string-valued map.
package kvstore

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"conecta/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Store is the durable map the persistence layer is built on.
type Store interface {
	// Get returns the raw value for key. The second return is false when the
	// key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key, creating or overwriting it.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// ListKeys returns every key starting with prefix, in no particular order.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.StorageErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.StorageErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Connect opens a Redis-backed Store at the given address. The address may be
// a plain host:port or a redis:// URL. A failed ping returns an error rather
// than a nil store; the agent cannot run without its storage.
func Connect(addr string) (*RedisStore, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	log.Println("Storage connected successfully")

	return &RedisStore{client: client}, nil
}

// NewRedisStore wraps an already-connected client. Used by tests and the
// bootstrap layer.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// RedisStore implements Store over a Redis client. Values are stored without
// TTL; the store is the durable system of record on this device.
type RedisStore struct {
	client *redis.Client
}

// Client exposes the underlying Redis client for middleware that needs raw
// commands (rate limiting).
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping reports storage health for readiness checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
