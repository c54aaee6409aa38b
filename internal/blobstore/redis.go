package blobstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps blobs as Redis strings under their key path.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to redisURL and verifies the connection. A zero
// ttl stores blobs without expiry.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Get(ctx context.Context, k Key) ([]byte, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	b, err := s.client.Get(ctx, k.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", k, err)
	}
	return b, nil
}

func (s *RedisStore) Put(ctx context.Context, k Key, data []byte) error {
	if err := k.Validate(); err != nil {
		return err
	}
	if err := s.client.Set(ctx, k.String(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put %s: %w", k, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, user, task, dir string) ([]string, error) {
	prefix := Key{User: user, Task: task}.String()
	pattern := prefix + strings.TrimSuffix(dir, "/") + "/*"
	var out []string
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		path := strings.TrimPrefix(iter.Val(), prefix)
		if childOf(path, dir) {
			out = append(out, path)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", pattern, err)
	}
	slices.Sort(out)
	return out, nil
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
