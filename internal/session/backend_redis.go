package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash that holds every session record.
const DefaultRedisKey = "keepwarm:sessions"

var (
	ErrEmptyRedisURL = errors.New("empty redis connection URL")
	ErrRedisNotReady = errors.New("redis did not become ready")
)

// RedisBackend stores records as fields of one hash, keyed by session ID.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend connects to rawURL and pings it with a short exponential
// backoff before returning.
func NewRedisBackend(ctx context.Context, rawURL, key string) (*RedisBackend, error) {
	if rawURL == "" {
		return nil, ErrEmptyRedisURL
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if key == "" {
		key = DefaultRedisKey
	}
	client := redis.NewClient(opts)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	ping := func() error { return client.Ping(ctx).Err() }
	if err := backoff.Retry(ping, backoff.WithContext(b, ctx)); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrRedisNotReady, err)
	}
	return &RedisBackend{client: client, key: key}, nil
}

func (r *RedisBackend) List(ctx context.Context) ([]string, error) {
	ids, err := r.client.HKeys(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *RedisBackend) Read(ctx context.Context, id string) ([]byte, error) {
	data, err := r.client.HGet(ctx, r.key, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	return data, nil
}

func (r *RedisBackend) Write(ctx context.Context, id string, data []byte) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := r.client.HSet(ctx, r.key, id, data).Err(); err != nil {
		return fmt.Errorf("write session %s: %w", id, err)
	}
	return nil
}

func (r *RedisBackend) Remove(ctx context.Context, id string) error {
	if err := r.client.HDel(ctx, r.key, id).Err(); err != nil {
		return fmt.Errorf("remove session %s: %w", id, err)
	}
	return nil
}

func (r *RedisBackend) Purge(ctx context.Context) (int, error) {
	n, err := r.client.HLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return int(n), nil
}

func (r *RedisBackend) Close() error { return r.client.Close() }
