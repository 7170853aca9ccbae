package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "spotlink:session:"

// RedisBackend implements [Backend] backed by Redis, one key per session value.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend constructs a Redis-backed session backend.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client, prefix: redisKeyPrefix}
}

func (b *RedisBackend) key(sid, key string) string {
	return b.prefix + sid + ":" + key
}

func (b *RedisBackend) Get(ctx context.Context, sid, key string) (string, bool, error) {
	value, err := b.client.Get(ctx, b.key(sid, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load session value: %w", err)
	}
	return value, true, nil
}

// Set stores value; a zero ttl keeps it until deleted.
func (b *RedisBackend) Set(ctx context.Context, sid, key, value string, ttl time.Duration) error {
	if err := b.client.Set(ctx, b.key(sid, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("persist session value: %w", err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, sid, key string) error {
	if err := b.client.Del(ctx, b.key(sid, key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete session value: %w", err)
	}
	return nil
}

// Take uses GETDEL so two concurrent callers can never both observe the value.
func (b *RedisBackend) Take(ctx context.Context, sid, key string) (string, bool, error) {
	value, err := b.client.GetDel(ctx, b.key(sid, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("take session value: %w", err)
	}
	return value, true, nil
}
