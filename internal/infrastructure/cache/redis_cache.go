package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"fixversity/internal/errs"
	"fixversity/internal/ports"
)

const redisScanCount = 200

// RedisCache stores query results under a namespace so several deployments
// can share one Redis.
type RedisCache struct {
	client    *redis.Client
	namespace string
}

var _ ports.QueryCache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client, namespace string) *RedisCache {
	return &RedisCache{client: client, namespace: namespace}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkContext(ctx); err != nil {
		return nil, false, err
	}
	normalized, err := normalizeKey(key)
	if err != nil {
		return nil, false, err
	}

	value, err := c.client.Get(ctx, c.fullKey(normalized)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap(err, "redis get")
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	normalized, err := normalizeKey(key)
	if err != nil {
		return err
	}

	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.fullKey(normalized), value, ttl).Err(); err != nil {
		return errs.Wrap(err, "redis set")
	}
	return nil
}

func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}
	normalized, err := normalizeKey(prefix)
	if err != nil {
		return 0, err
	}

	keys := []string{c.fullKey(normalized)}
	pattern := escapeGlob(c.fullKey(normalized)) + "/*"
	iter := c.client.Scan(ctx, 0, pattern, redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, errs.Wrap(err, "redis scan")
	}

	removed, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, errs.Wrap(err, "redis del")
	}
	return int(removed), nil
}

func (c *RedisCache) fullKey(key string) string {
	if c.namespace == "" {
		return key
	}
	return c.namespace + ":" + key
}

func escapeGlob(value string) string {
	out := make([]byte, 0, len(value))
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, value[i])
	}
	return string(out)
}
