package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/moznion/go-optional"
	"github.com/redis/go-redis/v9"

	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

const (
	defaultTTL       = 24 * time.Hour
	defaultNamespace = "validation"
)

// Redis is a Cache backed by a Redis instance, letting repeated runs
// over the same history share validation work across processes.
type Redis struct {
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewRedis creates a Redis-backed cache. A ttl of 0 defaults to 24
// hours and an empty namespace defaults to "validation".
func NewRedis(rdb *redis.Client, ttl time.Duration, namespace string) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	if namespace == "" {
		namespace = defaultNamespace
	}

	return &Redis{
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Get returns the cached result for key, or None on a miss.
func (c *Redis) Get(ctx context.Context, key string) (optional.Option[types.ValidationResult], error) {
	raw, err := c.rdb.Get(ctx, c.namespaced(key)).Bytes()
	if err == redis.Nil {
		return optional.None[types.ValidationResult](), nil
	}

	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeCacheFailed, err, "failed to read cache key %s", key)
	}

	var result types.ValidationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// Drop the corrupted entry and report a miss.
		_ = c.rdb.Del(ctx, c.namespaced(key)).Err()

		return optional.None[types.ValidationResult](), nil
	}

	return optional.Some(result), nil
}

// Set stores the result under key.
func (c *Redis) Set(ctx context.Context, key string, result types.ValidationResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeCacheFailed, err, "failed to encode result for key %s", key)
	}

	if err := c.rdb.Set(ctx, c.namespaced(key), raw, c.ttl).Err(); err != nil {
		return errors.Wrapf(errors.ErrCodeCacheFailed, err, "failed to write cache key %s", key)
	}

	return nil
}

// Reset drops all entries in the cache's namespace.
func (c *Redis) Reset(ctx context.Context) error {
	var cursor uint64

	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.namespace+":*", 200).Result()
		if err != nil {
			return errors.Wrap(errors.ErrCodeCacheFailed, "failed to scan cache keys", err)
		}

		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrap(errors.ErrCodeCacheFailed, "failed to delete cache keys", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (c *Redis) namespaced(key string) string {
	return c.namespace + ":" + key
}
