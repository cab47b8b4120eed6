package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// TTLs per data domain. Catalog rows change rarely outside imports, so they
// get the longest window; dashboard aggregates are the most expensive to
// recompute but also the most tolerant of staleness.
const (
	CatalogTTL  = 10 * time.Minute
	QuestionTTL = 10 * time.Minute
	UserTTL     = 5 * time.Minute
	StatsTTL    = 5 * time.Minute
)

// CacheHelper namespaces all keys under a prefix. A nil client degrades to
// a no-op for writes and a typed miss for reads, so callers never have to
// branch on whether Redis is configured.
type CacheHelper struct {
	client *redis.Client
	prefix string
}

func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{client: client, prefix: prefix}
}

func (c *CacheHelper) key(k string) string {
	return c.prefix + k
}

// Get reads and unmarshals a cached value into dest.
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal: %w", err)
	}
	return nil
}

// Set marshals and stores a value. A nil client is a silent no-op.
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

// GetString reads a raw string value.
func (c *CacheHelper) GetString(ctx context.Context, key string) (string, error) {
	if c.client == nil {
		return "", ErrCacheNotAvailable
	}

	result, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheNotFound
		}
		return "", fmt.Errorf("cache get string: %w", err)
	}
	return result, nil
}

// SetString stores a raw string value.
func (c *CacheHelper) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

// Delete removes one or more keys.
func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// Exists reports whether a key is present.
func (c *CacheHelper) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, ErrCacheNotAvailable
	}

	count, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists: %w", err)
	}
	return count > 0, nil
}

// InvalidatePattern deletes every key matching the pattern. It walks the
// keyspace with SCAN and deletes each page as it goes, so a large match set
// never has to be held in memory.
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	fullPattern := c.key(pattern)
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, fullPattern, 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan %q: %w", fullPattern, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache delete page: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// CacheOrExecute is the cache-aside read path: return the cached value when
// present, otherwise call fetch, store the result, and return it. Cache
// failures fall through to fetch; fetch errors are returned unwrapped so
// callers can match sentinels.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetch func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
		slog.WarnContext(ctx, "cache read failed, falling back to source", "key", key, "error", err)
	}

	value, err := fetch()
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal fetched value: %w", err)
	}
	if c.client != nil {
		if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
			slog.WarnContext(ctx, "cache write failed", "key", key, "error", err)
		}
	}
	return json.Unmarshal(data, dest)
}

// CacheManager hands out one prefixed helper per data domain so that an
// invalidation sweep in one domain can never touch another's keys.
type CacheManager struct {
	client *redis.Client

	Catalog  *CacheHelper
	Question *CacheHelper
	User     *CacheHelper
	Stats    *CacheHelper
}

// NewCacheManager builds the per-domain helpers. A nil client produces
// no-op helpers; the service runs fine without Redis.
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		client:   client,
		Catalog:  NewCacheHelper(client, "catalog:"),
		Question: NewCacheHelper(client, "question:"),
		User:     NewCacheHelper(client, "user:"),
		Stats:    NewCacheHelper(client, "stats:"),
	}
}

// HealthCheck verifies cache connectivity.
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return ErrCacheNotAvailable
	}
	if _, err := cm.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}
