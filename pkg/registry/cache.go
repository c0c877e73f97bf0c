package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/basinforge/skillforge/pkg/ferr"
)

// CachedStore wraps a Store with an optional Redis read-through cache
// for Get lookups, grounded on kernel.RedisLimiterStore's client
// construction. Trust is still re-verified against the live source file
// on every load (pkg/registry.Loader never trusts a cached hash); this
// cache only saves the YAML-parse-and-scan cost of Get itself.
type CachedStore struct {
	*Store
	client *redis.Client
	ttl    time.Duration
}

// NewCachedStore wraps store with a Redis cache reached at addr/db.
func NewCachedStore(store *Store, addr, password string, db int, ttl time.Duration) *CachedStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &CachedStore{Store: store, client: client, ttl: ttl}
}

func cacheKey(name string) string {
	return "skillforge:registry:" + foldName(name)
}

// Get returns the cached entry if present and unexpired, else falls
// through to the underlying Store and repopulates the cache.
func (c *CachedStore) Get(ctx context.Context, name string) (Entry, error) {
	key := cacheKey(name)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var entry Entry
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil {
			return entry, nil
		}
	}

	entry, err := c.Store.Get(ctx, name)
	if err != nil {
		return Entry{}, err
	}

	if raw, marshalErr := json.Marshal(entry); marshalErr == nil {
		_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	}
	return entry, nil
}

// Put writes through to the underlying store and invalidates the cache
// entry, so a promote can never be served stale by a prior negative or
// now-superseded cache hit.
func (c *CachedStore) Put(ctx context.Context, entry Entry) error {
	if err := c.Store.Put(ctx, entry); err != nil {
		return err
	}
	if err := c.client.Del(ctx, cacheKey(entry.Name)).Err(); err != nil {
		return &ferr.StoreError{Op: "invalidate registry cache", Cause: err}
	}
	return nil
}

// Remove writes through and invalidates the cache entry.
func (c *CachedStore) Remove(ctx context.Context, name string) error {
	if err := c.Store.Remove(ctx, name); err != nil {
		return err
	}
	if err := c.client.Del(ctx, cacheKey(name)).Err(); err != nil {
		return &ferr.StoreError{Op: "invalidate registry cache", Cause: err}
	}
	return nil
}

// Close releases the Redis client connection.
func (c *CachedStore) Close() error {
	return c.client.Close()
}
