package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "catalog:version"

// Cache wraps Redis-based caching with a global version counter. Every
// mutation bumps the version, which shifts every key and so invalidates the
// whole read cache at once.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	if c == nil || c.client == nil {
		return strings.Join(parts, ":"), nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", strings.Join(parts, ":"), ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates the cache by incrementing the global version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

// CachedStore decorates a Store with read-through caching of single-row
// lookups. Mutations pass through and bump the cache version afterwards, so
// readers never observe a stale row past the mutation's completion. Cache
// failures fall back to the underlying store.
type CachedStore struct {
	Store
	cache *Cache
}

// NewCachedStore wraps the store. A nil cache turns the decorator into a
// pass-through.
func NewCachedStore(store Store, cache *Cache) *CachedStore {
	return &CachedStore{Store: store, cache: cache}
}

func (s *CachedStore) Get(ctx context.Context, id string) (Product, error) {
	return s.cached(ctx, []string{"catalog", "product", "id", id}, func(ctx context.Context) (Product, error) {
		return s.Store.Get(ctx, id)
	})
}

func (s *CachedStore) GetBySKU(ctx context.Context, sku string) (Product, error) {
	return s.cached(ctx, []string{"catalog", "product", "sku", sku}, func(ctx context.Context) (Product, error) {
		return s.Store.GetBySKU(ctx, sku)
	})
}

func (s *CachedStore) Insert(ctx context.Context, product Product) (Product, error) {
	created, err := s.Store.Insert(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.bump(ctx)
	return created, nil
}

func (s *CachedStore) InsertBatch(ctx context.Context, products []Product) ([]Product, error) {
	created, err := s.Store.InsertBatch(ctx, products)
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return created, nil
}

func (s *CachedStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, mutate func(*Product) error) (Product, error) {
	updated, err := s.Store.CompareAndSwap(ctx, id, expectedVersion, mutate)
	if err != nil {
		return Product{}, err
	}
	s.bump(ctx)
	return updated, nil
}

func (s *CachedStore) SoftDelete(ctx context.Context, id string, expectedVersion int64) (Product, error) {
	deleted, err := s.Store.SoftDelete(ctx, id, expectedVersion)
	if err != nil {
		return Product{}, err
	}
	s.bump(ctx)
	return deleted, nil
}

// cached resolves one product through the cache. NotFound results are not
// cached: a tombstoned SKU must become visible for reuse immediately.
func (s *CachedStore) cached(ctx context.Context, keyParts []string, load func(context.Context) (Product, error)) (Product, error) {
	key, err := s.cache.BuildKey(ctx, keyParts...)
	if err != nil {
		return load(ctx)
	}
	var product Product
	var loadErr error
	err = s.cache.FetchJSON(ctx, key, &product, func(ctx context.Context) (any, error) {
		p, err := load(ctx)
		if err != nil {
			loadErr = err
		}
		return p, err
	})
	if loadErr != nil {
		return Product{}, loadErr
	}
	if err != nil {
		// Redis trouble must not break reads.
		return load(ctx)
	}
	return product, nil
}

func (s *CachedStore) bump(ctx context.Context) {
	_ = s.cache.Bump(context.WithoutCancel(ctx))
}
