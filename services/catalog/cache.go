package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"govbook/models"
	"govbook/utils"
)

// ErrCacheMiss is returned by a CacheStore when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// CacheStore is the byte-level cache CachedCatalog writes through.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCacheStore adapts a go-redis client to CacheStore.
type RedisCacheStore struct {
	client *redis.Client
}

func NewRedisCacheStore(client *redis.Client) *RedisCacheStore {
	return &RedisCacheStore{client: client}
}

func (s *RedisCacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return val, err
}

func (s *RedisCacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// CachedCatalog puts a read-through cache in front of another Catalog.
// Cache failures are logged and fall back to the source; they never fail a lookup.
type CachedCatalog struct {
	source Catalog
	cache  CacheStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedCatalog wraps source. A non-positive ttl uses utils.DefaultCatalogCacheTTL.
func NewCachedCatalog(source Catalog, cache CacheStore, ttl time.Duration, logger *zap.Logger) *CachedCatalog {
	if ttl <= 0 {
		ttl = utils.DefaultCatalogCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCatalog{source: source, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedCatalog) Lookup(ctx context.Context, department, service string) (models.ServiceInfo, error) {
	cacheKey := utils.CatalogCachePrefix + key(department, service)

	raw, err := c.cache.Get(ctx, cacheKey)
	switch {
	case err == nil:
		var info models.ServiceInfo
		if jsonErr := json.Unmarshal(raw, &info); jsonErr == nil {
			return info, nil
		}
		c.logger.Warn("Discarding corrupt catalog cache entry", zap.String("key", cacheKey))
	case !errors.Is(err, ErrCacheMiss):
		c.logger.Warn("Catalog cache read failed", zap.String("key", cacheKey), zap.Error(err))
	}

	info, err := c.source.Lookup(ctx, department, service)
	if err != nil {
		return models.ServiceInfo{}, err
	}

	if data, err := json.Marshal(info); err == nil {
		if err := c.cache.Set(ctx, cacheKey, data, c.ttl); err != nil {
			c.logger.Warn("Catalog cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return info, nil
}
