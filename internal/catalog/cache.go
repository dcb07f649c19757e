package catalog

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/redis"
)

// ErrCacheMiss is returned by a Cache when the key is absent.
var ErrCacheMiss = stderrors.New("catalog cache miss")

// Cache stores raw catalog payloads.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// RedisCache keeps catalog payloads under the sf:catalog namespace.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.client.CatalogKey(key))
	if redis.IsNil(err) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

func (r *RedisCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.client.CatalogKey(key), payload, ttl)
}

// CachedClient serves catalog reads from a Cache and falls back to the
// upstream on misses or cache failures.
type CachedClient struct {
	upstream Catalog
	auth     Authenticator
	cache    Cache
	ttl      time.Duration
	logg     *logger.Logger
}

// NewCachedClient wraps upstream. When upstream also implements
// Authenticator, Login is passed through untouched.
func NewCachedClient(upstream Catalog, cache Cache, ttl time.Duration, logg *logger.Logger) *CachedClient {
	if logg == nil {
		logg = logger.Nop()
	}
	auth, _ := upstream.(Authenticator)
	return &CachedClient{upstream: upstream, auth: auth, cache: cache, ttl: ttl, logg: logg}
}

func (c *CachedClient) FetchProducts(ctx context.Context) ([]Product, error) {
	return cached(ctx, c, "products", c.upstream.FetchProducts)
}

func (c *CachedClient) FetchProduct(ctx context.Context, id int) (Product, error) {
	return cached(ctx, c, "product:"+strconv.Itoa(id), func(ctx context.Context) (Product, error) {
		return c.upstream.FetchProduct(ctx, id)
	})
}

func (c *CachedClient) FetchCategories(ctx context.Context) ([]string, error) {
	return cached(ctx, c, "categories", c.upstream.FetchCategories)
}

func (c *CachedClient) FetchProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	return cached(ctx, c, "category:"+category, func(ctx context.Context) ([]Product, error) {
		return c.upstream.FetchProductsByCategory(ctx, category)
	})
}

func (c *CachedClient) Login(ctx context.Context, creds Credentials) (string, error) {
	if c.auth == nil {
		return "", stderrors.New("catalog upstream does not support login")
	}
	return c.auth.Login(ctx, creds)
}

func cached[T any](ctx context.Context, c *CachedClient, key string, load func(context.Context) (T, error)) (T, error) {
	var out T
	if c.cache != nil {
		payload, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			if jsonErr := json.Unmarshal(payload, &out); jsonErr == nil {
				return out, nil
			}
			c.logg.Warn(c.logg.WithField(ctx, "cache_key", key), "catalog.cache_corrupt")
		case !stderrors.Is(err, ErrCacheMiss):
			c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
				"cache_key": key,
				"error":     err.Error(),
			}), "catalog.cache_read_failed")
		}
	}

	out, err := load(ctx)
	if err != nil {
		return out, err
	}

	if c.cache != nil {
		payload, err := json.Marshal(out)
		if err == nil {
			err = c.cache.Set(ctx, key, payload, c.ttl)
		}
		if err != nil {
			c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
				"cache_key": key,
				"error":     err.Error(),
			}), "catalog.cache_write_failed")
		}
	}
	return out, nil
}
