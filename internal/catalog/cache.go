package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

const (
	DefaultTTL = 5 * time.Minute

	productListKey = "catalog:products"
)

// RedisAPI is the subset of *redis.Client the cache needs.
type RedisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

func InitRedis(ctx context.Context, addr string, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established", zap.String("addr", addr))
	return rdb, nil
}

// Cache is a read-through JSON cache for catalog lookups. A nil *Cache is valid and
// always misses, so callers do not need to branch on whether Redis is configured.
type Cache struct {
	rdb    RedisAPI
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(rdb RedisAPI, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

func productKey(id string) string {
	return fmt.Sprintf("catalog:product:%s", id)
}

// Products returns the cached product list, or loads and stores it.
func (c *Cache) Products(ctx context.Context, load func(context.Context) (*provider.ProductList, error)) (*provider.ProductList, error) {
	var list provider.ProductList
	if c.get(ctx, productListKey, &list) {
		return &list, nil
	}
	fresh, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, productListKey, fresh)
	return fresh, nil
}

// Product returns a cached product, or loads and stores it.
func (c *Cache) Product(ctx context.Context, id string, load func(context.Context, string) (*provider.Product, error)) (*provider.Product, error) {
	var p provider.Product
	if c.get(ctx, productKey(id), &p) {
		return &p, nil
	}
	fresh, err := load(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, productKey(id), fresh)
	return fresh, nil
}

// Invalidate drops the product list and the given products.
func (c *Cache) Invalidate(ctx context.Context, ids ...string) {
	if c == nil {
		return
	}
	keys := []string{productListKey}
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("catalog cache invalidate failed", zap.Error(err))
	}
}

func (c *Cache) get(ctx context.Context, key string, out interface{}) bool {
	if c == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("catalog cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("catalog cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}
