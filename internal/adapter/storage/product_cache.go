package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mh2301/shop-core/internal/core/domain"
	"github.com/mh2301/shop-core/internal/port"
)

const (
	productKeyPrefix  = "product:"
	categoryKeyPrefix = "products:category:"
	brandKeyPrefix    = "products:brand:"
)

func productKey(productID string) string   { return productKeyPrefix + productID }
func categoryKey(categoryID string) string { return categoryKeyPrefix + categoryID }
func brandKey(brandID string) string       { return brandKeyPrefix + brandID }

// ProductCache is a cache-aside reader over the primary product store. Cache
// failures never surface to the caller: every error on the cache path is
// logged and the read falls through to the primary.
type ProductCache struct {
	products port.ProductRepository
	cache    port.CacheRepository
	ttl      time.Duration
	logger   *zap.Logger
}

func NewProductCache(products port.ProductRepository, cache port.CacheRepository, ttl time.Duration, logger *zap.Logger) *ProductCache {
	return &ProductCache{
		products: products,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
	}
}

func (c *ProductCache) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	return getOrSet(ctx, c, productKey(productID), func() (*domain.Product, error) {
		return c.products.GetProduct(ctx, productID)
	})
}

// getOrSet returns the cached value under key, invoking loader and storing
// its result on a miss. Cache errors on either side are logged and swallowed;
// only the loader can fail the call.
func getOrSet[T any](ctx context.Context, c *ProductCache, key string, loader func() (T, error)) (T, error) {
	var cached T
	hit, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("cache read failed, falling back to primary store",
			zap.String("key", key), zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	val, err := loader()
	if err != nil {
		return val, err
	}

	if err := c.cache.Set(ctx, key, val, c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}

	return val, nil
}

// InvalidateProduct drops the product's own entry and every listing entry
// that embeds it. All write paths invalidate through here so product,
// category and brand listings stay consistent with each other.
func (c *ProductCache) InvalidateProduct(ctx context.Context, product *domain.Product) {
	keys := []string{
		productKey(product.ID),
		categoryKey(product.CategoryID),
		brandKey(product.BrandID),
	}

	if err := c.cache.Delete(ctx, keys...); err != nil {
		c.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
