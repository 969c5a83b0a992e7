package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mh2301/shop-core/internal/core/domain"
)

type fakeProducts struct {
	product domain.Product
	loads   int
}

func (f *fakeProducts) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	f.loads++
	if productID != f.product.ID {
		return nil, domain.ErrNotFound
	}
	cp := f.product
	return &cp, nil
}

type fakeCache struct {
	data    map[string][]byte
	sets    int
	deletes []string
	failAll bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if f.failAll {
		return false, errors.New("cache down")
	}
	raw, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, val any, ttl time.Duration) error {
	if f.failAll {
		return errors.New("cache down")
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	f.data[key] = raw
	f.sets++
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, keys ...string) error {
	if f.failAll {
		return errors.New("cache down")
	}
	for _, k := range keys {
		delete(f.data, k)
		f.deletes = append(f.deletes, k)
	}
	return nil
}

func (f *fakeCache) Ping(ctx context.Context) error {
	if f.failAll {
		return errors.New("cache down")
	}
	return nil
}

func cachedProduct() domain.Product {
	return domain.Product{
		ID:         "p5",
		Name:       "widget",
		Price:      decimal.RequireFromString("19.99"),
		Stock:      7,
		CategoryID: "cat-1",
		BrandID:    "brand-1",
	}
}

func TestGetProduct_CacheAside(t *testing.T) {
	products := &fakeProducts{product: cachedProduct()}
	cache := newFakeCache()
	pc := NewProductCache(products, cache, time.Minute, zap.NewNop())
	ctx := context.Background()

	// Miss: one primary read, one cache write.
	first, err := pc.GetProduct(ctx, "p5")
	require.NoError(t, err)
	assert.Equal(t, 1, products.loads)
	assert.Equal(t, 1, cache.sets)

	// Hit: no further primary reads.
	second, err := pc.GetProduct(ctx, "p5")
	require.NoError(t, err)
	assert.Equal(t, 1, products.loads)
	assert.Equal(t, first.Name, second.Name)
	assert.True(t, first.Price.Equal(second.Price))
}

func TestGetProduct_CacheFailureFallsThrough(t *testing.T) {
	products := &fakeProducts{product: cachedProduct()}
	cache := newFakeCache()
	cache.failAll = true
	pc := NewProductCache(products, cache, time.Minute, zap.NewNop())

	p, err := pc.GetProduct(context.Background(), "p5")
	require.NoError(t, err, "cache failure must never fail the read")
	assert.Equal(t, "widget", p.Name)
	assert.Equal(t, 1, products.loads)
}

func TestGetProduct_PrimaryMissPropagates(t *testing.T) {
	products := &fakeProducts{product: cachedProduct()}
	pc := NewProductCache(products, newFakeCache(), time.Minute, zap.NewNop())

	_, err := pc.GetProduct(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvalidateProduct_DropsAllRelatedKeys(t *testing.T) {
	products := &fakeProducts{product: cachedProduct()}
	cache := newFakeCache()
	pc := NewProductCache(products, cache, time.Minute, zap.NewNop())
	ctx := context.Background()

	_, err := pc.GetProduct(ctx, "p5")
	require.NoError(t, err)

	p := cachedProduct()
	pc.InvalidateProduct(ctx, &p)

	assert.ElementsMatch(t, []string{
		"product:p5",
		"products:category:cat-1",
		"products:brand:brand-1",
	}, cache.deletes)

	// Next read goes back to the primary.
	_, err = pc.GetProduct(ctx, "p5")
	require.NoError(t, err)
	assert.Equal(t, 2, products.loads)
}

func TestInvalidateProduct_CacheFailureIsSwallowed(t *testing.T) {
	products := &fakeProducts{product: cachedProduct()}
	cache := newFakeCache()
	cache.failAll = true
	pc := NewProductCache(products, cache, time.Minute, zap.NewNop())

	p := cachedProduct()
	// Must not panic or surface anything.
	pc.InvalidateProduct(context.Background(), &p)
}
