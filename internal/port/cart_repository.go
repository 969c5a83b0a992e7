package port

import (
	"context"

	"github.com/mh2301/shop-core/internal/core/domain"
)

type CartRepository interface {
	// GetCart returns the stored cart, or a fresh empty one for an unknown
	// key. Reading never persists anything.
	GetCart(ctx context.Context, cartID string) (domain.Cart, error)

	// Update runs fn against the cart under its per-key lock, so concurrent
	// read-modify-write cycles on the same cart serialize. The returned cart
	// is a copy of the state fn left behind.
	Update(ctx context.Context, cartID string, fn func(cart *domain.Cart) error) (domain.Cart, error)

	// Clear resets the cart to empty.
	Clear(ctx context.Context, cartID string) error
}

// ProductCacheInvalidator drops every cache entry embedding a product. All
// write paths invalidate through this one interface so product, category and
// brand listings stay consistent.
type ProductCacheInvalidator interface {
	InvalidateProduct(ctx context.Context, product *domain.Product)
}
