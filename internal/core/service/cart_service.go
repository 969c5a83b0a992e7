package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mh2301/shop-core/internal/core/domain"
	"github.com/mh2301/shop-core/internal/port"
)

// CartService mutates per-key carts and keeps their derived totals current.
// Product reads go through the cache-aside reader; stock is checked at
// add/update time but never reserved, so a cart can still fail at checkout.
type CartService struct {
	carts    port.CartRepository
	products port.ProductRepository
}

func NewCartService(carts port.CartRepository, products port.ProductRepository) *CartService {
	return &CartService{carts: carts, products: products}
}

func (s *CartService) GetCart(ctx context.Context, cartID string) (domain.Cart, error) {
	return s.carts.GetCart(ctx, cartID)
}

func (s *CartService) AddItem(ctx context.Context, cartID, productID string, quantity int) (domain.Cart, error) {
	if quantity <= 0 {
		return domain.Cart{}, fmt.Errorf("quantity must be positive: %w", domain.ErrValidation)
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}

	return s.carts.Update(ctx, cartID, func(cart *domain.Cart) error {
		idx := cart.FindItem(productID)

		merged := quantity
		if idx >= 0 {
			merged += cart.Items[idx].Quantity
		}
		if merged > product.Stock {
			return fmt.Errorf("product %s has stock %d, requested %d: %w",
				productID, product.Stock, merged, domain.ErrInsufficientStock)
		}

		if idx >= 0 {
			cart.Items[idx].Quantity = merged
		} else {
			cart.Items = append(cart.Items, domain.CartItem{
				ProductID: productID,
				Name:      product.Name,
				Quantity:  quantity,
				UnitPrice: product.Price,
			})
		}

		cart.Recalculate()
		return nil
	})
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, cartID, productID string, quantity int) (domain.Cart, error) {
	if quantity <= 0 {
		return domain.Cart{}, fmt.Errorf("quantity must be positive: %w", domain.ErrValidation)
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}

	if quantity > product.Stock {
		return domain.Cart{}, fmt.Errorf("product %s has stock %d, requested %d: %w",
			productID, product.Stock, quantity, domain.ErrInsufficientStock)
	}

	return s.carts.Update(ctx, cartID, func(cart *domain.Cart) error {
		idx := cart.FindItem(productID)
		if idx < 0 {
			return fmt.Errorf("product %s is not in the cart: %w", productID, domain.ErrNotFound)
		}

		cart.Items[idx].Quantity = quantity
		cart.Recalculate()
		return nil
	})
}

func (s *CartService) RemoveItem(ctx context.Context, cartID, productID string) (domain.Cart, error) {
	return s.carts.Update(ctx, cartID, func(cart *domain.Cart) error {
		idx := cart.FindItem(productID)
		if idx < 0 {
			return fmt.Errorf("product %s is not in the cart: %w", productID, domain.ErrNotFound)
		}

		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		cart.Recalculate()
		return nil
	})
}

func (s *CartService) Clear(ctx context.Context, cartID string) error {
	return s.carts.Clear(ctx, cartID)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
