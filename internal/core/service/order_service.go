package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mh2301/shop-core/internal/core/domain"
	"github.com/mh2301/shop-core/internal/port"
)

var (
	shippingFlatFee       = decimal.RequireFromString("10.00")
	freeShippingThreshold = decimal.RequireFromString("100.00")
)

const defaultOrderPageSize = 20

// CheckoutRequest carries everything the orchestrator needs from the caller.
// Payment is a simulated outcome supplied by the boundary; there is no real
// payment provider behind it.
type CheckoutRequest struct {
	UserID          string
	ShippingAddress string
	Payment         domain.PaymentOutcome
}

// OrderService runs the checkout saga: cart validation, stock check, totals,
// simulated payment, then order persistence and stock decrement in a single
// store transaction, and finally cache invalidation and cart clearing. Each
// step is attempted exactly once; there is no internal retry.
type OrderService struct {
	carts        port.CartRepository
	stock        port.StockRepository
	orders       port.OrderRepository
	invalidator  port.ProductCacheInvalidator
	paymentDelay time.Duration
}

func NewOrderService(carts port.CartRepository, stock port.StockRepository, orders port.OrderRepository,
	invalidator port.ProductCacheInvalidator, paymentDelay time.Duration) *OrderService {
	return &OrderService{
		carts:        carts,
		stock:        stock,
		orders:       orders,
		invalidator:  invalidator,
		paymentDelay: paymentDelay,
	}
}

func (s *OrderService) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, error) {
	cart, err := s.carts.GetCart(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("nothing to check out: %w", domain.ErrCartEmpty)
	}

	// Check every line against live stock before any mutation. The store
	// transaction revalidates under row locks, so this check failing early is
	// a courtesy, not the guarantee.
	batchErr := &domain.BatchAdjustError{}
	products := make(map[string]*domain.Product, len(cart.Items))
	for _, item := range cart.Items {
		product, err := s.stock.GetProduct(ctx, item.ProductID)
		switch {
		case isNotFound(err):
			batchErr.Missing = append(batchErr.Missing, item.ProductID)
			continue
		case err != nil:
			return nil, err
		}

		if product.Stock < item.Quantity {
			batchErr.Insufficient = append(batchErr.Insufficient, item.ProductID)
			continue
		}
		products[item.ProductID] = product
	}
	if len(batchErr.Missing) > 0 || len(batchErr.Insufficient) > 0 {
		return nil, batchErr
	}

	shipping := shippingFlatFee
	if cart.Subtotal.GreaterThanOrEqual(freeShippingThreshold) {
		shipping = decimal.Zero
	}
	total := cart.Subtotal.Add(cart.Tax).Add(shipping).Round(2)

	if s.paymentDelay > 0 {
		time.Sleep(s.paymentDelay)
	}
	if !req.Payment.Approved {
		return nil, fmt.Errorf("payment declined: %w", domain.ErrPaymentFailed)
	}

	now := time.Now()
	order := &domain.Order{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		Status:          domain.OrderStatusPending,
		Subtotal:        cart.Subtotal,
		Tax:             cart.Tax,
		Shipping:        shipping,
		Total:           total,
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      products[item.ProductID].Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}

	// Order row, item snapshots, stock decrements and audit rows commit
	// together; a concurrent conflicting checkout aborts the whole batch.
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	for _, product := range products {
		s.invalidator.InvalidateProduct(ctx, product)
	}

	// The order is already committed; an empty cart left behind is not worth
	// failing the checkout over.
	_ = s.carts.Clear(ctx, req.UserID)

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.UserID != userID {
		return nil, fmt.Errorf("order %s does not belong to the caller: %w", orderID, domain.ErrUnauthorized)
	}

	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultOrderPageSize
	}
	if offset < 0 {
		offset = 0
	}

	return s.orders.ListOrders(ctx, userID, limit, offset)
}

// CompleteOrder moves a pending order to completed. Stock was already
// deducted at creation, so no inventory re-validation happens here.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdateOrderStatus(ctx, orderID, domain.OrderStatusPending, domain.OrderStatusCompleted); err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusCompleted
	order.UpdatedAt = time.Now()
	return order, nil
}

// CancelOrder moves a pending order to cancelled and returns its stock to the
// ledger, one positive adjustment per line tagged with the order id.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdateOrderStatus(ctx, orderID, domain.OrderStatusPending, domain.OrderStatusCancelled); err != nil {
		return nil, err
	}

	reqs := make([]domain.AdjustmentRequest, 0, len(order.Items))
	for _, item := range order.Items {
		reqs = append(reqs, domain.AdjustmentRequest{
			ProductID: item.ProductID,
			Delta:     item.Quantity,
			Reason:    fmt.Sprintf("order %s cancelled", orderID),
		})
	}

	if _, err := s.stock.BatchAdjustStock(ctx, reqs); err != nil {
		return nil, fmt.Errorf("restore stock for cancelled order %s: %w", orderID, err)
	}

	for _, item := range order.Items {
		if product, err := s.stock.GetProduct(ctx, item.ProductID); err == nil {
			s.invalidator.InvalidateProduct(ctx, product)
		}
	}

	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = time.Now()
	return order, nil
}
