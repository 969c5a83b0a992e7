package port

import (
	"context"

	"github.com/mh2301/shop-core/internal/core/domain"
)

type ProductRepository interface {
	// GetProduct retrieves a product by ID, domain.ErrNotFound when unknown.
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

type StockRepository interface {
	ProductRepository

	// GetStock reads the current stock count, domain.ErrNotFound when unknown.
	GetStock(ctx context.Context, productID string) (int, error)

	// AdjustStock applies one signed delta and records one audit row inside a
	// single transaction. The affected row stays locked until commit.
	AdjustStock(ctx context.Context, req domain.AdjustmentRequest) (*domain.StockAdjustment, error)

	// BatchAdjustStock locks every referenced row, validates all deltas
	// against the locked snapshot, then applies all of them or none.
	BatchAdjustStock(ctx context.Context, reqs []domain.AdjustmentRequest) ([]domain.StockAdjustment, error)

	// AuditHistory returns a reverse-chronological page of the change ledger.
	AuditHistory(ctx context.Context, productID string, limit, offset int) ([]domain.AuditEntry, error)
}

type OrderRepository interface {
	// CreateOrder persists the order and its items and decrements stock for
	// every line in one transaction, writing one audit row per line.
	CreateOrder(ctx context.Context, order *domain.Order) error

	// GetOrder retrieves an order with its items, domain.ErrNotFound when unknown.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// ListOrders returns a user's orders, newest first.
	ListOrders(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error)

	// UpdateOrderStatus transitions an order from one status to another.
	// domain.ErrConflict when the order is not in the expected status.
	UpdateOrderStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) error
}
