package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mh2301/shop-core/internal/core/domain"
)

// mockStockRepo mirrors the MySQL adapter's contract in memory: serialized
// mutations, all-or-nothing batches, one audit row per applied line.
type mockStockRepo struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	audits   map[string][]domain.AuditEntry
	nextID   int64
	calls    int
}

func newMockStockRepo(products ...domain.Product) *mockStockRepo {
	m := &mockStockRepo{
		products: make(map[string]*domain.Product),
		audits:   make(map[string][]domain.AuditEntry),
	}
	for _, p := range products {
		cp := p
		m.products[p.ID] = &cp
	}
	return m
}

func (m *mockStockRepo) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockStockRepo) stockOf(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productID].Stock
}

func (m *mockStockRepo) auditCount(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.audits[productID])
}

func (m *mockStockRepo) lastAudit(productID string) domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.audits[productID]
	return entries[len(entries)-1]
}

func (m *mockStockRepo) seedAudit(e domain.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	m.audits[e.ProductID] = append(m.audits[e.ProductID], e)
}

func (m *mockStockRepo) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	p, ok := m.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *mockStockRepo) GetStock(ctx context.Context, productID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	p, ok := m.products[productID]
	if !ok {
		return 0, fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}
	return p.Stock, nil
}

func (m *mockStockRepo) AdjustStock(ctx context.Context, req domain.AdjustmentRequest) (*domain.StockAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	return m.adjustLocked(req)
}

func (m *mockStockRepo) BatchAdjustStock(ctx context.Context, reqs []domain.AdjustmentRequest) ([]domain.StockAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	return m.batchAdjustLocked(reqs)
}

func (m *mockStockRepo) batchAdjustLocked(reqs []domain.AdjustmentRequest) ([]domain.StockAdjustment, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	// Validate every line against a snapshot before touching anything.
	batchErr := &domain.BatchAdjustError{}
	snapshot := make(map[string]int, len(reqs))
	for _, req := range reqs {
		p, ok := m.products[req.ProductID]
		if !ok {
			batchErr.Missing = append(batchErr.Missing, req.ProductID)
			continue
		}
		if _, seen := snapshot[req.ProductID]; !seen {
			snapshot[req.ProductID] = p.Stock
		}
		if snapshot[req.ProductID]+req.Delta < 0 {
			batchErr.Insufficient = append(batchErr.Insufficient, req.ProductID)
			continue
		}
		snapshot[req.ProductID] += req.Delta
	}
	if len(batchErr.Missing) > 0 || len(batchErr.Insufficient) > 0 {
		return nil, batchErr
	}

	results := make([]domain.StockAdjustment, 0, len(reqs))
	for _, req := range reqs {
		adj, err := m.adjustLocked(req)
		if err != nil {
			return nil, err
		}
		results = append(results, *adj)
	}
	return results, nil
}

func (m *mockStockRepo) adjustLocked(req domain.AdjustmentRequest) (*domain.StockAdjustment, error) {
	p, ok := m.products[req.ProductID]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", req.ProductID, domain.ErrNotFound)
	}

	next := p.Stock + req.Delta
	if next < 0 {
		return nil, fmt.Errorf("product %s has stock %d, cannot adjust by %d: %w",
			req.ProductID, p.Stock, req.Delta, domain.ErrInsufficientStock)
	}

	prev := p.Stock
	p.Stock = next

	now := time.Now()
	m.nextID++
	m.audits[req.ProductID] = append(m.audits[req.ProductID], domain.AuditEntry{
		ID:            m.nextID,
		ProductID:     req.ProductID,
		PreviousStock: prev,
		NewStock:      next,
		Adjustment:    req.Delta,
		Reason:        req.Reason,
		CreatedAt:     now,
	})

	return &domain.StockAdjustment{
		ProductID:     req.ProductID,
		PreviousStock: prev,
		NewStock:      next,
		Delta:         req.Delta,
		Status:        domain.StatusFor(next),
		CreatedAt:     now,
	}, nil
}

func (m *mockStockRepo) AuditHistory(ctx context.Context, productID string, limit, offset int) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	entries := m.audits[productID]
	var page []domain.AuditEntry
	for i := len(entries) - 1 - offset; i >= 0 && len(page) < limit; i-- {
		page = append(page, entries[i])
	}
	return page, nil
}

// mockOrderRepo persists orders in memory. CreateOrder decrements stock
// through the shared stock repo so order-and-decrement stay atomic, matching
// the MySQL adapter.
type mockOrderRepo struct {
	mu        sync.Mutex
	stock     *mockStockRepo
	orders    map[string]*domain.Order
	createErr error
}

func newMockOrderRepo(stock *mockStockRepo) *mockOrderRepo {
	return &mockOrderRepo{stock: stock, orders: make(map[string]*domain.Order)}
}

func (m *mockOrderRepo) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}

	reqs := make([]domain.AdjustmentRequest, 0, len(order.Items))
	for _, it := range order.Items {
		reqs = append(reqs, domain.AdjustmentRequest{
			ProductID: it.ProductID,
			Delta:     -it.Quantity,
			Reason:    "order " + order.ID,
		})
	}

	m.stock.mu.Lock()
	_, err := m.stock.batchAdjustLocked(reqs)
	m.stock.mu.Unlock()
	if err != nil {
		return err
	}

	cp := *order
	cp.Items = append([]domain.OrderItem(nil), order.Items...)
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepo) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (m *mockOrderRepo) ListOrders(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var orders []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

func (m *mockOrderRepo) UpdateOrderStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	if o.Status != from {
		return fmt.Errorf("order %s is %s, expected %s: %w", orderID, o.Status, from, domain.ErrConflict)
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return nil
}

// mockInvalidator records which products had their cache entries dropped.
type mockInvalidator struct {
	mu         sync.Mutex
	productIDs []string
}

func (m *mockInvalidator) InvalidateProduct(ctx context.Context, product *domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.productIDs = append(m.productIDs, product.ID)
}

func (m *mockInvalidator) invalidated() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.productIDs...)
}
