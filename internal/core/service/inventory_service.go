package service

import (
	"context"
	"fmt"

	"github.com/mh2301/shop-core/internal/core/domain"
	"github.com/mh2301/shop-core/internal/port"
)

const (
	// Shown in audit history for ledger rows recorded without a reason.
	placeholderAuditReason = "manual adjustment"

	defaultIncrementReason = "stock increment"
	defaultDecrementReason = "stock decrement"

	defaultAuditPageSize = 20
)

// InventoryService enforces the stock invariants on top of the ledger: stock
// never goes negative, every mutation leaves an audit row, and batches apply
// all-or-nothing.
type InventoryService struct {
	stock       port.StockRepository
	invalidator port.ProductCacheInvalidator
}

func NewInventoryService(stock port.StockRepository, invalidator port.ProductCacheInvalidator) *InventoryService {
	return &InventoryService{stock: stock, invalidator: invalidator}
}

func (s *InventoryService) Adjust(ctx context.Context, productID string, delta int, reason string) (*domain.StockAdjustment, error) {
	if delta == 0 {
		return nil, fmt.Errorf("adjustment must be non-zero: %w", domain.ErrValidation)
	}

	product, err := s.stock.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if reason == "" {
		reason = defaultReason(delta)
	}

	adj, err := s.stock.AdjustStock(ctx, domain.AdjustmentRequest{
		ProductID: productID,
		Delta:     delta,
		Reason:    reason,
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.InvalidateProduct(ctx, product)

	return adj, nil
}

// BatchAdjust validates every line before any write, then delegates to the
// ledger's atomic batch. An empty batch returns an empty result without
// touching storage.
func (s *InventoryService) BatchAdjust(ctx context.Context, items []domain.AdjustmentRequest) ([]domain.StockAdjustment, error) {
	if len(items) == 0 {
		return []domain.StockAdjustment{}, nil
	}

	batchErr := &domain.BatchAdjustError{}
	products := make([]*domain.Product, 0, len(items))
	reqs := make([]domain.AdjustmentRequest, len(items))

	for i, item := range items {
		if item.Delta == 0 {
			return nil, fmt.Errorf("adjustment for product %s must be non-zero: %w", item.ProductID, domain.ErrValidation)
		}

		product, err := s.stock.GetProduct(ctx, item.ProductID)
		switch {
		case isNotFound(err):
			batchErr.Missing = append(batchErr.Missing, item.ProductID)
			continue
		case err != nil:
			return nil, err
		}

		if product.Stock+item.Delta < 0 {
			batchErr.Insufficient = append(batchErr.Insufficient, item.ProductID)
			continue
		}

		products = append(products, product)

		reqs[i] = item
		if reqs[i].Reason == "" {
			reqs[i].Reason = defaultReason(item.Delta)
		}
	}

	if len(batchErr.Missing) > 0 || len(batchErr.Insufficient) > 0 {
		return nil, batchErr
	}

	results, err := s.stock.BatchAdjustStock(ctx, reqs)
	if err != nil {
		return nil, err
	}

	for _, p := range products {
		s.invalidator.InvalidateProduct(ctx, p)
	}

	return results, nil
}

func (s *InventoryService) AuditHistory(ctx context.Context, productID string, limit, offset int) ([]domain.AuditEntry, error) {
	if _, err := s.stock.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.stock.AuditHistory(ctx, productID, limit, offset)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		if entries[i].Reason == "" {
			entries[i].Reason = placeholderAuditReason
		}
	}

	return entries, nil
}

// Status classifies the current stock level. It is a pure function of the
// count: two calls with no intervening mutation return identical output.
func (s *InventoryService) Status(ctx context.Context, productID string) (*domain.StockLevel, error) {
	stock, err := s.stock.GetStock(ctx, productID)
	if err != nil {
		return nil, err
	}

	return &domain.StockLevel{
		ProductID: productID,
		Stock:     stock,
		Status:    domain.StatusFor(stock),
	}, nil
}

func defaultReason(delta int) string {
	if delta > 0 {
		return defaultIncrementReason
	}
	return defaultDecrementReason
}
