package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mh2301/shop-core/internal/core/domain"
)

// MySQLAdapter is the authoritative store: product catalog rows, the
// append-only stock audit ledger, and persisted orders. Every mutation runs
// inside one transaction with the affected product rows locked FOR UPDATE, so
// overlapping mutations to the same product serialize at the database.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, price, stock, category_id, brand_id, created_at, updated_at
		FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CategoryID, &p.BrandID, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	return &p, nil
}

func (m *MySQLAdapter) GetStock(ctx context.Context, productID string) (int, error) {
	var stock int
	err := m.db.QueryRowContext(ctx,
		`SELECT stock FROM products WHERE id = ?`, productID,
	).Scan(&stock)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("query stock: %w", err)
	}

	return stock, nil
}

func (m *MySQLAdapter) AdjustStock(ctx context.Context, req domain.AdjustmentRequest) (*domain.StockAdjustment, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var stock int
	err = tx.QueryRowContext(ctx,
		`SELECT stock FROM products WHERE id = ? FOR UPDATE`, req.ProductID,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", req.ProductID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock stock row: %w", err)
	}

	newStock := stock + req.Delta
	if newStock < 0 {
		return nil, fmt.Errorf("product %s has stock %d, cannot adjust by %d: %w",
			req.ProductID, stock, req.Delta, domain.ErrInsufficientStock)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE products SET stock = ?, updated_at = ? WHERE id = ?`,
		newStock, now, req.ProductID,
	); err != nil {
		return nil, fmt.Errorf("update stock: %w", err)
	}

	if err := insertAudit(ctx, tx, req.ProductID, stock, newStock, req.Delta, req.Reason, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &domain.StockAdjustment{
		ProductID:     req.ProductID,
		PreviousStock: stock,
		NewStock:      newStock,
		Delta:         req.Delta,
		Status:        domain.StatusFor(newStock),
		CreatedAt:     now,
	}, nil
}

// BatchAdjustStock applies every request or none. Phase one locks all
// referenced rows and validates every line against the locked snapshot; phase
// two runs only when no line failed.
func (m *MySQLAdapter) BatchAdjustStock(ctx context.Context, reqs []domain.AdjustmentRequest) ([]domain.StockAdjustment, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stocks, batchErr, err := lockStockRows(ctx, tx, productIDs(reqs))
	if err != nil {
		return nil, err
	}

	// Validate in input order; duplicate product lines see the running value.
	results := make([]domain.StockAdjustment, 0, len(reqs))
	now := time.Now()
	for _, req := range reqs {
		prev, ok := stocks[req.ProductID]
		if !ok {
			continue // already recorded as missing
		}
		next := prev + req.Delta
		if next < 0 {
			batchErr.Insufficient = append(batchErr.Insufficient, req.ProductID)
			continue
		}
		stocks[req.ProductID] = next
		results = append(results, domain.StockAdjustment{
			ProductID:     req.ProductID,
			PreviousStock: prev,
			NewStock:      next,
			Delta:         req.Delta,
			Status:        domain.StatusFor(next),
			CreatedAt:     now,
		})
	}

	if len(batchErr.Missing) > 0 || len(batchErr.Insufficient) > 0 {
		return nil, batchErr
	}

	for i, res := range results {
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = ?, updated_at = ? WHERE id = ?`,
			res.NewStock, now, res.ProductID,
		); err != nil {
			return nil, fmt.Errorf("update stock: %w", err)
		}
		if err := insertAudit(ctx, tx, res.ProductID, res.PreviousStock, res.NewStock, res.Delta, reqs[i].Reason, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return results, nil
}

func (m *MySQLAdapter) AuditHistory(ctx context.Context, productID string, limit, offset int) ([]domain.AuditEntry, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, product_id, previous_stock, new_stock, adjustment, reason, created_at
		FROM inventory_audit
		WHERE product_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var reason sql.NullString
		if err := rows.Scan(&e.ID, &e.ProductID, &e.PreviousStock, &e.NewStock, &e.Adjustment, &reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.Reason = reason.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}

	return entries, nil
}

// CreateOrder persists the order with its item snapshots and decrements stock
// for every line in the same transaction, so an order can never exist without
// its stock deduction.
func (m *MySQLAdapter) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(order.Items))
	for _, it := range order.Items {
		ids = append(ids, it.ProductID)
	}

	stocks, batchErr, err := lockStockRows(ctx, tx, ids)
	if err != nil {
		return err
	}
	for _, it := range order.Items {
		stock, ok := stocks[it.ProductID]
		if !ok {
			continue
		}
		if stock < it.Quantity {
			batchErr.Insufficient = append(batchErr.Insufficient, it.ProductID)
		}
	}
	if len(batchErr.Missing) > 0 || len(batchErr.Insufficient) > 0 {
		return batchErr
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, status, subtotal, tax, shipping, total, shipping_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.Status, order.Subtotal, order.Tax,
		order.Shipping, order.Total, order.ShippingAddress, order.CreatedAt, order.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	auditReason := "order " + order.ID
	for _, it := range order.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, quantity, unit_price, subtotal)
			VALUES (?, ?, ?, ?, ?, ?)`,
			order.ID, it.ProductID, it.Name, it.Quantity, it.UnitPrice, it.Subtotal,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}

		prev := stocks[it.ProductID]
		next := prev - it.Quantity
		stocks[it.ProductID] = next

		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = ?, updated_at = ? WHERE id = ?`,
			next, order.CreatedAt, it.ProductID,
		); err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if err := insertAudit(ctx, tx, it.ProductID, prev, next, -it.Quantity, auditReason, order.CreatedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var o domain.Order
	err := m.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, subtotal, tax, shipping, total, shipping_address, created_at, updated_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total,
		&o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	items, err := m.orderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (m *MySQLAdapter) ListOrders(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, user_id, status, subtotal, tax, shipping, total, shipping_address, created_at, updated_at
		FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Tax, &o.Shipping,
			&o.Total, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		items, err := m.orderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func (m *MySQLAdapter) UpdateOrderStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) error {
	result, err := m.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now(), orderID, from,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}

	var current domain.OrderStatus
	err = m.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, orderID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("query order status: %w", err)
	}

	return fmt.Errorf("order %s is %s, expected %s: %w", orderID, current, from, domain.ErrConflict)
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *MySQLAdapter) orderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, name, quantity, unit_price, subtotal
		FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

// lockStockRows locks the product rows for ids in ascending order, so two
// overlapping batches cannot deadlock, and returns the locked stock snapshot.
// Unknown ids are collected into the returned BatchAdjustError.
func lockStockRows(ctx context.Context, tx *sql.Tx, ids []string) (map[string]int, *domain.BatchAdjustError, error) {
	sorted := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	sort.Strings(sorted)

	stocks := make(map[string]int, len(sorted))
	batchErr := &domain.BatchAdjustError{}
	for _, id := range sorted {
		var stock int
		err := tx.QueryRowContext(ctx,
			`SELECT stock FROM products WHERE id = ? FOR UPDATE`, id,
		).Scan(&stock)
		if errors.Is(err, sql.ErrNoRows) {
			batchErr.Missing = append(batchErr.Missing, id)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("lock stock row: %w", err)
		}
		stocks[id] = stock
	}

	return stocks, batchErr, nil
}

func insertAudit(ctx context.Context, tx *sql.Tx, productID string, prev, next, delta int, reason string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_audit (product_id, previous_stock, new_stock, adjustment, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		productID, prev, next, delta,
		sql.NullString{String: reason, Valid: reason != ""}, at,
	)
	if err != nil {
		return fmt.Errorf("insert audit row: %w", err)
	}
	return nil
}

func productIDs(reqs []domain.AdjustmentRequest) []string {
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ProductID)
	}
	return ids
}
