package domain

import "time"

// AdjustmentRequest is a single signed stock delta. Reason may be empty;
// callers above the ledger fill in a default.
type AdjustmentRequest struct {
	ProductID string
	Delta     int
	Reason    string
}

// StockAdjustment is the outcome of one applied adjustment.
type StockAdjustment struct {
	ProductID     string      `json:"product_id"`
	PreviousStock int         `json:"previous_stock"`
	NewStock      int         `json:"new_stock"`
	Delta         int         `json:"adjustment"`
	Status        StockStatus `json:"status"`
	CreatedAt     time.Time   `json:"timestamp"`
}

// AuditEntry is one immutable row of the stock change history.
// NewStock == PreviousStock + Adjustment always holds.
type AuditEntry struct {
	ID            int64     `json:"id"`
	ProductID     string    `json:"product_id"`
	PreviousStock int       `json:"previous_stock"`
	NewStock      int       `json:"new_stock"`
	Adjustment    int       `json:"adjustment"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
}

type StockLevel struct {
	ProductID string      `json:"product_id"`
	Stock     int         `json:"stock"`
	Status    StockStatus `json:"status"`
}
