package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var taxRate = decimal.RequireFromString("0.08")

type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Cart struct {
	ID        string          `json:"id"`
	Items     []CartItem      `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewCart(id string) Cart {
	return Cart{
		ID:       id,
		Subtotal: decimal.Zero,
		Tax:      decimal.Zero,
		Total:    decimal.Zero,
	}
}

// FindItem returns the index of the line holding productID, or -1.
func (c *Cart) FindItem(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Recalculate recomputes every derived value. Monetary values are rounded to
// two decimals at each step so results are reproducible.
func (c *Cart) Recalculate() {
	subtotal := decimal.Zero
	count := 0
	for i := range c.Items {
		it := &c.Items[i]
		it.Subtotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		subtotal = subtotal.Add(it.Subtotal)
		count += it.Quantity
	}
	c.Subtotal = subtotal.Round(2)
	c.Tax = c.Subtotal.Mul(taxRate).Round(2)
	c.Total = c.Subtotal.Add(c.Tax).Round(2)
	c.ItemCount = count
	c.UpdatedAt = time.Now()
}

// Clone deep-copies the cart so callers never alias store-owned state.
func (c *Cart) Clone() Cart {
	out := *c
	out.Items = append([]CartItem(nil), c.Items...)
	return out
}
