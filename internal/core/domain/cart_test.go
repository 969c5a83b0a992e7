package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCartRecalculate(t *testing.T) {
	cart := NewCart("cart-1")
	cart.Items = []CartItem{
		{ProductID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("19.99")},
		{ProductID: "p2", Quantity: 1, UnitPrice: decimal.RequireFromString("29.99")},
	}

	cart.Recalculate()

	assert.True(t, cart.Items[0].Subtotal.Equal(decimal.RequireFromString("39.98")))
	assert.True(t, cart.Items[1].Subtotal.Equal(decimal.RequireFromString("29.99")))
	assert.True(t, cart.Subtotal.Equal(decimal.RequireFromString("69.97")), "subtotal = %s", cart.Subtotal)
	assert.True(t, cart.Tax.Equal(decimal.RequireFromString("5.60")), "tax = %s", cart.Tax)
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("75.57")), "total = %s", cart.Total)
	assert.Equal(t, 3, cart.ItemCount)
}

func TestCartRecalculate_Empty(t *testing.T) {
	cart := NewCart("cart-1")
	cart.Recalculate()

	assert.True(t, cart.Subtotal.IsZero())
	assert.True(t, cart.Tax.IsZero())
	assert.True(t, cart.Total.IsZero())
	assert.Equal(t, 0, cart.ItemCount)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		stock int
		want  StockStatus
	}{
		{-1, StockStatusOut},
		{0, StockStatusOut},
		{1, StockStatusLow},
		{5, StockStatusLow},
		{6, StockStatusIn},
		{100, StockStatusIn},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.stock), "stock %d", tt.stock)
	}
}

func TestCartClone_DoesNotAliasItems(t *testing.T) {
	cart := NewCart("cart-1")
	cart.Items = []CartItem{{ProductID: "p1", Quantity: 1, UnitPrice: decimal.RequireFromString("1.00")}}
	cart.Recalculate()

	clone := cart.Clone()
	clone.Items[0].Quantity = 99

	assert.Equal(t, 1, cart.Items[0].Quantity)
}
