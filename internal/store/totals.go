package store

import (
	"stride/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	// FreeShippingThreshold is the subtotal from which shipping is free (inclusive)
	FreeShippingThreshold = decimal.NewFromInt(100)
	// FlatShippingFee applies below the free shipping threshold
	FlatShippingFee = decimal.RequireFromString("9.99")
	// TaxRate is applied to the subtotal
	TaxRate = decimal.RequireFromString("0.08")
)

// Breakdown is the price summary shown for a cart and charged for an order
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// CartTotal sums price times quantity over all line items
func CartTotal(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Product.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	return total
}

// CartCount sums quantities, so one line of three pairs counts as three
func CartCount(items []domain.CartItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// PriceBreakdown derives shipping, tax and total from a subtotal.
// All amounts are rounded to cents, half away from zero.
func PriceBreakdown(subtotal decimal.Decimal) Breakdown {
	subtotal = subtotal.Round(2)

	shipping := FlatShippingFee
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(TaxRate).Round(2)

	return Breakdown{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// FreeShippingRemaining returns how much more must be spent to reach free shipping
func FreeShippingRemaining(subtotal decimal.Decimal) decimal.Decimal {
	remaining := FreeShippingThreshold.Sub(subtotal.Round(2))
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
