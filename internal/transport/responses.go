package transport

import (
	"stride/internal/domain"
	"stride/internal/store"
)

// PriceSummary is a Breakdown formatted to cents for display
type PriceSummary struct {
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

func newPriceSummary(b store.Breakdown) PriceSummary {
	return PriceSummary{
		Subtotal: b.Subtotal.StringFixed(2),
		Shipping: b.Shipping.StringFixed(2),
		Tax:      b.Tax.StringFixed(2),
		Total:    b.Total.StringFixed(2),
	}
}

type CartResponse struct {
	Items                 []domain.CartItem `json:"items"`
	Count                 int               `json:"count"`
	Summary               PriceSummary      `json:"summary"`
	FreeShippingRemaining string            `json:"freeShippingRemaining"`
}

func newCartResponse(items []domain.CartItem) CartResponse {
	subtotal := store.CartTotal(items)
	return CartResponse{
		Items:                 orEmpty(items),
		Count:                 store.CartCount(items),
		Summary:               newPriceSummary(store.PriceBreakdown(subtotal)),
		FreeShippingRemaining: store.FreeShippingRemaining(subtotal).StringFixed(2),
	}
}

type ProductListResponse struct {
	Products []domain.Product `json:"products"`
	Count    int              `json:"count"`
}

func newProductList(products []domain.Product) ProductListResponse {
	products = orEmpty(products)
	return ProductListResponse{Products: products, Count: len(products)}
}

type MessageResponse struct {
	Message string `json:"message"`
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
