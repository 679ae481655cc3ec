package catalog

import (
	"cmp"
	"slices"

	"stride/internal/domain"
)

// SortKey selects the ordering of a listing
type SortKey string

const (
	SortFeatured  SortKey = "featured"
	SortNewest    SortKey = "newest"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortRating    SortKey = "rating"
)

// ParseSortKey maps a query value to a sort key; unknown values fall back to featured
func ParseSortKey(value string) SortKey {
	switch key := SortKey(value); key {
	case SortFeatured, SortNewest, SortPriceLow, SortPriceHigh, SortRating:
		return key
	default:
		return SortFeatured
	}
}

// PriceRange is an inclusive price bound
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Filter holds the conjunctive listing predicates. Zero values disable a predicate.
type Filter struct {
	Category    domain.Category
	PriceRange  *PriceRange
	MinRating   float64
	InStockOnly bool
	OnSaleOnly  bool
}

// Matches reports whether a product passes every predicate of the filter
func (f Filter) Matches(p domain.Product) bool {
	if f.Category != "" && f.Category != domain.CategoryAll && p.Category != f.Category {
		return false
	}
	if f.PriceRange != nil && (p.Price < f.PriceRange.Min || p.Price > f.PriceRange.Max) {
		return false
	}
	if f.MinRating > 0 && p.Rating < f.MinRating {
		return false
	}
	if f.InStockOnly && !p.InStock {
		return false
	}
	if f.OnSaleOnly && !p.OnSale() {
		return false
	}
	return true
}

// Compose filters products and orders the survivors. The input is left untouched.
//
// featured and newest are stable partitions on their flag: flagged products
// first, each group in input order. The numeric keys are stable sorts.
func Compose(products []domain.Product, filter Filter, sortKey SortKey) []domain.Product {
	result := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if filter.Matches(p) {
			result = append(result, p)
		}
	}

	switch ParseSortKey(string(sortKey)) {
	case SortNewest:
		return partition(result, func(p domain.Product) bool { return p.New })
	case SortPriceLow:
		slices.SortStableFunc(result, func(a, b domain.Product) int {
			return cmp.Compare(a.Price, b.Price)
		})
	case SortPriceHigh:
		slices.SortStableFunc(result, func(a, b domain.Product) int {
			return cmp.Compare(b.Price, a.Price)
		})
	case SortRating:
		slices.SortStableFunc(result, func(a, b domain.Product) int {
			return cmp.Compare(b.Rating, a.Rating)
		})
	default:
		return partition(result, func(p domain.Product) bool { return p.Featured })
	}

	return result
}

func partition(products []domain.Product, first func(domain.Product) bool) []domain.Product {
	head := make([]domain.Product, 0, len(products))
	var tail []domain.Product
	for _, p := range products {
		if first(p) {
			head = append(head, p)
		} else {
			tail = append(tail, p)
		}
	}
	return append(head, tail...)
}
