package catalog

import (
	"fmt"
	"testing"

	"stride/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func price(v float64) *float64 { return &v }

func ids(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

// productsFrom expands generated seeds into a product list; each seed's bits
// pick the flags and its value picks price and rating
func productsFrom(seeds []int) []domain.Product {
	categories := []domain.Category{domain.CategoryMen, domain.CategoryWomen, domain.CategorySneakers}
	products := make([]domain.Product, len(seeds))
	for i, v := range seeds {
		products[i] = domain.Product{
			ID:       fmt.Sprintf("p%d", i),
			Category: categories[v%len(categories)],
			Price:    float64(10 + v%290),
			Rating:   float64(v%51) / 10,
			InStock:  v&1 == 1,
			Featured: v&2 == 2,
			New:      v&4 == 4,
		}
		if v&8 == 8 {
			products[i].OriginalPrice = price(products[i].Price + 15)
		}
	}
	return products
}

func TestComposeFeaturedIsStablePartition(t *testing.T) {
	products := []domain.Product{
		{ID: "B", Featured: true, Price: 50},
		{ID: "A", Featured: true, Price: 40},
		{ID: "C", Price: 10},
	}

	assert.Equal(t, []string{"B", "A", "C"}, ids(Compose(products, Filter{}, SortFeatured)))
	assert.Equal(t, []string{"B", "A", "C"}, ids(Compose(products, Filter{}, "unknown")))
	assert.Equal(t, []string{"C", "A", "B"}, ids(Compose(products, Filter{}, SortPriceLow)))
}

func TestComposeNewestKeepsRelativeOrder(t *testing.T) {
	products := []domain.Product{
		{ID: "a", Rating: 5},
		{ID: "b", New: true, Rating: 1},
		{ID: "c", Rating: 3},
		{ID: "d", New: true, Rating: 4},
	}

	assert.Equal(t, []string{"b", "d", "a", "c"}, ids(Compose(products, Filter{}, SortNewest)))
	assert.Equal(t, []string{"a", "d", "c", "b"}, ids(Compose(products, Filter{}, SortRating)))
}

func TestComposeFilters(t *testing.T) {
	products := []domain.Product{
		{ID: "1", Category: domain.CategoryMen, Price: 100, Rating: 4.5, InStock: true, OriginalPrice: price(120)},
		{ID: "2", Category: domain.CategoryMen, Price: 200, Rating: 3.9, InStock: true},
		{ID: "3", Category: domain.CategoryWomen, Price: 80, Rating: 4.8, InStock: false, OriginalPrice: price(80)},
		{ID: "4", Category: domain.CategoryWomen, Price: 150, Rating: 4.1, InStock: true, OriginalPrice: price(199)},
	}

	tests := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{name: "no filter", filter: Filter{}, expected: []string{"1", "2", "3", "4"}},
		{name: "all category bypasses", filter: Filter{Category: domain.CategoryAll}, expected: []string{"1", "2", "3", "4"}},
		{name: "category", filter: Filter{Category: domain.CategoryWomen}, expected: []string{"3", "4"}},
		{name: "price range inclusive", filter: Filter{PriceRange: &PriceRange{Min: 100, Max: 150}}, expected: []string{"1", "4"}},
		{name: "min rating", filter: Filter{MinRating: 4.5}, expected: []string{"1", "3"}},
		{name: "in stock", filter: Filter{InStockOnly: true}, expected: []string{"1", "2", "4"}},
		{name: "on sale needs a higher original price", filter: Filter{OnSaleOnly: true}, expected: []string{"1", "4"}},
		{name: "conjunction", filter: Filter{Category: domain.CategoryWomen, InStockOnly: true, OnSaleOnly: true}, expected: []string{"4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(Compose(products, tt.filter, SortFeatured)))
		})
	}
}

func TestComposeDoesNotMutateInput(t *testing.T) {
	products := []domain.Product{{ID: "x", Price: 30}, {ID: "y", Price: 10}}

	_ = Compose(products, Filter{}, SortPriceLow)

	assert.Equal(t, []string{"x", "y"}, ids(products))
}

func TestParseSortKey(t *testing.T) {
	assert.Equal(t, SortPriceHigh, ParseSortKey("price-high"))
	assert.Equal(t, SortNewest, ParseSortKey("newest"))
	assert.Equal(t, SortFeatured, ParseSortKey(""))
	assert.Equal(t, SortFeatured, ParseSortKey("cheapest"))
}

// Feature: storefront, Property 7: Featured ordering is a stable partition
func TestProperty_FeaturedIsStablePartition(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("featured items come first and each group keeps input order", prop.ForAll(
		func(seeds []int) bool {
			products := productsFrom(seeds)
			result := Compose(products, Filter{}, SortFeatured)

			var featured, rest []string
			for _, p := range products {
				if p.Featured {
					featured = append(featured, p.ID)
				} else {
					rest = append(rest, p.ID)
				}
			}
			expected := append(featured, rest...)

			got := ids(result)
			if len(got) != len(expected) {
				t.Logf("FAIL: %d results for %d products", len(got), len(expected))
				return false
			}
			for i := range got {
				if got[i] != expected[i] {
					t.Logf("FAIL: position %d is %s, expected %s", i, got[i], expected[i])
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1<<16)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: storefront, Property 8: Numeric sorts are ordered
func TestProperty_PriceSortsAreOrdered(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("price-low is non-decreasing and price-high non-increasing", prop.ForAll(
		func(seeds []int) bool {
			products := productsFrom(seeds)

			low := Compose(products, Filter{}, SortPriceLow)
			for i := 1; i < len(low); i++ {
				if low[i-1].Price > low[i].Price {
					t.Logf("FAIL: price-low %v before %v", low[i-1].Price, low[i].Price)
					return false
				}
			}

			high := Compose(products, Filter{}, SortPriceHigh)
			for i := 1; i < len(high); i++ {
				if high[i-1].Price < high[i].Price {
					t.Logf("FAIL: price-high %v before %v", high[i-1].Price, high[i].Price)
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1<<16)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: storefront, Property 9: The full price range filters nothing
func TestProperty_FullPriceRangeIsNoop(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a [0, max price] range keeps every product", prop.ForAll(
		func(seeds []int) bool {
			products := productsFrom(seeds)
			full := &PriceRange{Min: 0, Max: New(products).MaxPrice()}

			withRange := Compose(products, Filter{PriceRange: full}, SortRating)
			without := Compose(products, Filter{}, SortRating)

			if len(withRange) != len(without) {
				t.Logf("FAIL: range dropped %d products", len(without)-len(withRange))
				return false
			}
			for i := range withRange {
				if withRange[i].ID != without[i].ID {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1<<16)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: storefront, Property 10: Every result satisfies the filter
func TestProperty_ResultsSatisfyFilter(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("composed listings only hold matching products", prop.ForAll(
		func(seeds []int, minRating float64, inStock, onSale bool) bool {
			filter := Filter{
				Category:    domain.CategoryWomen,
				PriceRange:  &PriceRange{Min: 50, Max: 200},
				MinRating:   minRating,
				InStockOnly: inStock,
				OnSaleOnly:  onSale,
			}
			for _, p := range Compose(productsFrom(seeds), filter, SortNewest) {
				if !filter.Matches(p) {
					t.Logf("FAIL: product %s does not match", p.ID)
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1<<16)),
		gen.Float64Range(0, 5),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
