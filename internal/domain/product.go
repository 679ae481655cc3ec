package domain

import "slices"

// Category is one of the fixed catalog departments
type Category string

const (
	CategoryAll      Category = "all"
	CategoryMen      Category = "men"
	CategoryWomen    Category = "women"
	CategorySneakers Category = "sneakers"
	CategorySports   Category = "sports"
	CategoryCasual   Category = "casual"
)

// Categories lists the concrete categories in display order
var Categories = []Category{CategoryMen, CategoryWomen, CategorySneakers, CategorySports, CategoryCasual}

// Valid reports whether c is a concrete category or the "all" wildcard
func (c Category) Valid() bool {
	return c == CategoryAll || slices.Contains(Categories, c)
}

// Product represents a product in the catalog
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Brand         string    `json:"brand"`
	Price         float64   `json:"price"`
	OriginalPrice *float64  `json:"originalPrice,omitempty"`
	Description   string    `json:"description"`
	Category      Category  `json:"category"`
	Images        []string  `json:"images"`
	Sizes         []float64 `json:"sizes"`
	Colors        []string  `json:"colors"`
	Rating        float64   `json:"rating"`
	Reviews       int       `json:"reviews"`
	InStock       bool      `json:"inStock"`
	Featured      bool      `json:"featured,omitempty"`
	New           bool      `json:"new,omitempty"`
}

// OnSale reports whether the product carries a pre-discount price above its current price
func (p Product) OnSale() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

// HasSize reports whether size is one of the declared sizes
func (p Product) HasSize(size float64) bool {
	return slices.Contains(p.Sizes, size)
}

// HasColor reports whether color is one of the declared colors
func (p Product) HasColor(color string) bool {
	return slices.Contains(p.Colors, color)
}
