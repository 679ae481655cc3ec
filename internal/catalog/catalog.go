// Package catalog serves the read-only product collection and composes
// filtered, sorted listings over it.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"stride/internal/domain"
)

//go:embed products.json
var embeddedProducts []byte

const (
	DefaultSearchLimit  = 5
	DefaultRelatedLimit = 4
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// Catalog is an immutable, in-memory product collection
type Catalog struct {
	products []domain.Product
	byID     map[string]int
}

// New creates a catalog over products, keeping their order
func New(products []domain.Product) *Catalog {
	c := &Catalog{
		products: slices.Clone(products),
		byID:     make(map[string]int, len(products)),
	}
	for i, p := range c.products {
		c.byID[p.ID] = i
	}
	return c
}

// Load reads the catalog from a JSON file, or from the bundled collection when path is empty
func Load(path string) (*Catalog, error) {
	data := embeddedProducts
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	for _, p := range products {
		if p.ID == "" {
			return nil, errors.New("catalog product without id")
		}
		if !p.Category.Valid() || p.Category == domain.CategoryAll {
			return nil, fmt.Errorf("product %s has unknown category %q", p.ID, p.Category)
		}
	}

	return New(products), nil
}

// All returns every product in catalog order
func (c *Catalog) All() []domain.Product {
	return slices.Clone(c.products)
}

// GetByID looks up a single product
func (c *Catalog) GetByID(id string) (domain.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}
	return c.products[i], nil
}

// GetByCategory returns the products of one category; "all" or empty returns everything
func (c *Catalog) GetByCategory(category domain.Category) []domain.Product {
	if category == "" || category == domain.CategoryAll {
		return c.All()
	}
	return c.filter(func(p domain.Product) bool { return p.Category == category })
}

// GetFeatured returns the featured products
func (c *Catalog) GetFeatured() []domain.Product {
	return c.filter(func(p domain.Product) bool { return p.Featured })
}

// Search matches the query against name, brand and category, case-insensitively
func (c *Catalog) Search(query string, limit int) []domain.Product {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []domain.Product{}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	results := c.filter(func(p domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Brand), query) ||
			strings.Contains(strings.ToLower(string(p.Category)), query)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Related returns other products from the same category
func (c *Catalog) Related(product domain.Product, limit int) []domain.Product {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	results := c.filter(func(p domain.Product) bool {
		return p.Category == product.Category && p.ID != product.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// MaxPrice is the upper bound of the default price range
func (c *Catalog) MaxPrice() float64 {
	maxPrice := 0.0
	for _, p := range c.products {
		maxPrice = max(maxPrice, p.Price)
	}
	return maxPrice
}

func (c *Catalog) filter(keep func(domain.Product) bool) []domain.Product {
	results := []domain.Product{}
	for _, p := range c.products {
		if keep(p) {
			results = append(results, p)
		}
	}
	return results
}
