package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stride/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadBundled(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load("")
	require.NoError(t, err)
	require.NotEmpty(t, c.All())
	return c
}

func TestLoadBundledCatalog(t *testing.T) {
	c := loadBundled(t)

	seen := make(map[string]bool)
	for _, p := range c.All() {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
		assert.NotEmpty(t, p.Images, "product %s has no images", p.ID)
		assert.NotEmpty(t, p.Sizes, "product %s has no sizes", p.ID)
		assert.True(t, p.Rating >= 0 && p.Rating <= 5)
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	badCategory := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badCategory, []byte(`[{"id":"1","category":"kids"}]`), 0o600))
	_, err = Load(badCategory)
	assert.Error(t, err)

	valid := filepath.Join(dir, "valid.json")
	require.NoError(t, os.WriteFile(valid, []byte(`[{"id":"9","name":"Solo","category":"men","price":10}]`), 0o600))
	c, err := Load(valid)
	require.NoError(t, err)
	assert.Len(t, c.All(), 1)
}

func TestGetByID(t *testing.T) {
	c := loadBundled(t)

	p, err := c.GetByID("1")
	require.NoError(t, err)
	assert.Equal(t, "1", p.ID)

	_, err = c.GetByID("does-not-exist")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestGetByCategory(t *testing.T) {
	c := loadBundled(t)

	assert.Len(t, c.GetByCategory(domain.CategoryAll), len(c.All()))
	assert.Len(t, c.GetByCategory(""), len(c.All()))

	for _, p := range c.GetByCategory(domain.CategoryWomen) {
		assert.Equal(t, domain.CategoryWomen, p.Category)
	}
}

func TestGetFeatured(t *testing.T) {
	c := loadBundled(t)

	featured := c.GetFeatured()
	assert.NotEmpty(t, featured)
	for _, p := range featured {
		assert.True(t, p.Featured)
	}
}

func TestSearch(t *testing.T) {
	c := New([]domain.Product{
		{ID: "1", Name: "Air Runner", Brand: "Stride", Category: domain.CategorySports},
		{ID: "2", Name: "Metro Boot", Brand: "Stride Men", Category: domain.CategoryMen},
		{ID: "3", Name: "Canvas", Brand: "Other", Category: domain.CategoryCasual},
	})

	assert.Equal(t, []string{"1"}, ids(c.Search("RUNNER", 0)))
	assert.Equal(t, []string{"1", "2"}, ids(c.Search("stride", 0)))
	assert.Equal(t, []string{"3"}, ids(c.Search("casual", 0)))
	assert.Equal(t, []string{"1"}, ids(c.Search("stride", 1)))
	assert.Empty(t, c.Search("   ", 0))
}

func TestSearchDefaultLimit(t *testing.T) {
	c := loadBundled(t)

	results := c.Search("stride", 0)
	assert.Len(t, results, DefaultSearchLimit)
	for _, p := range results {
		assert.Contains(t, strings.ToLower(p.Name+p.Brand+string(p.Category)), "stride")
	}
}

func TestRelated(t *testing.T) {
	c := loadBundled(t)
	product, err := c.GetByID("1")
	require.NoError(t, err)

	related := c.Related(product, 0)
	assert.LessOrEqual(t, len(related), DefaultRelatedLimit)
	for _, p := range related {
		assert.Equal(t, product.Category, p.Category)
		assert.NotEqual(t, product.ID, p.ID)
	}
}

func TestMaxPrice(t *testing.T) {
	c := New([]domain.Product{{ID: "a", Price: 12}, {ID: "b", Price: 219.99}, {ID: "c", Price: 80}})
	assert.Equal(t, 219.99, c.MaxPrice())
	assert.Zero(t, New(nil).MaxPrice())
}

func TestAllReturnsCopy(t *testing.T) {
	c := New([]domain.Product{{ID: "a"}, {ID: "b"}})

	all := c.All()
	all[0].ID = "mutated"

	p, err := c.GetByID("a")
	require.NoError(t, err)
	assert.Equal(t, "a", p.ID)
}
