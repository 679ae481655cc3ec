package transport

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"stride/internal/catalog"
	"stride/internal/domain"
	"stride/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ListingResponse is a filtered and sorted product listing
type ListingResponse struct {
	Products []domain.Product   `json:"products"`
	Count    int                `json:"count"`
	Sort     catalog.SortKey    `json:"sort"`
	Price    catalog.PriceRange `json:"priceRange"`
	MaxPrice float64            `json:"maxPrice"`
}

type ProductResponse struct {
	Product domain.Product   `json:"product"`
	Related []domain.Product `json:"related"`
}

type CatalogHandler struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
}

func NewCatalogHandler(c *catalog.Catalog, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: c, logger: logger}
}

func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/featured", h.Featured)
		r.Get("/search", h.Search)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/related", h.Related)
	})
}

// List serves the shop page: ?category&minPrice&maxPrice&minRating&inStock&onSale&sort
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, sortKey, err := h.parseListing(r.URL.Query())
	if err != nil {
		h.logger.Debug("Invalid listing query", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	products := catalog.Compose(h.catalog.All(), filter, sortKey)
	middleware.RespondWithJSON(w, http.StatusOK, ListingResponse{
		Products: orEmpty(products),
		Count:    len(products),
		Sort:     sortKey,
		Price:    *filter.PriceRange,
		MaxPrice: h.catalog.MaxPrice(),
	})
}

func (h *CatalogHandler) parseListing(q url.Values) (catalog.Filter, catalog.SortKey, error) {
	filter := catalog.Filter{
		Category:    domain.Category(q.Get("category")),
		InStockOnly: q.Get("inStock") == "true",
		OnSaleOnly:  q.Get("onSale") == "true",
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return catalog.Filter{}, "", errors.New("unknown category")
	}

	priceRange := catalog.PriceRange{Min: 0, Max: h.catalog.MaxPrice()}
	var err error
	if priceRange.Min, err = floatParam(q, "minPrice", priceRange.Min); err != nil {
		return catalog.Filter{}, "", err
	}
	if priceRange.Max, err = floatParam(q, "maxPrice", priceRange.Max); err != nil {
		return catalog.Filter{}, "", err
	}
	if priceRange.Min > priceRange.Max {
		return catalog.Filter{}, "", errors.New("minPrice must not exceed maxPrice")
	}
	filter.PriceRange = &priceRange

	if filter.MinRating, err = floatParam(q, "minRating", 0); err != nil {
		return catalog.Filter{}, "", err
	}

	return filter, catalog.ParseSortKey(q.Get("sort")), nil
}

func floatParam(q url.Values, name string, fallback float64) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0, errors.New(name + " must be a non-negative number")
	}
	return value, nil
}

func (h *CatalogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, newProductList(h.catalog.GetFeatured()))
}

// Search backs the header search box; limit defaults to five results
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.RespondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductList(h.catalog.Search(r.URL.Query().Get("q"), limit)))
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ProductResponse{
		Product: product,
		Related: orEmpty(h.catalog.Related(product, 0)),
	})
}

func (h *CatalogHandler) Related(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductList(h.catalog.Related(product, 0)))
}

func (h *CatalogHandler) product(w http.ResponseWriter, r *http.Request) (domain.Product, bool) {
	product, err := h.catalog.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return domain.Product{}, false
		}
		h.logger.Error("Failed to load product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load product")
		return domain.Product{}, false
	}
	return product, true
}
