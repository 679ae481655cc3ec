package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"stride/internal/catalog"
	"stride/internal/domain"
	"stride/internal/middleware"
	"stride/internal/store"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AddToCartRequest struct {
	ProductID string  `json:"productId" validate:"required"`
	Size      float64 `json:"size" validate:"gt=0"`
	Color     string  `json:"color" validate:"required"`
	Quantity  int     `json:"quantity" validate:"omitempty,min=1,max=99"`
}

// UpdateQuantityRequest sets a line quantity; zero or less removes the line
type UpdateQuantityRequest struct {
	ProductID string  `json:"productId" validate:"required"`
	Size      float64 `json:"size" validate:"gt=0"`
	Color     string  `json:"color" validate:"required"`
	Quantity  int     `json:"quantity" validate:"max=99"`
}

type ProductRefRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

type ThemeRequest struct {
	Theme domain.Theme `json:"theme" validate:"required,oneof=light dark"`
}

type ThemeResponse struct {
	Theme domain.Theme `json:"theme"`
}

type CompareResponse struct {
	Products []domain.Product `json:"products"`
	Count    int              `json:"count"`
	Max      int              `json:"max"`
}

// SessionResponse summarizes a storefront session for the page header
type SessionResponse struct {
	User            *domain.Identity `json:"user"`
	IsAuthenticated bool             `json:"isAuthenticated"`
	CartCount       int              `json:"cartCount"`
	WishlistCount   int              `json:"wishlistCount"`
	CompareCount    int              `json:"compareCount"`
	Theme           domain.Theme     `json:"theme"`
}

// StoreHandler exposes the cart, wishlist, compare list and theme of the
// calling storefront session
type StoreHandler struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
}

func NewStoreHandler(c *catalog.Catalog, logger *zap.Logger) *StoreHandler {
	return &StoreHandler{catalog: c, logger: logger}
}

// RegisterRoutes mounts the session routes; sessionMiddleware must be
// middleware.SessionMiddleware
func (h *StoreHandler) RegisterRoutes(r chi.Router, sessionMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware)

		r.Get("/api/session", h.Session)

		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddToCart)
			r.Put("/items", h.UpdateQuantity)
			r.Delete("/items", h.RemoveFromCart)
		})

		r.Route("/api/wishlist", func(r chi.Router) {
			r.Get("/", h.GetWishlist)
			r.Post("/", h.AddToWishlist)
			r.Delete("/{productId}", h.RemoveFromWishlist)
		})

		r.Route("/api/compare", func(r chi.Router) {
			r.Get("/", h.GetCompare)
			r.Post("/", h.AddToCompare)
			r.Delete("/", h.ClearCompare)
			r.Delete("/{productId}", h.RemoveFromCompare)
		})

		r.Route("/api/preferences/theme", func(r chi.Router) {
			r.Get("/", h.GetTheme)
			r.Put("/", h.SetTheme)
			r.Post("/toggle", h.ToggleTheme)
		})
	})
}

func sessionStore(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	s, ok := middleware.GetStore(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing "+middleware.SessionHeader+" header")
	}
	return s, ok
}

func (h *StoreHandler) Session(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}

	response := SessionResponse{
		CartCount:     s.CartCount(),
		WishlistCount: len(s.Wishlist()),
		CompareCount:  len(s.CompareList()),
		Theme:         s.Theme(),
	}
	if user, ok := s.User(); ok {
		response.User = &user
		response.IsAuthenticated = true
	}
	middleware.RespondWithJSON(w, http.StatusOK, response)
}

func (h *StoreHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(s.Items()))
}

// AddToCart adds a variant of a catalog product. Size and color must be
// offered by the product; quantity defaults to one.
func (h *StoreHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}

	var req AddToCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add to cart validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, ok := h.lookup(w, req.ProductID)
	if !ok {
		return
	}
	if !product.InStock {
		middleware.RespondWithError(w, http.StatusConflict, "product is out of stock")
		return
	}
	if fieldErrors := variantErrors(product, req.Size, req.Color); len(fieldErrors) > 0 {
		middleware.RespondWithValidationErrors(w, fieldErrors)
		return
	}

	if err := s.AddToCart(product, req.Size, req.Color, req.Quantity); err != nil {
		if errors.Is(err, store.ErrInvalidQuantity) {
			middleware.RespondWithValidationErrors(w, []middleware.ValidationError{{Field: "quantity", Message: err.Error()}})
			return
		}
		h.logger.Error("Failed to add to cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(s.Items()))
}

func (h *StoreHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	s.UpdateQuantity(req.ProductID, req.Size, req.Color, req.Quantity)
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(s.Items()))
}

// RemoveFromCart takes the line identity from ?productId&size&color
func (h *StoreHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	size, err := strconv.ParseFloat(q.Get("size"), 64)
	if q.Get("productId") == "" || q.Get("color") == "" || err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "productId, size and color are required")
		return
	}

	s.RemoveFromCart(q.Get("productId"), size, q.Get("color"))
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(s.Items()))
}

func (h *StoreHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}
	s.ClearCart()
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(nil))
}

func (h *StoreHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductList(s.Wishlist()))
}

func (h *StoreHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}

	var req ProductRefRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}
	product, ok := h.lookup(w, req.ProductID)
	if !ok {
		return
	}

	s.AddToWishlist(product)
	middleware.RespondWithJSON(w, http.StatusOK, newProductList(s.Wishlist()))
}

func (h *StoreHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}
	s.RemoveFromWishlist(chi.URLParam(r, "productId"))
	middleware.RespondWithJSON(w, http.StatusOK, newProductList(s.Wishlist()))
}

func (h *StoreHandler) GetCompare(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCompareResponse(s.CompareList()))
}

// AddToCompare answers 409 when the compare list is already full
func (h *StoreHandler) AddToCompare(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}

	var req ProductRefRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}
	product, ok := h.lookup(w, req.ProductID)
	if !ok {
		return
	}

	if !s.AddToCompare(product) {
		middleware.RespondWithErrorDetails(w, http.StatusConflict,
			fmt.Sprintf("You can compare up to %d products. Remove one to add another.", store.MaxCompare),
			map[string]any{"max": store.MaxCompare},
		)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCompareResponse(s.CompareList()))
}

func (h *StoreHandler) RemoveFromCompare(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}
	s.RemoveFromCompare(chi.URLParam(r, "productId"))
	middleware.RespondWithJSON(w, http.StatusOK, newCompareResponse(s.CompareList()))
}

func (h *StoreHandler) ClearCompare(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}
	s.ClearCompare()
	middleware.RespondWithJSON(w, http.StatusOK, newCompareResponse(nil))
}

func (h *StoreHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ThemeResponse{Theme: s.Theme()})
}

func (h *StoreHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}

	var req ThemeRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	s.SetTheme(req.Theme)
	middleware.RespondWithJSON(w, http.StatusOK, ThemeResponse{Theme: s.Theme()})
}

func (h *StoreHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionStore(w, r)
	if !ok {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ThemeResponse{Theme: s.ToggleTheme()})
}

func (h *StoreHandler) lookup(w http.ResponseWriter, productID string) (domain.Product, bool) {
	product, err := h.catalog.GetByID(productID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return domain.Product{}, false
	}
	return product, true
}

func variantErrors(product domain.Product, size float64, color string) []middleware.ValidationError {
	var fieldErrors []middleware.ValidationError
	if !product.HasSize(size) {
		fieldErrors = append(fieldErrors, middleware.ValidationError{Field: "size", Message: "Size is not available for this product"})
	}
	if !product.HasColor(color) {
		fieldErrors = append(fieldErrors, middleware.ValidationError{Field: "color", Message: "Color is not available for this product"})
	}
	return fieldErrors
}

func newCompareResponse(products []domain.Product) CompareResponse {
	products = orEmpty(products)
	return CompareResponse{Products: products, Count: len(products), Max: store.MaxCompare}
}
