package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

var (
	corsMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	// rate limit headers are read by the checkout page
	corsExposed = []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"}
)

// CORSMiddleware admits the storefront origins. In development every origin
// is allowed, without credentials.
func CORSMiddleware(allowedOrigins []string, isDevelopment bool) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   corsMethods,
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", SessionHeader},
		ExposedHeaders:   corsExposed,
		AllowCredentials: true,
		MaxAge:           600,
	}
	if isDevelopment {
		opts.AllowedOrigins = []string{"*"}
		opts.AllowCredentials = false
	}
	return cors.Handler(opts)
}

// DefaultMiddlewareStack runs ahead of every route. Only JSON bodies are
// compressed so event streams flush unbuffered.
func DefaultMiddlewareStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Compress(5, "application/json"),
	}
}
