package middleware

import (
	"net/http"
	"slices"

	"stride/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin lets only admins through; it must run after AuthMiddleware
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{domain.RoleAdmin}, logger)
}

func RequireRole(allowedRoles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok || !slices.Contains(allowedRoles, role) {
				logger.Warn("Access denied",
					zap.String("role", role),
					zap.Strings("allowed_roles", allowedRoles),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
