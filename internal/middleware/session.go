package middleware

import (
	"context"
	"net/http"

	"stride/internal/store"

	"go.uber.org/zap"
)

// SessionHeader carries the storefront session id chosen by the client
const SessionHeader = "X-Session-ID"

const (
	sessionIDKey contextKey = "session_id"
	storeKey     contextKey = "session_store"
)

const maxSessionIDLength = 128

// SessionMiddleware resolves the storefront session named by the
// X-Session-ID header and places its store in the request context
func SessionMiddleware(registry *store.Registry, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(SessionHeader)
			if sessionID == "" || len(sessionID) > maxSessionIDLength {
				RespondWithError(w, http.StatusBadRequest, "missing or invalid "+SessionHeader+" header")
				return
			}

			s, err := registry.Get(r.Context(), sessionID)
			if err != nil {
				logger.Error("Failed to load session store",
					zap.String("session_id", sessionID),
					zap.Error(err),
				)
				RespondWithError(w, http.StatusServiceUnavailable, "session storage unavailable")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithSession(r.Context(), sessionID, s)))
		})
	}
}

func contextWithSession(ctx context.Context, sessionID string, s *store.Store) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return context.WithValue(ctx, storeKey, s)
}

func GetSessionID(ctx context.Context) string {
	sessionID, _ := ctx.Value(sessionIDKey).(string)
	return sessionID
}

// GetStore returns the session store placed by SessionMiddleware
func GetStore(ctx context.Context) (*store.Store, bool) {
	s, ok := ctx.Value(storeKey).(*store.Store)
	return s, ok
}
