package transport

import (
	"errors"
	"net/http"

	"stride/internal/domain"
	"stride/internal/middleware"
	"stride/internal/repository"
	"stride/internal/service"
	"stride/internal/store"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token for refresh and logout
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	User         UserProfile `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func newUserProfile(user *domain.User) UserProfile {
	return UserProfile{
		ID:    user.ID.String(),
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
}

func identityOf(user *domain.User) domain.Identity {
	return domain.Identity{ID: user.ID, Name: user.Name, Email: user.Email}
}

// UserHandler serves account endpoints. When a request carries a storefront
// session header, the session's signed-in identity follows login, logout and
// profile changes.
type UserHandler struct {
	userService service.UserService
	sessions    *store.Registry
	logger      *zap.Logger
}

func NewUserHandler(userService service.UserService, sessions *store.Registry, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		sessions:    sessions,
		logger:      logger,
	}
}

func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", h.Logout)
			r.Post("/logout-all", h.LogoutAll)
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
		})
	})
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Registration validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	user, err := h.userService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			middleware.RespondWithError(w, http.StatusConflict, "user with this email already exists")
			return
		}
		h.logger.Error("Registration failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	h.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, newUserProfile(user))
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error("Login failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	h.withSession(r, func(s *store.Store) { s.SetUser(identityOf(result.User)) })

	h.logger.Info("User logged in", zap.String("user_id", result.User.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    int(result.ExpiresIn.Seconds()),
		User:         newUserProfile(result.User),
	})
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	if err := h.userService.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.Error("Logout failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to logout")
		return
	}

	h.withSession(r, func(s *store.Store) { s.ClearUser() })
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "logged out successfully"})
}

// LogoutAll ends every session of the caller. Access tokens already issued
// stay valid until they expire.
func (h *UserHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.userService.LogoutAll(r.Context(), userID); err != nil {
		h.logger.Error("Logout from all devices failed", zap.String("user_id", userID.String()), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to logout")
		return
	}

	h.withSession(r, func(s *store.Store) { s.ClearUser() })
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "logged out from all devices"})
}

func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	accessToken, err := h.userService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid refresh token")
		case errors.Is(err, service.ErrTokenExpired):
			middleware.RespondWithError(w, http.StatusUnauthorized, "refresh token expired")
		default:
			h.logger.Error("Token refresh failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to refresh token")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, RefreshResponse{AccessToken: accessToken})
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		h.respondUserError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newUserProfile(user))
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, req.Name)
	if err != nil {
		h.respondUserError(w, err)
		return
	}

	h.withSession(r, func(s *store.Store) {
		if current, ok := s.User(); ok && current.ID == user.ID {
			s.SetUser(identityOf(user))
		}
	})
	middleware.RespondWithJSON(w, http.StatusOK, newUserProfile(user))
}

func (h *UserHandler) respondUserError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrUserNotFound) {
		middleware.RespondWithError(w, http.StatusNotFound, "user not found")
		return
	}
	h.logger.Error("Failed to load user", zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load user")
}

// withSession applies fn to the caller's storefront session, if any.
// Session storage failures never fail the account request.
func (h *UserHandler) withSession(r *http.Request, fn func(*store.Store)) {
	sessionID := r.Header.Get(middleware.SessionHeader)
	if sessionID == "" || h.sessions == nil {
		return
	}
	s, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		h.logger.Warn("Failed to attach session", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	fn(s)
}
