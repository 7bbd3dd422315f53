package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"classroomhub/internal/metrics"
	"classroomhub/internal/models"
	"classroomhub/internal/security"
	"classroomhub/internal/service"
)

// AuthHandler handles registration, login and token issuance
type AuthHandler struct {
	authService *service.AuthService
	csrf        *security.CSRFGenerator
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, csrf *security.CSRFGenerator, m *metrics.Metrics, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		csrf:        csrf,
		metrics:     m,
		logger:      logger,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      *models.User `json:"user"`
	CSRFToken string       `json:"csrf_token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RegisterPublicRoutes mounts the unauthenticated endpoints
func (h *AuthHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/token", h.Token)
}

// RegisterRoutes mounts the endpoints that need a signed-in user
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)
}

// Register creates a parent account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest, nil)
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.metrics.Registrations.Inc()
	h.logger.Info("user registered", zap.Int64("user_id", user.ID))
	respondJSON(w, http.StatusCreated, user)
}

// Login starts a cookie session and returns the CSRF token bound to it
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest, nil)
		return
	}

	session, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.metrics.Logins.WithLabelValues("failure").Inc()
		}
		respondWithServiceError(w, h.logger, err)
		return
	}
	h.metrics.Logins.WithLabelValues("success").Inc()

	csrfToken, err := h.csrf.GenerateToken(session.ID)
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, ErrInternalServerError, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, session.ID, session.ExpiresAt))
	respondJSON(w, http.StatusOK, loginResponse{
		User:      user,
		CSRFToken: csrfToken,
		ExpiresAt: session.ExpiresAt,
	})
}

// Token exchanges credentials for a bearer access token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest, nil)
		return
	}

	user, err := h.authService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.metrics.Logins.WithLabelValues("failure").Inc()
		}
		respondWithServiceError(w, h.logger, err)
		return
	}
	h.metrics.Logins.WithLabelValues("success").Inc()

	token, expiresAt, err := h.authService.IssueAccessToken(user)
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, ErrInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	})
}

// Logout ends the cookie session. Bearer tokens simply expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := r.Context().Value(SessionContextKey).(string); ok {
		if err := h.authService.Logout(r.Context(), sessionID); err != nil {
			respondWithError(w, h.logger, http.StatusInternalServerError, ErrInternalServerError, err)
			return
		}
	}

	http.SetCookie(w, security.CreateDeleteCookie(r))
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, GetUserFromContext(r.Context()))
}
