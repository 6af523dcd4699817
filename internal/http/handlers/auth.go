package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hongminglow/cryptodesk-be/internal/apperr"
	"github.com/hongminglow/cryptodesk-be/internal/auth"
	"github.com/hongminglow/cryptodesk-be/internal/http/respond"
	"github.com/hongminglow/cryptodesk-be/internal/models"
	"github.com/hongminglow/cryptodesk-be/internal/models/dto"
)

// AuthService is the subset of the auth gateway the handler needs.
type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (models.User, auth.TokenPair, error)
	Login(ctx context.Context, username, password string) (models.User, auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
}

// AuthHandler owns register/login/refresh endpoints.
type AuthHandler struct {
	svc AuthService
	log zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log.With().Str("handler", "auth").Logger()}
}

// Register attaches auth routes to the router.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/refresh", h.handleRefresh)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, h.log, &req) {
		return
	}
	user, pair, err := h.svc.Register(r.Context(), req)
	if err != nil {
		respond.Problem(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "User created successfully", dto.AuthResponse{
		User:    user,
		Refresh: pair.Refresh,
		Access:  pair.Access,
	})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, h.log, &req) {
		return
	}
	user, pair, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respond.Problem(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.AuthResponse{
		User:    user,
		Refresh: pair.Refresh,
		Access:  pair.Access,
	})
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !decodeJSON(w, r, h.log, &req) {
		return
	}
	pair, err := h.svc.Refresh(r.Context(), req.Refresh)
	if err != nil {
		respond.Problem(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, "token refreshed", dto.RefreshResponse{Access: pair.Access, Refresh: pair.Refresh})
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, log zerolog.Logger, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		respond.Problem(w, log, apperr.Validation("invalid JSON payload"))
		return false
	}
	return true
}
