package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hongminglow/cryptodesk-be/internal/apperr"
	"github.com/hongminglow/cryptodesk-be/internal/http/respond"
	"github.com/hongminglow/cryptodesk-be/internal/middleware"
	"github.com/hongminglow/cryptodesk-be/internal/models"
	"github.com/hongminglow/cryptodesk-be/internal/models/dto"
)

// FavoritesService is per-user favorites CRUD.
type FavoritesService interface {
	List(ctx context.Context, user *models.User) ([]models.FavoriteCrypto, error)
	Create(ctx context.Context, user *models.User, req dto.CreateFavoriteRequest) (models.FavoriteCrypto, error)
	Get(ctx context.Context, user *models.User, id int64) (models.FavoriteCrypto, error)
	Delete(ctx context.Context, user *models.User, id int64) error
}

// FavoritesHandler requires an authenticated user on every route.
type FavoritesHandler struct {
	svc FavoritesService
	log zerolog.Logger
}

func NewFavoritesHandler(svc FavoritesService, log zerolog.Logger) *FavoritesHandler {
	return &FavoritesHandler{svc: svc, log: log.With().Str("handler", "favorites").Logger()}
}

// Register attaches favorites routes to the router.
func (h *FavoritesHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser(h.log))
		r.Get("/favorites", h.handleList)
		r.Post("/favorites", h.handleCreate)
		r.Get("/favorites/{id}", h.handleGet)
		r.Delete("/favorites/{id}", h.handleDelete)
	})
}

func (h *FavoritesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	favs, err := h.svc.List(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		respond.Problem(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", favs)
}

func (h *FavoritesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateFavoriteRequest
	if !decodeJSON(w, r, h.log, &req) {
		return
	}
	fav, err := h.svc.Create(r.Context(), middleware.UserFromContext(r.Context()), req)
	if err != nil {
		respond.Problem(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "favorite added", fav)
}

func (h *FavoritesHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := favoriteID(w, r, h.log)
	if !ok {
		return
	}
	fav, err := h.svc.Get(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		respond.Problem(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", fav)
}

func (h *FavoritesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := favoriteID(w, r, h.log)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), middleware.UserFromContext(r.Context()), id); err != nil {
		respond.Problem(w, h.log, err)
		return
	}
	respond.NoContent(w)
}

// favoriteID parses the path id. Anything that is not a positive integer
// cannot name a row, so it is reported as not found.
func favoriteID(w http.ResponseWriter, r *http.Request, log zerolog.Logger) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Problem(w, log, apperr.NotFound("Not found."))
		return 0, false
	}
	return id, true
}
