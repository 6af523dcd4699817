package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hongminglow/cryptodesk-be/internal/http/respond"
	"github.com/hongminglow/cryptodesk-be/internal/middleware"
	"github.com/hongminglow/cryptodesk-be/internal/models"
)

// MarketService serves market listings and single assets.
type MarketService interface {
	List(ctx context.Context, user *models.User) ([]models.MarketEntry, models.MarketSource, error)
	Get(ctx context.Context, id string, user *models.User) (models.MarketEntry, error)
}

// MarketHandler exposes the market-data proxy. Both routes allow anonymous callers.
type MarketHandler struct {
	svc MarketService
	log zerolog.Logger
}

func NewMarketHandler(svc MarketService, log zerolog.Logger) *MarketHandler {
	return &MarketHandler{svc: svc, log: log.With().Str("handler", "market").Logger()}
}

// Register attaches market routes to the router.
func (h *MarketHandler) Register(r chi.Router) {
	r.Get("/cryptos", h.handleList)
	r.Get("/cryptos/{assetID}", h.handleGet)
}

func (h *MarketHandler) handleList(w http.ResponseWriter, r *http.Request) {
	entries, source, err := h.svc.List(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		respond.Problem(w, h.log, err)
		return
	}
	w.Header().Set("X-Data-Source", string(source))
	respond.JSON(w, http.StatusOK, "ok", entries)
}

func (h *MarketHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.Get(r.Context(), chi.URLParam(r, "assetID"), middleware.UserFromContext(r.Context()))
	if err != nil {
		respond.Problem(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", entry)
}
