package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hongminglow/cryptodesk-be/internal/auth"
	"github.com/hongminglow/cryptodesk-be/internal/config"
	"github.com/hongminglow/cryptodesk-be/internal/favorites"
	"github.com/hongminglow/cryptodesk-be/internal/http/handlers"
	"github.com/hongminglow/cryptodesk-be/internal/http/respond"
	"github.com/hongminglow/cryptodesk-be/internal/market"
	"github.com/hongminglow/cryptodesk-be/internal/middleware"
	"github.com/hongminglow/cryptodesk-be/internal/storage/sqlstore"
)

// Deps are the collaborators the server wires into its routes.
type Deps struct {
	Config        config.Config
	Log           zerolog.Logger
	Store         *sqlstore.Store
	Cache         market.Cache
	Upstream      market.Upstream
	MarketOptions []market.Option
	StartedAt     time.Time
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner  *http.Server
	router *chi.Mux
	log    zerolog.Logger
}

// New wires up middleware, routes, and returns a ready server.
func New(d Deps) *Server {
	cfg := d.Config
	log := d.Log.With().Str("component", "server").Logger()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	authSvc := auth.NewService(d.Store, d.Store, tokens, auth.RefreshPolicy{
		Rotate:                 cfg.RotateRefreshTokens,
		BlacklistAfterRotation: cfg.BlacklistAfterRotation,
	}, d.Log)
	marketOpts := append([]market.Option{market.WithTTL(cfg.CacheTTL)}, d.MarketOptions...)
	marketSvc := market.NewService(d.Upstream, d.Cache, d.Store, d.Log, marketOpts...)
	favoritesSvc := favorites.NewService(d.Store, d.Log)

	checks := map[string]handlers.Pinger{"database": d.Store}
	if p, ok := d.Cache.(handlers.Pinger); ok {
		checks["cache"] = p
	}
	startedAt := d.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recover(log))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(chimw.StripSlashes)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respond.Error(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respond.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	handlers.NewHealthHandler(startedAt, checks, d.Log).Register(r)
	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Authenticate(authSvc, d.Log))
		handlers.NewAuthHandler(authSvc, d.Log).Register(api)
		handlers.NewMarketHandler(marketSvc, d.Log).Register(api)
		handlers.NewFavoritesHandler(favoritesSvc, d.Log).Register(api)
	})

	return &Server{
		router: r,
		log:    log,
		inner: &http.Server{
			Addr:              cfg.HTTPAddress(),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.inner.Addr).Msg("starting HTTP server")
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.inner.Shutdown(ctx)
}
