package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/hongminglow/cryptodesk-be/internal/auth"
	"github.com/hongminglow/cryptodesk-be/internal/config"
	"github.com/hongminglow/cryptodesk-be/internal/logger"
	"github.com/hongminglow/cryptodesk-be/internal/market"
	"github.com/hongminglow/cryptodesk-be/internal/server"
	"github.com/hongminglow/cryptodesk-be/internal/storage/sqlstore"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	zlog.Logger = log
	if envErr != nil {
		log.Debug().Msg("no .env file found; relying on existing environment")
	}

	if cfg.CommonPasswordsFile != "" {
		n, err := auth.LoadCommonPasswords(cfg.CommonPasswordsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("load common passwords")
		}
		log.Info().Int("entries", n).Str("path", cfg.CommonPasswordsFile).Msg("common password list loaded")
	}

	ctx := context.Background()
	store, err := sqlstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("init database")
	}
	defer store.Close()
	log.Info().Str("dialect", string(store.Dialect())).Msg("database ready")

	cache, closeCache := openCache(ctx, cfg, log)
	defer closeCache()

	upstream := market.NewClient(cfg.CoinGeckoBaseURL, cfg.UpstreamTimeout, cfg.UpstreamRatePerMinute, log)

	srv := server.New(server.Deps{
		Config:    cfg,
		Log:       log,
		Store:     store,
		Cache:     cache,
		Upstream:  upstream,
		StartedAt: time.Now(),
	})

	go func() {
		log.Info().Str("addr", cfg.HTTPAddress()).Msg("cryptodesk backend listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
}

func openCache(ctx context.Context, cfg config.Config, log zerolog.Logger) (market.Cache, func()) {
	if cfg.CacheURL == "" {
		log.Info().Msg("using in-memory market cache")
		return market.NewMemoryCache(), func() {}
	}
	rc, err := market.OpenRedis(ctx, cfg.CacheURL, cfg.CacheStaleRetention)
	if err != nil {
		log.Fatal().Err(err).Msg("init cache")
	}
	log.Info().Msg("using redis market cache")
	return rc, func() { _ = rc.Close() }
}
