package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	DatabaseURL string
	CORSOrigins []string

	JWTSecret              string
	JWTIssuer              string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	RotateRefreshTokens    bool
	BlacklistAfterRotation bool
	CommonPasswordsFile    string

	CacheURL            string
	CacheTTL            time.Duration
	CacheStaleRetention time.Duration

	CoinGeckoBaseURL      string
	UpstreamTimeout       time.Duration
	UpstreamRatePerMinute int

	LogLevel  string
	LogPretty bool
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:        fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		CORSOrigins: parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "http://localhost:3000,http://127.0.0.1:3000")),

		JWTSecret:              strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:              fallback(os.Getenv("JWT_ISSUER"), "cryptodesk-backend"),
		AccessTTL:              positiveDuration(os.Getenv("JWT_ACCESS_TTL_MINUTES"), 60, time.Minute),
		RefreshTTL:             positiveDuration(os.Getenv("JWT_REFRESH_TTL_HOURS"), 24, time.Hour),
		RotateRefreshTokens:    parseBool(os.Getenv("JWT_ROTATE_REFRESH"), false),
		BlacklistAfterRotation: parseBool(os.Getenv("JWT_BLACKLIST_AFTER_ROTATION"), true),
		CommonPasswordsFile:    strings.TrimSpace(os.Getenv("COMMON_PASSWORDS_FILE")),

		CacheURL:            strings.TrimSpace(os.Getenv("CACHE_URL")),
		CacheTTL:            positiveDuration(os.Getenv("CACHE_TTL_SECONDS"), 300, time.Second),
		CacheStaleRetention: positiveDuration(os.Getenv("CACHE_STALE_RETENTION_HOURS"), 24, time.Hour),

		CoinGeckoBaseURL:      strings.TrimRight(fallback(os.Getenv("COINGECKO_BASE_URL"), "https://api.coingecko.com/api/v3"), "/"),
		UpstreamTimeout:       positiveDuration(os.Getenv("UPSTREAM_TIMEOUT_SECONDS"), 10, time.Second),
		UpstreamRatePerMinute: 30,

		LogLevel:  strings.ToLower(fallback(os.Getenv("LOG_LEVEL"), "info")),
		LogPretty: parseBool(os.Getenv("LOG_PRETTY"), false),
	}

	if raw := strings.TrimSpace(os.Getenv("UPSTREAM_RATE_PER_MINUTE")); raw != "" {
		rpm, err := strconv.Atoi(raw)
		if err != nil || rpm < 0 {
			return Config{}, fmt.Errorf("UPSTREAM_RATE_PER_MINUTE must be a non-negative integer, got %q", raw)
		}
		cfg.UpstreamRatePerMinute = rpm
	}

	if cfg.CacheURL != "" && !strings.HasPrefix(cfg.CacheURL, "redis://") && !strings.HasPrefix(cfg.CacheURL, "rediss://") {
		return Config{}, fmt.Errorf("CACHE_URL must be empty or a redis:// url, got %q", cfg.CacheURL)
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// positiveDuration parses a whole number of units, falling back to def units
// when the value is missing, malformed or not positive.
func positiveDuration(value string, def int, unit time.Duration) time.Duration {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return time.Duration(n) * unit
	}
	return time.Duration(def) * unit
}

func parseBool(value string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return b
}
