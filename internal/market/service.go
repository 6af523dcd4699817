package market

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hongminglow/cryptodesk-be/internal/apperr"
	"github.com/hongminglow/cryptodesk-be/internal/models"
)

// DefaultTTL is how long a fetched listing is served without asking upstream.
const DefaultTTL = 300 * time.Second

// Upstream is the market-data provider.
type Upstream interface {
	ListMarkets(ctx context.Context, q Query) ([]models.MarketEntry, error)
	Coin(ctx context.Context, id string) (models.MarketEntry, error)
}

// FavoriteLookup answers which assets a user has pinned.
type FavoriteLookup interface {
	FavoriteCryptoIDs(ctx context.Context, userID int64) ([]string, error)
	FavoriteExists(ctx context.Context, userID int64, cryptoID string) (bool, error)
}

// Service serves market data through the cache and annotates favorites.
type Service struct {
	upstream  Upstream
	cache     Cache
	favorites FavoriteLookup
	clock     Clock
	ttl       time.Duration
	log       zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewService(upstream Upstream, cache Cache, favorites FavoriteLookup, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		upstream:  upstream,
		cache:     cache,
		favorites: favorites,
		clock:     systemClock{},
		ttl:       DefaultTTL,
		log:       log.With().Str("component", "market").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the top markets and where they came from. A fresh cache entry
// short-circuits the upstream call; on upstream failure a stale entry is
// preferred, then the demo fallback (rate limiting only), then an error.
func (s *Service) List(ctx context.Context, user *models.User) ([]models.MarketEntry, models.MarketSource, error) {
	key := CacheKey(DefaultQuery)

	cached, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		hit = false
	}
	if hit && s.clock.Now().Sub(cached.FetchedAt) < s.ttl {
		s.log.Debug().Str("key", key).Msg("returning cached crypto data")
		return s.annotate(ctx, user, cached.Entries), models.SourceCache, nil
	}

	live, err := s.upstream.ListMarkets(ctx, DefaultQuery)
	switch {
	case err == nil:
		if err := s.cache.Set(ctx, key, Entry{Entries: live, FetchedAt: s.clock.Now()}); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
		s.log.Info().Int("count", len(live)).Msg("fetched fresh crypto data")
		return s.annotate(ctx, user, live), models.SourceLive, nil

	case errors.Is(err, ErrRateLimited):
		s.log.Warn().Err(err).Msg("upstream rate limited, serving cached or fallback data")
		if hit {
			return s.annotate(ctx, user, cached.Entries), models.SourceCache, nil
		}
		return s.annotate(ctx, user, Fallback()), models.SourceFallback, nil

	default:
		s.log.Error().Err(err).Msg("error fetching crypto data")
		if hit {
			return s.annotate(ctx, user, cached.Entries), models.SourceCache, nil
		}
		return nil, "", apperr.Unavailable("Failed to fetch crypto data", err)
	}
}

// Get fetches one asset live. It never reads or writes the cache.
func (s *Service) Get(ctx context.Context, id string, user *models.User) (models.MarketEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.MarketEntry{}, apperr.NotFound("Cryptocurrency not found")
	}

	entry, err := s.upstream.Coin(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return models.MarketEntry{}, apperr.NotFound("Cryptocurrency not found")
	case errors.Is(err, ErrRateLimited):
		return models.MarketEntry{}, apperr.RateLimited("API rate limit exceeded. Please try again later.", err)
	case err != nil:
		s.log.Error().Err(err).Str("asset_id", id).Msg("error fetching crypto detail")
		return models.MarketEntry{}, apperr.Unavailable("Failed to fetch crypto data", err)
	}

	entry.IsFavorite = false
	if user != nil {
		ok, err := s.favorites.FavoriteExists(ctx, user.ID, id)
		if err != nil {
			s.log.Error().Err(err).Int64("user_id", user.ID).Msg("error checking favorites")
		}
		entry.IsFavorite = err == nil && ok
	}
	return entry, nil
}

// annotate returns a copy of entries with IsFavorite set for user. Lookup
// failures leave every flag false.
func (s *Service) annotate(ctx context.Context, user *models.User, entries []models.MarketEntry) []models.MarketEntry {
	out := make([]models.MarketEntry, len(entries))
	copy(out, entries)
	for i := range out {
		out[i].IsFavorite = false
	}
	if user == nil {
		return out
	}

	ids, err := s.favorites.FavoriteCryptoIDs(ctx, user.ID)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("error checking favorites")
		return out
	}
	pinned := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		pinned[id] = struct{}{}
	}
	for i := range out {
		_, out[i].IsFavorite = pinned[out[i].ID]
	}
	return out
}
