// Package favorites manages each user's pinned assets.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hongminglow/cryptodesk-be/internal/apperr"
	"github.com/hongminglow/cryptodesk-be/internal/models"
	"github.com/hongminglow/cryptodesk-be/internal/models/dto"
	"github.com/hongminglow/cryptodesk-be/internal/storage"
)

const (
	maxCryptoIDLength = 100
	maxNameLength     = 200
	maxSymbolLength   = 20
	maxImageURLLength = 500

	msgNotAuthenticated = "User must be authenticated to add favorites"
	msgDuplicate        = "This cryptocurrency is already in your favorites"
	msgNotFound         = "Not found."
)

// Service implements favorites CRUD on top of a FavoriteStore.
type Service struct {
	store storage.FavoriteStore
	log   zerolog.Logger
}

func NewService(store storage.FavoriteStore, log zerolog.Logger) *Service {
	return &Service{store: store, log: log.With().Str("component", "favorites").Logger()}
}

// List returns the user's favorites, newest first.
func (s *Service) List(ctx context.Context, user *models.User) ([]models.FavoriteCrypto, error) {
	if user == nil {
		return nil, apperr.Unauthorized("Authentication credentials were not provided.")
	}
	favs, err := s.store.ListFavorites(ctx, user.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return favs, nil
}

// Create pins an asset for user. Numeric snapshot fields that cannot be
// coerced are stored as NULL; the rest of the record is still saved.
func (s *Service) Create(ctx context.Context, user *models.User, req dto.CreateFavoriteRequest) (models.FavoriteCrypto, error) {
	if user == nil {
		return models.FavoriteCrypto{}, apperr.Validation(msgNotAuthenticated)
	}

	fe := apperr.FieldErrors{}
	cryptoID := requiredString(fe, "crypto_id", req.CryptoID, maxCryptoIDLength)
	name := requiredString(fe, "name", req.Name, maxNameLength)
	symbol := requiredString(fe, "symbol", req.Symbol, maxSymbolLength)
	imageURL := optionalURL(fe, "image_url", req.ImageURL)
	if err := fe.Err(); err != nil {
		return models.FavoriteCrypto{}, err
	}

	log := s.log.With().Int64("user_id", user.ID).Str("crypto_id", cryptoID).Logger()

	exists, err := s.store.FavoriteExists(ctx, user.ID, cryptoID)
	if err != nil {
		return models.FavoriteCrypto{}, apperr.Internal(err)
	}
	if exists {
		log.Warn().Msg("crypto already in favorites")
		return models.FavoriteCrypto{}, apperr.Validation(msgDuplicate)
	}

	fav := models.FavoriteCrypto{
		UserID:   user.ID,
		CryptoID: cryptoID,
		Name:     name,
		Symbol:   symbol,
		ImageURL: imageURL,
	}
	fav.CurrentPrice = s.decimalField(log, "current_price", req.CurrentPrice, pricePlaces, priceIntDigits)
	fav.PriceChange24h = s.decimalField(log, "price_change_24h", req.PriceChange24h, changePlaces, changeIntDigits)
	fav.PriceChangePercentage24h = s.decimalField(log, "price_change_percentage_24h", req.PriceChangePercentage24h, changePlaces, changeIntDigits)
	if fav.MarketCap, err = coerceInt64(req.MarketCap); err != nil {
		log.Warn().Err(err).Str("field", "market_cap").RawJSON("value", rawOrNull(req.MarketCap)).Msg("storing null for unparseable value")
	}

	created, err := s.store.CreateFavorite(ctx, fav)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return models.FavoriteCrypto{}, apperr.Validation(msgDuplicate)
		}
		return models.FavoriteCrypto{}, apperr.Internal(err)
	}
	log.Info().Int64("favorite_id", created.ID).Msg("favorite saved")
	return created, nil
}

// Get returns one favorite owned by user.
func (s *Service) Get(ctx context.Context, user *models.User, id int64) (models.FavoriteCrypto, error) {
	if user == nil {
		return models.FavoriteCrypto{}, apperr.Unauthorized("Authentication credentials were not provided.")
	}
	fav, err := s.store.FindFavorite(ctx, user.ID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.FavoriteCrypto{}, apperr.NotFound(msgNotFound)
		}
		return models.FavoriteCrypto{}, apperr.Internal(err)
	}
	return fav, nil
}

// Delete removes one favorite owned by user.
func (s *Service) Delete(ctx context.Context, user *models.User, id int64) error {
	if user == nil {
		return apperr.Unauthorized("Authentication credentials were not provided.")
	}
	if err := s.store.DeleteFavorite(ctx, user.ID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound(msgNotFound)
		}
		return apperr.Internal(err)
	}
	s.log.Info().Int64("user_id", user.ID).Int64("favorite_id", id).Msg("favorite removed")
	return nil
}

func (s *Service) decimalField(log zerolog.Logger, field string, raw json.RawMessage, places int32, intDigits int) decimal.NullDecimal {
	v, err := coerceDecimal(raw, places, intDigits)
	if err != nil {
		log.Warn().Err(err).Str("field", field).RawJSON("value", rawOrNull(raw)).Msg("storing null for unparseable value")
	}
	return v
}

func requiredString(fe apperr.FieldErrors, field, value string, max int) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		fe.Add(field, "This field is required.")
	case utf8.RuneCountInString(value) > max:
		fe.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", max))
	}
	return value
}

func optionalURL(fe apperr.FieldErrors, field string, value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return &v
	}
	if utf8.RuneCountInString(v) > maxImageURLLength {
		fe.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", maxImageURLLength))
		return nil
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fe.Add(field, "Enter a valid URL.")
		return nil
	}
	return &v
}

func rawOrNull(raw json.RawMessage) []byte {
	if len(raw) == 0 || !json.Valid(raw) {
		return []byte("null")
	}
	return raw
}
