package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hongminglow/cryptodesk-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures user persistence needed by the auth gateway.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByID(ctx context.Context, id int64) (models.User, error)
	FindUserByUsername(ctx context.Context, username string) (models.User, error)
}

// FavoriteStore captures favorite persistence. Every read and delete is scoped
// to the owning user; a row owned by someone else behaves as missing.
type FavoriteStore interface {
	CreateFavorite(ctx context.Context, fav models.FavoriteCrypto) (models.FavoriteCrypto, error)
	ListFavorites(ctx context.Context, userID int64) ([]models.FavoriteCrypto, error)
	FindFavorite(ctx context.Context, userID, id int64) (models.FavoriteCrypto, error)
	FavoriteExists(ctx context.Context, userID int64, cryptoID string) (bool, error)
	FavoriteCryptoIDs(ctx context.Context, userID int64) ([]string, error)
	DeleteFavorite(ctx context.Context, userID, id int64) error
}

// TokenBlacklist records refresh token ids that must no longer be accepted.
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}
