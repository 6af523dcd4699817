package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hongminglow/cryptodesk-be/internal/models"
	"github.com/hongminglow/cryptodesk-be/internal/storage"
)

const favoriteColumns = `id, user_id, crypto_id, name, symbol, current_price, market_cap,
	price_change_24h, price_change_percentage_24h, image_url, created_at, updated_at`

// CreateFavorite inserts a favorite. created_at and updated_at are assigned here.
func (s *Store) CreateFavorite(ctx context.Context, fav models.FavoriteCrypto) (models.FavoriteCrypto, error) {
	const query = `
		INSERT INTO favorite_cryptos (user_id, crypto_id, name, symbol, current_price, market_cap,
			price_change_24h, price_change_percentage_24h, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + favoriteColumns
	now := s.timestamp()

	var marketCap sql.NullInt64
	if fav.MarketCap != nil {
		marketCap = sql.NullInt64{Int64: *fav.MarketCap, Valid: true}
	}
	var imageURL sql.NullString
	if fav.ImageURL != nil {
		imageURL = sql.NullString{String: *fav.ImageURL, Valid: true}
	}

	row := s.db.QueryRowContext(ctx, query,
		fav.UserID, fav.CryptoID, fav.Name, fav.Symbol,
		fav.CurrentPrice, marketCap, fav.PriceChange24h, fav.PriceChangePercentage24h,
		imageURL, now, now)
	created, err := scanFavorite(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.FavoriteCrypto{}, storage.ErrAlreadyExists
		}
		return models.FavoriteCrypto{}, err
	}
	return created, nil
}

// ListFavorites returns the user's favorites, newest first.
func (s *Store) ListFavorites(ctx context.Context, userID int64) ([]models.FavoriteCrypto, error) {
	const query = `SELECT ` + favoriteColumns + `
		FROM favorite_cryptos
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	favorites := make([]models.FavoriteCrypto, 0)
	for rows.Next() {
		fav, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorites = append(favorites, fav)
	}
	return favorites, rows.Err()
}

// FindFavorite fetches one favorite owned by userID.
func (s *Store) FindFavorite(ctx context.Context, userID, id int64) (models.FavoriteCrypto, error) {
	const query = `SELECT ` + favoriteColumns + ` FROM favorite_cryptos WHERE id = $1 AND user_id = $2`
	return scanFavorite(s.db.QueryRowContext(ctx, query, id, userID))
}

// FavoriteExists reports whether userID already pinned cryptoID.
func (s *Store) FavoriteExists(ctx context.Context, userID int64, cryptoID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM favorite_cryptos WHERE user_id = $1 AND crypto_id = $2)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, userID, cryptoID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return exists, nil
}

// FavoriteCryptoIDs returns the crypto ids pinned by userID.
func (s *Store) FavoriteCryptoIDs(ctx context.Context, userID int64) ([]string, error) {
	const query = `SELECT crypto_id FROM favorite_cryptos WHERE user_id = $1`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorite ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan favorite id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteFavorite removes a favorite owned by userID.
func (s *Store) DeleteFavorite(ctx context.Context, userID, id int64) error {
	const query = `DELETE FROM favorite_cryptos WHERE id = $1 AND user_id = $2`
	res, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFavorite(row scanner) (models.FavoriteCrypto, error) {
	var (
		fav       models.FavoriteCrypto
		marketCap sql.NullInt64
		imageURL  sql.NullString
	)
	err := row.Scan(&fav.ID, &fav.UserID, &fav.CryptoID, &fav.Name, &fav.Symbol,
		&fav.CurrentPrice, &marketCap, &fav.PriceChange24h, &fav.PriceChangePercentage24h,
		&imageURL, &fav.CreatedAt, &fav.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.FavoriteCrypto{}, storage.ErrNotFound
		}
		return models.FavoriteCrypto{}, err
	}
	if marketCap.Valid {
		v := marketCap.Int64
		fav.MarketCap = &v
	}
	if imageURL.Valid {
		v := imageURL.String
		fav.ImageURL = &v
	}
	return fav, nil
}
