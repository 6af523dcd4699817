package sqlstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/cryptodesk-be/internal/models"
	"github.com/hongminglow/cryptodesk-be/internal/storage"
)

type tickingClock struct {
	at time.Time
}

func (c *tickingClock) now() time.Time {
	c.at = c.at.Add(time.Second)
	return c.at
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	clock := &tickingClock{at: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s, err := Open(context.Background(), "sqlite://:memory:", WithClock(clock.now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustUser(t *testing.T, s *Store, username string) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), models.User{
		Username:     username,
		Email:        username + "@example.com",
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return u
}

func TestOpen_RejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "mysql://localhost/db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database url scheme")

	_, err = Open(context.Background(), "sqlite://")
	require.Error(t, err)
}

func TestParseURL(t *testing.T) {
	dialect, driver, dsn, err := parseURL("postgresql://u:p@localhost:5432/app?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, dialect)
	assert.Equal(t, "pgx", driver)
	assert.Equal(t, "postgresql://u:p@localhost:5432/app?sslmode=disable", dsn)

	dialect, driver, dsn, err = parseURL("sqlite://data/app.db")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, dialect)
	assert.Equal(t, "sqlite", driver)
	assert.Contains(t, dsn, "data/app.db?")
	assert.Contains(t, dsn, "foreign_keys(1)")
	assert.Contains(t, dsn, "journal_mode(WAL)")
}

func TestUsers_CreateAndFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := mustUser(t, s, "alice")
	assert.NotZero(t, created.ID)
	assert.Equal(t, "alice@example.com", created.Email)
	assert.False(t, created.CreatedAt.IsZero())

	byName, err := s.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	assert.Equal(t, "hash", byName.PasswordHash)

	byID, err := s.FindUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = s.FindUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.CreateUser(ctx, models.User{Username: "alice", PasswordHash: "x"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestFavorites_RoundTripKeepsNullsAndDecimals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "alice")

	marketCap := int64(850000000000)
	image := "https://assets.coingecko.com/coins/images/1/large/bitcoin.png"
	created, err := s.CreateFavorite(ctx, models.FavoriteCrypto{
		UserID:         u.ID,
		CryptoID:       "bitcoin",
		Name:           "Bitcoin",
		Symbol:         "btc",
		CurrentPrice:   decimal.NewNullDecimal(decimal.RequireFromString("45000.12345678")),
		MarketCap:      &marketCap,
		PriceChange24h: decimal.NewNullDecimal(decimal.RequireFromString("500.25")),
		ImageURL:       &image,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := s.FindFavorite(ctx, u.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "45000.12345678", got.CurrentPrice.Decimal.String())
	require.NotNil(t, got.MarketCap)
	assert.Equal(t, marketCap, *got.MarketCap)
	assert.True(t, got.PriceChange24h.Valid)
	assert.False(t, got.PriceChangePercentage24h.Valid)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, image, *got.ImageURL)
}

func TestFavorites_UniquePerUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	fav := models.FavoriteCrypto{UserID: alice.ID, CryptoID: "bitcoin", Name: "Bitcoin", Symbol: "btc"}
	_, err := s.CreateFavorite(ctx, fav)
	require.NoError(t, err)

	_, err = s.CreateFavorite(ctx, fav)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	fav.UserID = bob.ID
	_, err = s.CreateFavorite(ctx, fav)
	assert.NoError(t, err, "another user may pin the same asset")

	exists, err := s.FavoriteExists(ctx, alice.ID, "bitcoin")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.FavoriteExists(ctx, alice.ID, "ethereum")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFavorites_ListNewestFirstAndScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	for _, id := range []string{"bitcoin", "ethereum", "solana"} {
		_, err := s.CreateFavorite(ctx, models.FavoriteCrypto{UserID: alice.ID, CryptoID: id, Name: id, Symbol: id[:3]})
		require.NoError(t, err)
	}
	_, err := s.CreateFavorite(ctx, models.FavoriteCrypto{UserID: bob.ID, CryptoID: "dogecoin", Name: "Dogecoin", Symbol: "doge"})
	require.NoError(t, err)

	list, err := s.ListFavorites(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"solana", "ethereum", "bitcoin"}, []string{list[0].CryptoID, list[1].CryptoID, list[2].CryptoID})

	ids, err := s.FavoriteCryptoIDs(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"dogecoin"}, ids)

	empty, err := s.ListFavorites(ctx, 9999)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestFavorites_CrossUserAccessIsNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	fav, err := s.CreateFavorite(ctx, models.FavoriteCrypto{UserID: alice.ID, CryptoID: "bitcoin", Name: "Bitcoin", Symbol: "btc"})
	require.NoError(t, err)

	_, err = s.FindFavorite(ctx, bob.ID, fav.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.DeleteFavorite(ctx, bob.ID, fav.ID), storage.ErrNotFound)

	require.NoError(t, s.DeleteFavorite(ctx, alice.ID, fav.ID))
	assert.ErrorIs(t, s.DeleteFavorite(ctx, alice.ID, fav.ID), storage.ErrNotFound)
}

func TestFavorites_CascadeOnUserDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	_, err := s.CreateFavorite(ctx, models.FavoriteCrypto{UserID: alice.ID, CryptoID: "bitcoin", Name: "Bitcoin", Symbol: "btc"})
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, alice.ID)
	require.NoError(t, err)

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorite_cryptos`).Scan(&n))
	assert.Zero(t, n)
}

func TestTokenBlacklist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "alice")

	listed, err := s.IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, listed)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.BlacklistToken(ctx, "jti-1", u.ID, exp))
	require.NoError(t, s.BlacklistToken(ctx, "jti-1", u.ID, exp), "blacklisting twice is a no-op")

	listed, err = s.IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, listed)
}

func TestOpen_SeparateMemoryDatabases(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)
	mustUser(t, a, "alice")

	_, err := b.FindUserByUsername(context.Background(), "alice")
	assert.ErrorIs(t, err, storage.ErrNotFound, fmt.Sprintf("dialect %s", b.Dialect()))
}
