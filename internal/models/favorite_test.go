package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteCrypto_MarshalJSONUsesColumnScale(t *testing.T) {
	marketCap := int64(850000000000)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fav := FavoriteCrypto{
		ID:             7,
		UserID:         3,
		CryptoID:       "bitcoin",
		Name:           "Bitcoin",
		Symbol:         "btc",
		CurrentPrice:   decimal.NewNullDecimal(decimal.RequireFromString("45000.1")),
		MarketCap:      &marketCap,
		PriceChange24h: decimal.NewNullDecimal(decimal.RequireFromString("500")),
		CreatedAt:      at,
		UpdatedAt:      at,
	}

	raw, err := json.Marshal(fav)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": 7,
		"user": 3,
		"crypto_id": "bitcoin",
		"name": "Bitcoin",
		"symbol": "btc",
		"current_price": "45000.10000000",
		"market_cap": 850000000000,
		"price_change_24h": "500.00",
		"price_change_percentage_24h": null,
		"image_url": null,
		"created_at": "2024-03-01T12:00:00Z",
		"updated_at": "2024-03-01T12:00:00Z"
	}`, string(raw))

	var back FavoriteCrypto
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, fav.CurrentPrice.Decimal.Equal(back.CurrentPrice.Decimal))
	assert.False(t, back.PriceChangePercentage24h.Valid)
}
