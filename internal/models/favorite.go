package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Column scales for the snapshot decimals.
const (
	PricePlaces  = 8
	ChangePlaces = 2
)

// FavoriteCrypto is one user's pinned asset together with the market snapshot
// taken when it was pinned. Decimal fields serialize as strings at column scale.
type FavoriteCrypto struct {
	ID                       int64               `json:"id"`
	UserID                   int64               `json:"user"`
	CryptoID                 string              `json:"crypto_id"`
	Name                     string              `json:"name"`
	Symbol                   string              `json:"symbol"`
	CurrentPrice             decimal.NullDecimal `json:"current_price"`
	MarketCap                *int64              `json:"market_cap"`
	PriceChange24h           decimal.NullDecimal `json:"price_change_24h"`
	PriceChangePercentage24h decimal.NullDecimal `json:"price_change_percentage_24h"`
	ImageURL                 *string             `json:"image_url"`
	CreatedAt                time.Time           `json:"created_at"`
	UpdatedAt                time.Time           `json:"updated_at"`
}

// MarshalJSON renders the decimals with their column's fixed number of places.
func (f FavoriteCrypto) MarshalJSON() ([]byte, error) {
	type plain FavoriteCrypto
	return json.Marshal(struct {
		plain
		CurrentPrice             *string `json:"current_price"`
		PriceChange24h           *string `json:"price_change_24h"`
		PriceChangePercentage24h *string `json:"price_change_percentage_24h"`
	}{
		plain:                    plain(f),
		CurrentPrice:             fixed(f.CurrentPrice, PricePlaces),
		PriceChange24h:           fixed(f.PriceChange24h, ChangePlaces),
		PriceChangePercentage24h: fixed(f.PriceChangePercentage24h, ChangePlaces),
	})
}

func fixed(d decimal.NullDecimal, places int32) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(places)
	return &s
}
