package dto

import "encoding/json"

// CreateFavoriteRequest keeps numeric fields raw so each one can be coerced
// independently; a bad value nulls that field instead of failing the request.
type CreateFavoriteRequest struct {
	CryptoID                 string          `json:"crypto_id"`
	Name                     string          `json:"name"`
	Symbol                   string          `json:"symbol"`
	CurrentPrice             json.RawMessage `json:"current_price"`
	MarketCap                json.RawMessage `json:"market_cap"`
	PriceChange24h           json.RawMessage `json:"price_change_24h"`
	PriceChangePercentage24h json.RawMessage `json:"price_change_percentage_24h"`
	ImageURL                 *string         `json:"image_url"`
}
