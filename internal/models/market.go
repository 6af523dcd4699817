package models

// MarketEntry is one asset's market snapshot as served by the upstream
// provider. It is never persisted; IsFavorite is computed per request.
type MarketEntry struct {
	ID                       string   `json:"id" msgpack:"id"`
	Symbol                   string   `json:"symbol" msgpack:"symbol"`
	Name                     string   `json:"name" msgpack:"name"`
	Image                    string   `json:"image" msgpack:"image"`
	CurrentPrice             *float64 `json:"current_price" msgpack:"current_price"`
	MarketCap                *float64 `json:"market_cap" msgpack:"market_cap"`
	MarketCapRank            *int     `json:"market_cap_rank" msgpack:"market_cap_rank"`
	PriceChange24h           *float64 `json:"price_change_24h" msgpack:"price_change_24h"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h" msgpack:"price_change_percentage_24h"`
	TotalVolume              *float64 `json:"total_volume" msgpack:"total_volume"`
	High24h                  *float64 `json:"high_24h" msgpack:"high_24h"`
	Low24h                   *float64 `json:"low_24h" msgpack:"low_24h"`
	IsFavorite               bool     `json:"is_favorite" msgpack:"-"`
}

// MarketSource tells where a market list came from.
type MarketSource string

const (
	SourceCache    MarketSource = "cache"
	SourceLive     MarketSource = "live"
	SourceFallback MarketSource = "fallback"
)
