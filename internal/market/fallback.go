package market

import "github.com/hongminglow/cryptodesk-be/internal/models"

// Fallback is the demo listing served when the provider is rate limiting and
// nothing is cached yet.
func Fallback() []models.MarketEntry {
	return []models.MarketEntry{
		{
			ID:                       "bitcoin",
			Symbol:                   "btc",
			Name:                     "Bitcoin",
			Image:                    "https://assets.coingecko.com/coins/images/1/large/bitcoin.png",
			CurrentPrice:             ptr(45000.0),
			MarketCap:                ptr(850000000000.0),
			MarketCapRank:            ptr(1),
			PriceChange24h:           ptr(500.0),
			PriceChangePercentage24h: ptr(1.12),
			TotalVolume:              ptr(25000000000.0),
			High24h:                  ptr(46000.0),
			Low24h:                   ptr(44000.0),
		},
		{
			ID:                       "ethereum",
			Symbol:                   "eth",
			Name:                     "Ethereum",
			Image:                    "https://assets.coingecko.com/coins/images/279/large/ethereum.png",
			CurrentPrice:             ptr(3000.0),
			MarketCap:                ptr(350000000000.0),
			MarketCapRank:            ptr(2),
			PriceChange24h:           ptr(50.0),
			PriceChangePercentage24h: ptr(1.67),
			TotalVolume:              ptr(15000000000.0),
			High24h:                  ptr(3100.0),
			Low24h:                   ptr(2900.0),
		},
	}
}

func ptr[T any](v T) *T { return &v }
