package market

import (
	"context"
	"fmt"
	"time"

	"github.com/hongminglow/cryptodesk-be/internal/models"
)

const defaultCacheKey = "crypto_data"

// Entry is a cached market list together with the moment it was fetched.
type Entry struct {
	Entries   []models.MarketEntry `msgpack:"entries"`
	FetchedAt time.Time            `msgpack:"fetched_at"`
}

// Cache stores market lists by key. A stale entry is still returned by Get;
// freshness is decided by the caller from FetchedAt.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
}

// Query describes one page of the upstream markets listing.
type Query struct {
	VSCurrency string
	Order      string
	PerPage    int
	Page       int
}

// DefaultQuery is the only listing the service requests.
var DefaultQuery = Query{
	VSCurrency: "usd",
	Order:      "market_cap_desc",
	PerPage:    100,
	Page:       1,
}

// CacheKey maps a query to its cache slot. The default query keeps the
// historical fixed key so existing cache contents stay valid.
func CacheKey(q Query) string {
	if q == DefaultQuery {
		return defaultCacheKey
	}
	return fmt.Sprintf("%s:%s:%s:%d:%d", defaultCacheKey, q.VSCurrency, q.Order, q.PerPage, q.Page)
}

func cloneEntries(in []models.MarketEntry) []models.MarketEntry {
	if in == nil {
		return nil
	}
	out := make([]models.MarketEntry, len(in))
	copy(out, in)
	return out
}
