package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hongminglow/cryptodesk-be/internal/models"
)

// browserUserAgent keeps the public API from treating us as a bot.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

var (
	// ErrRateLimited is returned when the provider answers 429 or the local limiter refuses the call.
	ErrRateLimited = errors.New("upstream rate limit exceeded")
	// ErrNotFound is returned when the provider does not know the asset.
	ErrNotFound = errors.New("asset not found upstream")
)

// Client talks to the CoinGecko v3 API.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a client. ratePerMinute <= 0 disables local throttling.
func NewClient(baseURL string, timeout time.Duration, ratePerMinute int, log zerolog.Logger) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "coingecko").Logger(),
	}
	if ratePerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), ratePerMinute)
	}
	return c
}

// ListMarkets fetches one page of the markets listing.
func (c *Client) ListMarkets(ctx context.Context, q Query) ([]models.MarketEntry, error) {
	params := url.Values{}
	params.Set("vs_currency", q.VSCurrency)
	params.Set("order", q.Order)
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("sparkline", "false")

	var entries []models.MarketEntry
	if err := c.getJSON(ctx, "/coins/markets", params, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.MarketEntry{}
	}
	return entries, nil
}

type coinResponse struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank *int   `json:"market_cap_rank"`
	Image         struct {
		Thumb string `json:"thumb"`
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"image"`
	MarketData struct {
		CurrentPrice             map[string]float64 `json:"current_price"`
		MarketCap                map[string]float64 `json:"market_cap"`
		TotalVolume              map[string]float64 `json:"total_volume"`
		High24h                  map[string]float64 `json:"high_24h"`
		Low24h                   map[string]float64 `json:"low_24h"`
		PriceChange24h           *float64           `json:"price_change_24h"`
		PriceChangePercentage24h *float64           `json:"price_change_percentage_24h"`
	} `json:"market_data"`
}

// Coin fetches one asset and projects its USD market data into a MarketEntry.
func (c *Client) Coin(ctx context.Context, id string) (models.MarketEntry, error) {
	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("community_data", "false")
	params.Set("developer_data", "false")
	params.Set("sparkline", "false")

	var coin coinResponse
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(id), params, &coin); err != nil {
		return models.MarketEntry{}, err
	}

	image := coin.Image.Large
	if image == "" {
		image = coin.Image.Small
	}
	md := coin.MarketData
	return models.MarketEntry{
		ID:                       coin.ID,
		Symbol:                   coin.Symbol,
		Name:                     coin.Name,
		Image:                    image,
		CurrentPrice:             usd(md.CurrentPrice),
		MarketCap:                usd(md.MarketCap),
		MarketCapRank:            coin.MarketCapRank,
		PriceChange24h:           md.PriceChange24h,
		PriceChangePercentage24h: md.PriceChangePercentage24h,
		TotalVolume:              usd(md.TotalVolume),
		High24h:                  usd(md.High24h),
		Low24h:                   usd(md.Low24h),
	}, nil
}

func usd(m map[string]float64) *float64 {
	v, ok := m["usd"]
	if !ok {
		return nil
	}
	return &v
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if c.limiter != nil && !c.limiter.Allow() {
		c.log.Warn().Str("path", path).Msg("local outbound limit reached")
		return fmt.Errorf("%w: local limiter", ErrRateLimited)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("upstream response")

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
