package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/cryptodesk-be/internal/config"
	"github.com/hongminglow/cryptodesk-be/internal/market"
	"github.com/hongminglow/cryptodesk-be/internal/storage/sqlstore"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type upstreamStub struct {
	hits   atomic.Int32
	status atomic.Int32
}

func (u *upstreamStub) handler(w http.ResponseWriter, r *http.Request) {
	u.hits.Add(1)
	if s := int(u.status.Load()); s != 0 {
		w.WriteHeader(s)
		return
	}
	switch r.URL.Path {
	case "/coins/markets":
		_, _ = w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"b.png","current_price":64000,"market_cap":1260000000000,"market_cap_rank":1},
			{"id":"solana","symbol":"sol","name":"Solana","image":"s.png","current_price":150.25,"market_cap":70000000000,"market_cap_rank":5}
		]`))
	case "/coins/solana":
		_, _ = w.Write([]byte(`{"id":"solana","symbol":"sol","name":"Solana","market_cap_rank":5,
			"image":{"large":"s.png"},"market_data":{"current_price":{"usd":150.25}}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type apiEnv struct {
	t        *testing.T
	api      *httptest.Server
	upstream *upstreamStub
	clock    *testClock
}

func newAPI(t *testing.T, rotate bool) *apiEnv {
	t.Helper()
	ctx := context.Background()

	store, err := sqlstore.Open(ctx, "sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	stub := &upstreamStub{}
	upstream := httptest.NewServer(http.HandlerFunc(stub.handler))
	t.Cleanup(upstream.Close)

	clock := &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	cfg := config.Config{
		Port:                   "0",
		CORSOrigins:            []string{"http://localhost:3000"},
		JWTSecret:              "test-secret",
		JWTIssuer:              "cryptodesk-test",
		AccessTTL:              time.Hour,
		RefreshTTL:             24 * time.Hour,
		RotateRefreshTokens:    rotate,
		BlacklistAfterRotation: true,
		CacheTTL:               300 * time.Second,
	}
	srv := New(Deps{
		Config:        cfg,
		Log:           zerolog.Nop(),
		Store:         store,
		Cache:         market.NewMemoryCache(),
		Upstream:      market.NewClient(upstream.URL, 5*time.Second, 0, zerolog.Nop()),
		MarketOptions: []market.Option{market.WithClock(clock)},
	})
	api := httptest.NewServer(srv.Handler())
	t.Cleanup(api.Close)

	return &apiEnv{t: t, api: api, upstream: stub, clock: clock}
}

type envelope struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

func (e *apiEnv) do(method, path, token string, body any) (*http.Response, envelope) {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.api.URL+path, reader)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

type tokens struct {
	User struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (e *apiEnv) register(username string) tokens {
	e.t.Helper()
	resp, env := e.do(http.MethodPost, "/api/auth/register/", "", map[string]string{
		"username":   username,
		"password":   "Vq8#mLp2!zR",
		"password2":  "Vq8#mLp2!zR",
		"email":      username + "@example.com",
		"first_name": "Test",
		"last_name":  "User",
	})
	require.Equal(e.t, http.StatusCreated, resp.StatusCode, env.Message)
	var out tokens
	require.NoError(e.t, json.Unmarshal(env.Data, &out))
	return out
}

func TestAuthFlow(t *testing.T) {
	e := newAPI(t, false)

	reg := e.register("alice")
	assert.Equal(t, "alice", reg.User.Username)
	assert.NotEmpty(t, reg.Access)

	resp, env := e.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "Vq8#mLp2!zR"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login tokens
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, reg.User.ID, login.User.ID)

	resp, wrong := e.do(http.MethodPost, "/api/auth/login/", "", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, unknown := e.do(http.MethodPost, "/api/auth/login/", "", map[string]string{"username": "nobody", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, wrong, unknown)
	assert.Equal(t, "Invalid credentials", wrong.Message)

	resp, env = e.do(http.MethodPost, "/api/auth/refresh/", "", map[string]string{"refresh": reg.Refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var refreshed map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &refreshed))
	assert.NotEmpty(t, refreshed["access"])
	assert.NotContains(t, refreshed, "refresh")
}

func TestRegister_Mismatch(t *testing.T) {
	e := newAPI(t, false)

	resp, env := e.do(http.MethodPost, "/api/auth/register/", "", map[string]string{
		"username": "bob", "password": "Vq8#mLp2!zR", "password2": "Vq8#mLp2!zX",
		"email": "bob@example.com", "first_name": "Bob", "last_name": "B",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, map[string][]string{"password": {"Password fields didn't match."}}, env.Errors)

	resp, _ = e.do(http.MethodPost, "/api/auth/login/", "", map[string]string{"username": "bob", "password": "Vq8#mLp2!zR"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "no user row was created")
}

func TestRefresh_RotationRejectsReuse(t *testing.T) {
	e := newAPI(t, true)
	reg := e.register("carol")

	resp, env := e.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh": reg.Refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rotated map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &rotated))
	assert.NotEmpty(t, rotated["refresh"])

	resp, env = e.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh": reg.Refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Token is blacklisted", env.Message)
}

func TestCryptos_CacheAndAnnotation(t *testing.T) {
	e := newAPI(t, false)
	alice := e.register("alice")

	resp, _ := e.do(http.MethodPost, "/api/favorites/", alice.Access, map[string]any{
		"crypto_id": "solana", "name": "Solana", "symbol": "sol", "current_price": "150.25",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := e.do(http.MethodGet, "/api/cryptos/", alice.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "live", resp.Header.Get("X-Data-Source"))
	var entries []struct {
		ID         string `json:"id"`
		IsFavorite bool   `json:"is_favorite"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 2)
	assert.False(t, entries[0].IsFavorite)
	assert.True(t, entries[1].IsFavorite)

	resp, env = e.do(http.MethodGet, "/api/cryptos", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cache", resp.Header.Get("X-Data-Source"))
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	assert.False(t, entries[1].IsFavorite)
	assert.Equal(t, int32(1), e.upstream.hits.Load())

	e.clock.Advance(301 * time.Second)
	resp, _ = e.do(http.MethodGet, "/api/cryptos", "", nil)
	assert.Equal(t, "live", resp.Header.Get("X-Data-Source"))
	assert.Equal(t, int32(2), e.upstream.hits.Load())
}

func TestCryptos_RateLimitedFallback(t *testing.T) {
	e := newAPI(t, false)
	e.upstream.status.Store(http.StatusTooManyRequests)

	resp, env := e.do(http.MethodGet, "/api/cryptos/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fallback", resp.Header.Get("X-Data-Source"))
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "bitcoin", entries[0]["id"])
	assert.Equal(t, "ethereum", entries[1]["id"])
	assert.Equal(t, false, entries[0]["is_favorite"])

	resp, _ = e.do(http.MethodGet, "/api/cryptos/solana/", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestCryptos_UnavailableWithoutCache(t *testing.T) {
	e := newAPI(t, false)
	e.upstream.status.Store(http.StatusBadGateway)

	resp, env := e.do(http.MethodGet, "/api/cryptos/", "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to fetch crypto data", env.Message)
}

func TestCryptoDetail(t *testing.T) {
	e := newAPI(t, false)

	resp, env := e.do(http.MethodGet, "/api/cryptos/solana", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, "solana", entry["id"])
	assert.Equal(t, 150.25, entry["current_price"])
	assert.Equal(t, false, entry["is_favorite"])

	resp, _ = e.do(http.MethodGet, "/api/cryptos/not-a-coin", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFavorites_CRUDAndIsolation(t *testing.T) {
	e := newAPI(t, false)
	alice := e.register("alice")
	bob := e.register("bob")

	resp, env := e.do(http.MethodPost, "/api/favorites/", alice.Access, map[string]any{
		"crypto_id": "bitcoin", "name": "Bitcoin", "symbol": "btc",
		"current_price": 64000.123456789, "market_cap": "1260000000000.9",
		"price_change_24h": "abc", "price_change_percentage_24h": 2.5, "user": bob.User.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	var fav map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &fav))
	assert.EqualValues(t, alice.User.ID, fav["user"])
	assert.Equal(t, "64000.12345679", fav["current_price"])
	assert.EqualValues(t, 1260000000000, fav["market_cap"])
	assert.Nil(t, fav["price_change_24h"])
	assert.Equal(t, "2.50", fav["price_change_percentage_24h"])
	id := int64(fav["id"].(float64))

	resp, env = e.do(http.MethodPost, "/api/favorites/", alice.Access, map[string]any{
		"crypto_id": "bitcoin", "name": "Bitcoin", "symbol": "btc",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "This cryptocurrency is already in your favorites", env.Message)

	resp, env = e.do(http.MethodGet, "/api/favorites", bob.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(env.Data))

	path := "/api/favorites/" + jsonNumber(id) + "/"
	resp, _ = e.do(http.MethodGet, path, bob.Access, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = e.do(http.MethodDelete, path, bob.Access, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(http.MethodGet, path, alice.Access, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(http.MethodDelete, path, alice.Access, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(http.MethodGet, path, alice.Access, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(http.MethodGet, "/api/favorites/abc/", alice.Access, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFavorites_RequireAuth(t *testing.T) {
	e := newAPI(t, false)

	resp, env := e.do(http.MethodGet, "/api/favorites/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Authentication credentials were not provided.", env.Message)

	resp, _ = e.do(http.MethodGet, "/api/favorites/", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(http.MethodGet, "/api/cryptos/", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "a bad token is rejected even on public routes")
}

func TestHealth(t *testing.T) {
	e := newAPI(t, false)

	resp, env := e.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, map[string]string{"database": "ok", "cache": "ok"}, report.Checks)
}

func TestUnknownRoute(t *testing.T) {
	e := newAPI(t, false)

	resp, env := e.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, http.StatusNotFound, env.Code)
}

func jsonNumber(n int64) string {
	raw, _ := json.Marshal(n)
	return string(raw)
}
