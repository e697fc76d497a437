package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"berrydex/internal/api"
	"berrydex/internal/config"
	"berrydex/internal/market"
	"berrydex/internal/memstore"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memstore.New()
	require.NoError(t, store.SeedCharacters(context.Background(), []market.Character{
		{
			ID:             "char-1",
			Name:           "Captain Marrow",
			Slug:           "captain-marrow",
			BasePriceCents: 1000,
			Volatility:     1.0,
			TotalShares:    50_000,
			CreatedAt:      time.Now(),
		},
		{
			ID:             "char-2",
			Name:           "Whisper",
			Slug:           "whisper",
			BasePriceCents: 20_000,
			Volatility:     2.2,
			TotalShares:    25_000,
			CreatedAt:      time.Now(),
		},
	}))

	cfg := config.APIConfig{
		RatePerSecond: 1000,
		RateBurst:     1000,
		Market: market.MarketConfig{
			MinTradeShares:       1,
			MaxTradeShares:       1000,
			TradeCooldown:        0,
			StartingBalanceCents: 10_000,
			PriceImpactPerShare:  0.02,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(api.New(cfg, logger, market.NewService(store, logger)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createAccount(t *testing.T, base, id string) market.Profile {
	t.Helper()
	var profile market.Profile
	status := doJSON(t, http.MethodPost, base+"/v1/accounts", map[string]string{"id": id, "username": "tester"}, &profile)
	require.Equal(t, http.StatusCreated, status)
	return profile
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	var out map[string]any
	status := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil, &out)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, out["ok"])
}

func TestCreateAccountAndFetch(t *testing.T) {
	srv := newTestServer(t)
	profile := createAccount(t, srv.URL, "acct-1")
	require.Equal(t, "acct-1", profile.ID)
	require.Equal(t, int64(10_000), profile.BerriesCents)

	var fetched market.Profile
	status := doJSON(t, http.MethodGet, srv.URL+"/v1/accounts/acct-1", nil, &fetched)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, profile.ID, fetched.ID)
}

func TestCreateAccountMissingID(t *testing.T) {
	srv := newTestServer(t)
	var out map[string]any
	status := doJSON(t, http.MethodPost, srv.URL+"/v1/accounts", map[string]string{"username": "x"}, &out)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, out["error"], "account id")
}

func TestListCharacters(t *testing.T) {
	srv := newTestServer(t)
	var out struct {
		Characters []market.CharacterView `json:"characters"`
	}
	status := doJSON(t, http.MethodGet, srv.URL+"/v1/characters", nil, &out)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, out.Characters, 2)
}

func TestCharacterDetailNotFound(t *testing.T) {
	srv := newTestServer(t)
	status := doJSON(t, http.MethodGet, srv.URL+"/v1/characters/nobody", nil, nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestPlaceBuyOrder(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv.URL, "acct-1")

	var result market.TradeResult
	status := doJSON(t, http.MethodPost, srv.URL+"/v1/orders", map[string]any{
		"account_id": "acct-1",
		"character":  "captain-marrow",
		"side":       "BUY",
		"shares":     5,
	}, &result)
	require.Equal(t, http.StatusOK, status)
	require.True(t, result.Success)
	require.Equal(t, int64(1000), result.PriceBeforeCents)
	require.Equal(t, int64(1010), result.PriceAfterCents)
	require.Equal(t, int64(5000), result.BalanceAfterCents)

	var detail market.CharacterDetail
	status = doJSON(t, http.MethodGet, srv.URL+"/v1/characters/captain-marrow", nil, &detail)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, int64(1010), detail.LastPriceCents)
}

func TestOrderSideIsCaseInsensitive(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv.URL, "acct-1")

	var result market.TradeResult
	status := doJSON(t, http.MethodPost, srv.URL+"/v1/orders", map[string]any{
		"account_id": "acct-1",
		"character":  "captain-marrow",
		"side":       "buy",
		"shares":     1,
	}, &result)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, market.SideBuy, result.Side)
}

func TestOrderRejectsBadSide(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv.URL, "acct-1")

	var out map[string]any
	status := doJSON(t, http.MethodPost, srv.URL+"/v1/orders", map[string]any{
		"account_id": "acct-1",
		"character":  "captain-marrow",
		"side":       "HOLD",
		"shares":     1,
	}, &out)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, out["error"], "side")
}

func TestOrderUnknownCharacter(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv.URL, "acct-1")

	status := doJSON(t, http.MethodPost, srv.URL+"/v1/orders", map[string]any{
		"account_id": "acct-1",
		"character":  "nobody",
		"side":       "BUY",
		"shares":     1,
	}, nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestOrderInsufficientFunds(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv.URL, "acct-1")

	// 1 share of Whisper costs 200 berries; balance is 100.
	var out map[string]any
	status := doJSON(t, http.MethodPost, srv.URL+"/v1/orders", map[string]any{
		"account_id": "acct-1",
		"character":  "whisper",
		"side":       "BUY",
		"shares":     1,
	}, &out)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, out["error"], "insufficient berries")
}

func TestOrderSellWithoutShares(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv.URL, "acct-1")

	status := doJSON(t, http.MethodPost, srv.URL+"/v1/orders", map[string]any{
		"account_id": "acct-1",
		"character":  "captain-marrow",
		"side":       "SELL",
		"shares":     1,
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestOrderRejectsUnknownFields(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv.URL, "acct-1")

	status := doJSON(t, http.MethodPost, srv.URL+"/v1/orders", map[string]any{
		"account_id": "acct-1",
		"character":  "captain-marrow",
		"side":       "BUY",
		"shares":     1,
		"surprise":   true,
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestPortfolioEndpoint(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv.URL, "acct-1")

	status := doJSON(t, http.MethodPost, srv.URL+"/v1/orders", map[string]any{
		"account_id": "acct-1",
		"character":  "captain-marrow",
		"side":       "BUY",
		"shares":     5,
	}, nil)
	require.Equal(t, http.StatusOK, status)

	var view market.PortfolioView
	status = doJSON(t, http.MethodGet, srv.URL+"/v1/accounts/acct-1/portfolio", nil, &view)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, view.Positions, 1)
	require.Equal(t, int64(5050), view.Positions[0].CurrentValueCents)
	require.Equal(t, int64(10_050), view.Summary.NetWorthCents)
}

func TestPortfolioUnknownAccount(t *testing.T) {
	srv := newTestServer(t)
	status := doJSON(t, http.MethodGet, srv.URL+"/v1/accounts/ghost/portfolio", nil, nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestTransactionsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv.URL, "acct-1")

	for _, shares := range []int{2, 3} {
		status := doJSON(t, http.MethodPost, srv.URL+"/v1/orders", map[string]any{
			"account_id": "acct-1",
			"character":  "captain-marrow",
			"side":       "BUY",
			"shares":     shares,
		}, nil)
		require.Equal(t, http.StatusOK, status)
	}

	var out struct {
		Transactions []market.Transaction `json:"transactions"`
	}
	status := doJSON(t, http.MethodGet, srv.URL+"/v1/accounts/acct-1/transactions", nil, &out)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, out.Transactions, 2)
	require.Equal(t, int64(3), out.Transactions[0].Shares, "newest first")
}

func TestTradeCooldownSurfacesAs429(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.SeedCharacters(context.Background(), []market.Character{{
		ID:             "char-1",
		Name:           "Captain Marrow",
		Slug:           "captain-marrow",
		BasePriceCents: 1000,
		Volatility:     1.0,
	}}))
	cfg := config.APIConfig{
		RatePerSecond: 1000,
		RateBurst:     1000,
		Market: market.MarketConfig{
			MinTradeShares:       1,
			MaxTradeShares:       1000,
			TradeCooldown:        time.Minute,
			StartingBalanceCents: 10_000,
			PriceImpactPerShare:  0.02,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(api.New(cfg, logger, market.NewService(store, logger)).Handler())
	t.Cleanup(srv.Close)

	createAccount(t, srv.URL, "acct-1")
	order := map[string]any{
		"account_id": "acct-1",
		"character":  "captain-marrow",
		"side":       "BUY",
		"shares":     1,
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/v1/orders", order, nil))
	require.Equal(t, http.StatusTooManyRequests, doJSON(t, http.MethodPost, srv.URL+"/v1/orders", order, nil))
}
