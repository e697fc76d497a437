package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"berrydex/internal/market"
)

func TestClientCharacters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/characters", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"characters": []market.CharacterView{
				{Character: market.Character{ID: "c1", Slug: "whisper"}, LastPriceCents: 20_000},
			},
		})
	}))
	defer srv.Close()

	chars, err := NewClient(srv.URL).Characters(context.Background())
	require.NoError(t, err)
	require.Len(t, chars, 1)
	require.Equal(t, "whisper", chars[0].Slug)
	require.Equal(t, int64(20_000), chars[0].LastPriceCents)
}

func TestClientPlaceOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/orders", r.URL.Path)

		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "acct-1", in["account_id"])
		require.Equal(t, "whisper", in["character"])
		require.Equal(t, "BUY", in["side"])
		require.Equal(t, float64(3), in["shares"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(market.TradeResult{
			Success:          true,
			Side:             market.SideBuy,
			Shares:           3,
			PriceBeforeCents: 20_000,
			PriceAfterCents:  20_132,
		})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).PlaceOrder(context.Background(), "acct-1", "whisper", market.SideBuy, 3)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, int64(20_132), res.PriceAfterCents)
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "insufficient berries"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).PlaceOrder(context.Background(), "acct-1", "whisper", market.SideBuy, 3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "api status 400")
	require.Contains(t, err.Error(), "insufficient berries")
}

func TestClientTrimsBaseURL(t *testing.T) {
	c := NewClient("http://example.com///")
	require.Equal(t, "http://example.com", c.baseURL)
}
