package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"berrydex/internal/market"
)

// Client is a thin HTTP client for the berrydex API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type charactersResponse struct {
	Characters []market.CharacterView `json:"characters"`
}

type transactionsResponse struct {
	Transactions []market.Transaction `json:"transactions"`
}

func (c *Client) Characters(ctx context.Context) ([]market.CharacterView, error) {
	var out charactersResponse
	if err := c.do(ctx, http.MethodGet, "/v1/characters", nil, &out); err != nil {
		return nil, err
	}
	return out.Characters, nil
}

func (c *Client) Character(ctx context.Context, slug string) (market.CharacterDetail, error) {
	var out market.CharacterDetail
	err := c.do(ctx, http.MethodGet, "/v1/characters/"+slug, nil, &out)
	return out, err
}

func (c *Client) CreateAccount(ctx context.Context, id, username string) (market.Profile, error) {
	var out market.Profile
	err := c.do(ctx, http.MethodPost, "/v1/accounts", map[string]string{
		"id":       id,
		"username": username,
	}, &out)
	return out, err
}

func (c *Client) Account(ctx context.Context, id string) (market.Profile, error) {
	var out market.Profile
	err := c.do(ctx, http.MethodGet, "/v1/accounts/"+id, nil, &out)
	return out, err
}

func (c *Client) Portfolio(ctx context.Context, id string) (market.PortfolioView, error) {
	var out market.PortfolioView
	err := c.do(ctx, http.MethodGet, "/v1/accounts/"+id+"/portfolio", nil, &out)
	return out, err
}

func (c *Client) Transactions(ctx context.Context, id string) ([]market.Transaction, error) {
	var out transactionsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+id+"/transactions", nil, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

func (c *Client) PlaceOrder(ctx context.Context, accountID, character string, side market.Side, shares int64) (market.TradeResult, error) {
	var out market.TradeResult
	err := c.do(ctx, http.MethodPost, "/v1/orders", map[string]any{
		"account_id": accountID,
		"character":  character,
		"side":       string(side),
		"shares":     shares,
	}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
