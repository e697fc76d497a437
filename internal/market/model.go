package market

import (
	"errors"
	"math"
	"time"
)

const (
	// CentsPerBerry is the fixed-point scale for all berry amounts.
	CentsPerBerry = int64(100)

	// MinPriceCents is the floor for a character price: 1 berry.
	MinPriceCents = int64(100)
)

var (
	ErrInvalidShares      = errors.New("invalid share quantity")
	ErrCharacterNotFound  = errors.New("character not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInsufficientFunds  = errors.New("insufficient berries")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrTradeCooldown      = errors.New("trade cooldown active")
	ErrTxConflict         = errors.New("trade conflicted with a concurrent update, retry")
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Character is a tradeable catalog entry. BasePriceCents is the current
// market price and is mutated only through the trade path.
type Character struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	ImageURL       string    `json:"image_url"`
	Description    string    `json:"description"`
	BasePriceCents int64     `json:"base_price_cents"`
	Volatility     float64   `json:"volatility"`
	TotalShares    int64     `json:"total_shares"`
	CreatedAt      time.Time `json:"created_at"`
}

// PricePoint is an append-only price history sample.
type PricePoint struct {
	CharacterID string    `json:"character_id"`
	PriceCents  int64     `json:"price_cents"`
	At          time.Time `json:"at"`
}

type Profile struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	BerriesCents int64     `json:"berries_cents"`
	CreatedAt    time.Time `json:"created_at"`
}

// Holding is one account's position in one character. At most one holding
// exists per (account, character); shares never go negative.
type Holding struct {
	ID               string `json:"id"`
	AccountID        string `json:"account_id"`
	CharacterID      string `json:"character_id"`
	Shares           int64  `json:"shares"`
	AvgBuyPriceCents int64  `json:"avg_buy_price_cents"`
}

// Transaction is the immutable audit record of one executed order. The
// recorded price is the pre-trade price the order matched against.
type Transaction struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	CharacterID string    `json:"character_id"`
	Shares      int64     `json:"shares"`
	PriceCents  int64     `json:"price_cents"`
	Side        Side      `json:"side"`
	At          time.Time `json:"at"`
}

// MarketConfig is threaded explicitly into every pricing and trade call.
// There is no process-wide mutable default.
type MarketConfig struct {
	MinTradeShares       int64         `json:"min_trade_shares"`
	MaxTradeShares       int64         `json:"max_trade_shares"`
	TradeCooldown        time.Duration `json:"trade_cooldown"`
	StartingBalanceCents int64         `json:"starting_balance_cents"`
	PriceImpactPerShare  float64       `json:"price_impact_per_share"`
}

func DefaultMarketConfig() MarketConfig {
	return MarketConfig{
		MinTradeShares:       1,
		MaxTradeShares:       1_000,
		TradeCooldown:        10 * time.Second,
		StartingBalanceCents: 10_000 * CentsPerBerry,
		PriceImpactPerShare:  0.02,
	}
}

func BerriesToCents(v float64) int64 {
	return int64(math.Round(v * float64(CentsPerBerry)))
}

func CentsToBerries(v int64) float64 {
	return float64(v) / float64(CentsPerBerry)
}

// roundPct rounds a percentage to two decimal places, half away from zero.
func roundPct(v float64) float64 {
	return math.Round(v*100) / 100
}

// divideRounded divides total by q rounding to the nearest integer,
// half away from zero. q must be > 0.
func divideRounded(total, q int64) int64 {
	if q <= 0 {
		return 0
	}
	if total >= 0 {
		return (total + q/2) / q
	}
	return -((-total + q/2) / q)
}
