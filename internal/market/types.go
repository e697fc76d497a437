package market

// CharacterView is a character plus derived last-change stats for display.
type CharacterView struct {
	Character
	LastPriceCents  int64   `json:"last_price_cents"`
	LastChangeCents int64   `json:"last_change_cents"`
	LastChangePct   float64 `json:"last_change_pct"`
}

// TradeResult is returned by Buy and Sell on success.
type TradeResult struct {
	Success           bool   `json:"success"`
	Side              Side   `json:"side"`
	CharacterID       string `json:"character_id"`
	Shares            int64  `json:"shares"`
	PriceBeforeCents  int64  `json:"price_before_cents"`
	PriceAfterCents   int64  `json:"price_after_cents"`
	NewShareCount     int64  `json:"new_share_count"`
	BalanceAfterCents int64  `json:"balance_after_cents"`
}

// Position is one valued holding in a portfolio.
type Position struct {
	Character         CharacterView `json:"character"`
	Shares            int64         `json:"shares"`
	AvgBuyPriceCents  int64         `json:"avg_buy_price_cents"`
	CurrentValueCents int64         `json:"current_value_cents"`
	InvestedCents     int64         `json:"invested_cents"`
	ProfitLossCents   int64         `json:"profit_loss_cents"`
	ProfitLossPct     float64       `json:"profit_loss_pct"`
}

// PortfolioSummary aggregates positions plus the liquid balance.
type PortfolioSummary struct {
	TotalCurrentValueCents int64   `json:"total_current_value_cents"`
	TotalInvestedCents     int64   `json:"total_invested_cents"`
	TotalProfitLossCents   int64   `json:"total_profit_loss_cents"`
	TotalProfitLossPct     float64 `json:"total_profit_loss_pct"`
	NetWorthCents          int64   `json:"net_worth_cents"`
}

// PortfolioView is the full dashboard payload for one account.
type PortfolioView struct {
	Account   Profile          `json:"account"`
	Positions []Position       `json:"positions"`
	Summary   PortfolioSummary `json:"summary"`
}
