package market

import (
	"context"
	"fmt"
)

// ComputePosition values one holding at the character's current price.
// Pure; callers guarantee non-negative shares per the Holding invariant.
func ComputePosition(ch CharacterView, h Holding) Position {
	currentValue := h.Shares * ch.BasePriceCents
	invested := h.Shares * h.AvgBuyPriceCents
	profitLoss := currentValue - invested

	pct := float64(0)
	if invested != 0 {
		pct = roundPct(float64(profitLoss) / float64(invested) * 100)
	}
	return Position{
		Character:         ch,
		Shares:            h.Shares,
		AvgBuyPriceCents:  h.AvgBuyPriceCents,
		CurrentValueCents: currentValue,
		InvestedCents:     invested,
		ProfitLossCents:   profitLoss,
		ProfitLossPct:     pct,
	}
}

// ComputeSummary aggregates positions and derives net worth as total
// position value plus the liquid balance. Pure.
func ComputeSummary(positions []Position, balanceCents int64) PortfolioSummary {
	var value, invested int64
	for _, p := range positions {
		value += p.CurrentValueCents
		invested += p.InvestedCents
	}
	profitLoss := value - invested
	pct := float64(0)
	if invested != 0 {
		pct = roundPct(float64(profitLoss) / float64(invested) * 100)
	}
	return PortfolioSummary{
		TotalCurrentValueCents: value,
		TotalInvestedCents:     invested,
		TotalProfitLossCents:   profitLoss,
		TotalProfitLossPct:     pct,
		NetWorthCents:          value + balanceCents,
	}
}

// Portfolio assembles the valuation dashboard for one account from display
// reads. Eventual consistency with the latest committed trade is fine here;
// no trade-level locking is taken. Holdings sold down to zero shares are
// omitted.
func (s *Service) Portfolio(ctx context.Context, accountID string) (PortfolioView, error) {
	account, err := s.store.Account(ctx, accountID)
	if err != nil {
		return PortfolioView{}, err
	}
	holdings, err := s.store.HoldingsFor(ctx, accountID)
	if err != nil {
		return PortfolioView{}, err
	}

	positions := make([]Position, 0, len(holdings))
	for _, h := range holdings {
		if h.Shares == 0 {
			continue
		}
		ch, err := s.store.CharacterByID(ctx, h.CharacterID)
		if err != nil {
			return PortfolioView{}, fmt.Errorf("holding %s: %w", h.ID, err)
		}
		history, err := s.store.PriceHistory(ctx, ch.ID, displayHistoryLimit)
		if err != nil {
			return PortfolioView{}, err
		}
		positions = append(positions, ComputePosition(DisplayPrice(ch, history), h))
	}

	return PortfolioView{
		Account:   account,
		Positions: positions,
		Summary:   ComputeSummary(positions, account.BerriesCents),
	}, nil
}

const displayHistoryLimit = 100
