package market

import "math"

// NextPrice computes the post-trade price for a character. The impact of a
// trade is shares * volatility * PriceImpactPerShare berries: buys push the
// price up, sells push it down. The result is floored at MinPriceCents.
// Pure; validation of shares is the caller's responsibility.
func NextPrice(currentCents int64, volatility float64, shares int64, side Side, cfg MarketConfig) int64 {
	impact := float64(shares) * volatility * cfg.PriceImpactPerShare
	impactCents := int64(math.Round(impact * float64(CentsPerBerry)))

	next := currentCents
	if side == SideSell {
		next -= impactCents
	} else {
		next += impactCents
	}
	if next < MinPriceCents {
		next = MinPriceCents
	}
	return next
}

// PriceChange returns the absolute and percentage move between two price
// samples. Percentage is zero when the previous price is zero.
func PriceChange(latestCents, previousCents int64) (diffCents int64, pct float64) {
	diffCents = latestCents - previousCents
	if previousCents == 0 {
		return diffCents, 0
	}
	return diffCents, roundPct(float64(diffCents) / float64(previousCents) * 100)
}

// DisplayPrice enriches a character with last-change stats derived from its
// chronologically ordered price history. With fewer than two samples the
// change fields are zero and the display price is the current price. Read
// side only; never fails.
func DisplayPrice(ch Character, history []PricePoint) CharacterView {
	view := CharacterView{
		Character:      ch,
		LastPriceCents: ch.BasePriceCents,
	}
	if len(history) < 2 {
		return view
	}
	latest := history[len(history)-1].PriceCents
	previous := history[len(history)-2].PriceCents
	view.LastPriceCents = latest
	view.LastChangeCents, view.LastChangePct = PriceChange(latest, previous)
	return view
}
