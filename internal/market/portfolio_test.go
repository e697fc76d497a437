package market

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputePosition(t *testing.T) {
	ch := CharacterView{
		Character:      Character{ID: "c1"},
		LastPriceCents: 1010,
	}
	ch.BasePriceCents = 1010
	h := Holding{ID: "h1", CharacterID: "c1", Shares: 5, AvgBuyPriceCents: 1000}

	p := ComputePosition(ch, h)
	require.Equal(t, int64(5050), p.CurrentValueCents)
	require.Equal(t, int64(5000), p.InvestedCents)
	require.Equal(t, int64(50), p.ProfitLossCents)
	require.Equal(t, 1.0, p.ProfitLossPct)
}

func TestComputePositionZeroInvested(t *testing.T) {
	ch := CharacterView{Character: Character{ID: "c1", BasePriceCents: 500}}
	h := Holding{ID: "h1", CharacterID: "c1", Shares: 2, AvgBuyPriceCents: 0}

	p := ComputePosition(ch, h)
	require.Equal(t, int64(1000), p.CurrentValueCents)
	require.Zero(t, p.InvestedCents)
	require.Equal(t, int64(1000), p.ProfitLossCents)
	require.Zero(t, p.ProfitLossPct)
}

func TestComputePositionIsPure(t *testing.T) {
	ch := CharacterView{Character: Character{ID: "c1", BasePriceCents: 1200}}
	h := Holding{ID: "h1", CharacterID: "c1", Shares: 3, AvgBuyPriceCents: 1000}

	first := ComputePosition(ch, h)
	second := ComputePosition(ch, h)
	require.Equal(t, first, second)
	require.Equal(t, int64(3), h.Shares, "input holding must not be mutated")
}

func TestComputeSummary(t *testing.T) {
	positions := []Position{
		{CurrentValueCents: 5050, InvestedCents: 5000},
		{CurrentValueCents: 2000, InvestedCents: 2500},
	}
	sum := ComputeSummary(positions, 3000)
	require.Equal(t, int64(7050), sum.TotalCurrentValueCents)
	require.Equal(t, int64(7500), sum.TotalInvestedCents)
	require.Equal(t, int64(-450), sum.TotalProfitLossCents)
	require.Equal(t, -6.0, sum.TotalProfitLossPct)
	require.Equal(t, int64(10050), sum.NetWorthCents)
}

func TestComputeSummaryEmpty(t *testing.T) {
	sum := ComputeSummary(nil, 4200)
	require.Zero(t, sum.TotalCurrentValueCents)
	require.Zero(t, sum.TotalInvestedCents)
	require.Zero(t, sum.TotalProfitLossCents)
	require.Zero(t, sum.TotalProfitLossPct)
	require.Equal(t, int64(4200), sum.NetWorthCents)
}
