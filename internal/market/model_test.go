package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBerriesCentsConversion(t *testing.T) {
	require.Equal(t, int64(1000), BerriesToCents(10))
	require.Equal(t, int64(1050), BerriesToCents(10.5))
	require.Equal(t, int64(1), BerriesToCents(0.005))
	require.Equal(t, int64(0), BerriesToCents(0))

	require.Equal(t, 10.0, CentsToBerries(1000))
	require.Equal(t, 0.01, CentsToBerries(1))
}

func TestDivideRounded(t *testing.T) {
	tests := []struct {
		total, q, want int64
	}{
		{10, 2, 5},
		{7, 2, 4},  // rounds half away from zero
		{-7, 2, -4},
		{9, 4, 2},
		{11, 4, 3},
		{0, 5, 0},
		{5, 0, 0}, // guarded
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, divideRounded(tt.total, tt.q), "divideRounded(%d, %d)", tt.total, tt.q)
	}
}

func TestRoundPct(t *testing.T) {
	require.Equal(t, 1.0, roundPct(1.001))
	require.Equal(t, 1.01, roundPct(1.006))
	require.Equal(t, -2.5, roundPct(-2.499999))
}

func TestDefaultMarketConfig(t *testing.T) {
	cfg := DefaultMarketConfig()
	require.Equal(t, int64(1), cfg.MinTradeShares)
	require.Equal(t, int64(1000), cfg.MaxTradeShares)
	require.Equal(t, 10*time.Second, cfg.TradeCooldown)
	require.Equal(t, int64(1_000_000), cfg.StartingBalanceCents)
	require.Equal(t, 0.02, cfg.PriceImpactPerShare)
}
