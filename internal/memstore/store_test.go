package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"berrydex/internal/market"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	require.NoError(t, s.SeedCharacters(ctx, []market.Character{{
		ID:             "char-1",
		Name:           "Whisper",
		Slug:           "whisper",
		BasePriceCents: 20_000,
		Volatility:     2.2,
	}}))
	_, err := s.CreateAccount(ctx, market.Profile{ID: "acct-1", BerriesCents: 5000})
	require.NoError(t, err)
	return s
}

func TestGetOrCreateHoldingIdempotent(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	first, err := s.GetOrCreateHolding(ctx, "acct-1", "char-1")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Zero(t, first.Shares)

	second, err := s.GetOrCreateHolding(ctx, "acct-1", "char-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	other, err := s.GetOrCreateHolding(ctx, "acct-1", "char-2")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)
}

func TestAdjustBalanceRejectsOverdraft(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	_, err := s.AdjustBalance(ctx, "acct-1", -6000)
	require.ErrorIs(t, err, market.ErrInsufficientFunds)

	balance, err := s.Balance(ctx, "acct-1")
	require.NoError(t, err)
	require.Equal(t, int64(5000), balance)

	next, err := s.AdjustBalance(ctx, "acct-1", -5000)
	require.NoError(t, err)
	require.Zero(t, next)
}

func TestAdjustBalanceUnknownAccount(t *testing.T) {
	s := seeded(t)
	_, err := s.AdjustBalance(context.Background(), "ghost", 100)
	require.ErrorIs(t, err, market.ErrAccountNotFound)
}

func TestInTradeRollsBackOnError(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTrade(ctx, func(l market.Ledger) error {
		if err := l.SetCharacterPrice(ctx, "char-1", 25_000); err != nil {
			return err
		}
		if err := l.AppendPricePoint(ctx, "char-1", 25_000, time.Now()); err != nil {
			return err
		}
		if _, err := l.AdjustBalance(ctx, "acct-1", -1000); err != nil {
			return err
		}
		if err := l.AppendTransaction(ctx, market.Transaction{ID: "tx-1", AccountID: "acct-1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	ch, err := s.CharacterByID(ctx, "char-1")
	require.NoError(t, err)
	require.Equal(t, int64(20_000), ch.BasePriceCents)

	history, err := s.PriceHistory(ctx, "char-1", 0)
	require.NoError(t, err)
	require.Empty(t, history)

	balance, err := s.Balance(ctx, "acct-1")
	require.NoError(t, err)
	require.Equal(t, int64(5000), balance)

	txs, err := s.TransactionsFor(ctx, "acct-1", 0)
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestInTradeCommitsOnSuccess(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	err := s.InTrade(ctx, func(l market.Ledger) error {
		if err := l.SetCharacterPrice(ctx, "char-1", 21_000); err != nil {
			return err
		}
		_, err := l.AdjustBalance(ctx, "acct-1", 500)
		return err
	})
	require.NoError(t, err)

	ch, err := s.CharacterByID(ctx, "char-1")
	require.NoError(t, err)
	require.Equal(t, int64(21_000), ch.BasePriceCents)

	balance, err := s.Balance(ctx, "acct-1")
	require.NoError(t, err)
	require.Equal(t, int64(5500), balance)
}

func TestPriceHistoryLimitReturnsNewestTail(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendPricePoint(ctx, "char-1", int64(100*(i+1)), base.Add(time.Duration(i)*time.Minute)))
	}

	got, err := s.PriceHistory(ctx, "char-1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(400), got[0].PriceCents)
	require.Equal(t, int64(500), got[1].PriceCents)
}

func TestSeedCharactersOnlyWhenEmpty(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	require.NoError(t, s.SeedCharacters(ctx, []market.Character{{ID: "char-9", Slug: "nine", BasePriceCents: 1}}))

	_, err := s.CharacterByID(ctx, "char-9")
	require.ErrorIs(t, err, market.ErrCharacterNotFound)
}

func TestCharacterBySlug(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	ch, err := s.CharacterBySlug(ctx, "whisper")
	require.NoError(t, err)
	require.Equal(t, "char-1", ch.ID)

	_, err = s.CharacterBySlug(ctx, "missing")
	require.ErrorIs(t, err, market.ErrCharacterNotFound)
}
