package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	maxTradeAttempts  = 8
	initialRetryDelay = 75 * time.Millisecond
	maxRetryDelay     = 1200 * time.Millisecond
)

// Service executes buy and sell orders against a Store and derives
// portfolio valuations. All money math is integer cents.
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store: store,
		log:   logger,
		now:   time.Now,
	}
}

// Buy executes a buy order for the given account and character. The cost is
// charged at the pre-trade price; the price moves afterwards. Preconditions
// are checked in order and the first failure aborts before any mutation.
func (s *Service) Buy(ctx context.Context, accountID, characterID string, shares int64, cfg MarketConfig) (TradeResult, error) {
	if shares < cfg.MinTradeShares {
		return TradeResult{}, fmt.Errorf("%w: minimum is %d", ErrInvalidShares, cfg.MinTradeShares)
	}
	if shares > cfg.MaxTradeShares {
		return TradeResult{}, fmt.Errorf("%w: maximum is %d", ErrInvalidShares, cfg.MaxTradeShares)
	}
	return s.executeWithRetry(ctx, func(l Ledger) (TradeResult, error) {
		return s.buyTx(ctx, l, accountID, characterID, shares, cfg)
	})
}

// Sell executes a sell order. Revenue is credited at the pre-trade price.
func (s *Service) Sell(ctx context.Context, accountID, characterID string, shares int64, cfg MarketConfig) (TradeResult, error) {
	if shares < cfg.MinTradeShares {
		return TradeResult{}, fmt.Errorf("%w: minimum is %d", ErrInvalidShares, cfg.MinTradeShares)
	}
	return s.executeWithRetry(ctx, func(l Ledger) (TradeResult, error) {
		return s.sellTx(ctx, l, accountID, characterID, shares, cfg)
	})
}

// executeWithRetry runs one order inside the store's atomic trade scope.
// Conflicts restart the order from its precondition checks; the retry
// budget is bounded and exhaustion surfaces ErrTxConflict.
func (s *Service) executeWithRetry(ctx context.Context, order func(Ledger) (TradeResult, error)) (TradeResult, error) {
	var result TradeResult
	delay := initialRetryDelay
	for attempt := 0; attempt < maxTradeAttempts; attempt++ {
		err := s.store.InTrade(ctx, func(l Ledger) error {
			var err error
			result, err = order(l)
			return err
		})
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrTxConflict) {
			return TradeResult{}, err
		}
		if attempt == maxTradeAttempts-1 {
			break
		}
		s.log.Debug("trade conflict, retrying", "attempt", attempt+1)
		if err := sleepWithContext(ctx, delay); err != nil {
			return TradeResult{}, err
		}
		if delay < maxRetryDelay {
			delay *= 2
		}
	}
	return TradeResult{}, ErrTxConflict
}

func (s *Service) buyTx(ctx context.Context, l Ledger, accountID, characterID string, shares int64, cfg MarketConfig) (TradeResult, error) {
	ch, err := l.CharacterByID(ctx, characterID)
	if err != nil {
		return TradeResult{}, err
	}
	if err := s.checkCooldown(ctx, l, accountID, characterID, cfg); err != nil {
		return TradeResult{}, err
	}

	priceBefore := ch.BasePriceCents
	cost := shares * priceBefore

	balance, err := l.Balance(ctx, accountID)
	if err != nil {
		return TradeResult{}, err
	}
	if balance < cost {
		return TradeResult{}, fmt.Errorf("%w: cost %d exceeds balance %d", ErrInsufficientFunds, cost, balance)
	}

	holding, err := l.GetOrCreateHolding(ctx, accountID, characterID)
	if err != nil {
		return TradeResult{}, err
	}

	newBalance, err := l.AdjustBalance(ctx, accountID, -cost)
	if err != nil {
		return TradeResult{}, err
	}

	now := s.now()
	priceAfter := NextPrice(priceBefore, ch.Volatility, shares, SideBuy, cfg)
	if err := l.SetCharacterPrice(ctx, characterID, priceAfter); err != nil {
		return TradeResult{}, err
	}
	if err := l.AppendPricePoint(ctx, characterID, priceAfter, now); err != nil {
		return TradeResult{}, err
	}

	newShares := holding.Shares + shares
	newAvg := divideRounded(holding.AvgBuyPriceCents*holding.Shares+priceBefore*shares, newShares)
	if err := l.SetHolding(ctx, holding.ID, newShares, newAvg); err != nil {
		return TradeResult{}, err
	}

	if err := l.AppendTransaction(ctx, Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		CharacterID: characterID,
		Shares:      shares,
		PriceCents:  priceBefore,
		Side:        SideBuy,
		At:          now,
	}); err != nil {
		return TradeResult{}, err
	}

	return TradeResult{
		Success:           true,
		Side:              SideBuy,
		CharacterID:       characterID,
		Shares:            shares,
		PriceBeforeCents:  priceBefore,
		PriceAfterCents:   priceAfter,
		NewShareCount:     newShares,
		BalanceAfterCents: newBalance,
	}, nil
}

func (s *Service) sellTx(ctx context.Context, l Ledger, accountID, characterID string, shares int64, cfg MarketConfig) (TradeResult, error) {
	ch, err := l.CharacterByID(ctx, characterID)
	if err != nil {
		return TradeResult{}, err
	}
	if err := s.checkCooldown(ctx, l, accountID, characterID, cfg); err != nil {
		return TradeResult{}, err
	}

	holding, err := l.GetOrCreateHolding(ctx, accountID, characterID)
	if err != nil {
		return TradeResult{}, err
	}
	if holding.Shares < shares {
		return TradeResult{}, fmt.Errorf("%w: have %d, want to sell %d", ErrInsufficientShares, holding.Shares, shares)
	}

	priceBefore := ch.BasePriceCents
	revenue := shares * priceBefore

	newBalance, err := l.AdjustBalance(ctx, accountID, revenue)
	if err != nil {
		return TradeResult{}, err
	}

	now := s.now()
	priceAfter := NextPrice(priceBefore, ch.Volatility, shares, SideSell, cfg)
	if err := l.SetCharacterPrice(ctx, characterID, priceAfter); err != nil {
		return TradeResult{}, err
	}
	if err := l.AppendPricePoint(ctx, characterID, priceAfter, now); err != nil {
		return TradeResult{}, err
	}

	newShares := holding.Shares - shares
	if err := l.SetHolding(ctx, holding.ID, newShares, holding.AvgBuyPriceCents); err != nil {
		return TradeResult{}, err
	}

	if err := l.AppendTransaction(ctx, Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		CharacterID: characterID,
		Shares:      shares,
		PriceCents:  priceBefore,
		Side:        SideSell,
		At:          now,
	}); err != nil {
		return TradeResult{}, err
	}

	return TradeResult{
		Success:           true,
		Side:              SideSell,
		CharacterID:       characterID,
		Shares:            shares,
		PriceBeforeCents:  priceBefore,
		PriceAfterCents:   priceAfter,
		NewShareCount:     newShares,
		BalanceAfterCents: newBalance,
	}, nil
}

func (s *Service) checkCooldown(ctx context.Context, l Ledger, accountID, characterID string, cfg MarketConfig) error {
	if cfg.TradeCooldown <= 0 {
		return nil
	}
	last, ok, err := l.LastTradeAt(ctx, accountID, characterID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	elapsed := s.now().Sub(last)
	if elapsed < cfg.TradeCooldown {
		return fmt.Errorf("%w: %s remaining", ErrTradeCooldown, (cfg.TradeCooldown - elapsed).Round(time.Second))
	}
	return nil
}

// EnsureAccount creates the profile with the configured starting balance if
// it does not exist yet, and returns the current profile either way.
func (s *Service) EnsureAccount(ctx context.Context, id, username string, cfg MarketConfig) (Profile, error) {
	if existing, err := s.store.Account(ctx, id); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrAccountNotFound) {
		return Profile{}, err
	}
	return s.store.CreateAccount(ctx, Profile{
		ID:           id,
		Username:     username,
		BerriesCents: cfg.StartingBalanceCents,
		CreatedAt:    s.now(),
	})
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
