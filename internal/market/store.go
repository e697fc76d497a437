package market

import (
	"context"
	"time"
)

// Ledger is the narrow write surface a trade executes against. Inside
// InTrade every read locks the row it returns, so the whole order sequence
// is one atomic unit.
type Ledger interface {
	// CharacterByID returns current character state or ErrCharacterNotFound.
	CharacterByID(ctx context.Context, id string) (Character, error)
	SetCharacterPrice(ctx context.Context, id string, priceCents int64) error
	AppendPricePoint(ctx context.Context, characterID string, priceCents int64, at time.Time) error

	// GetOrCreateHolding is an idempotent upsert keyed on
	// (account, character); a fresh holding starts with zero shares.
	GetOrCreateHolding(ctx context.Context, accountID, characterID string) (Holding, error)
	SetHolding(ctx context.Context, holdingID string, shares, avgBuyPriceCents int64) error

	AppendTransaction(ctx context.Context, tx Transaction) error

	// Balance returns the current berry balance or ErrAccountNotFound.
	Balance(ctx context.Context, accountID string) (int64, error)
	// AdjustBalance atomically adds deltaCents (may be negative) and
	// returns the new balance. It fails if the balance would go negative.
	AdjustBalance(ctx context.Context, accountID string, deltaCents int64) (int64, error)

	// LastTradeAt reports the most recent transaction time for the
	// (account, character) pair, if any.
	LastTradeAt(ctx context.Context, accountID, characterID string) (time.Time, bool, error)
}

// Store is the full persistence surface. InTrade runs fn as a single
// atomic unit: either every mutation applies or none does. A retryable
// concurrent-update failure surfaces as ErrTxConflict; callers restart
// from their precondition checks. All other methods are display reads or
// bootstrap writes and need no trade-level locking.
type Store interface {
	Ledger

	InTrade(ctx context.Context, fn func(Ledger) error) error

	ListCharacters(ctx context.Context) ([]Character, error)
	CharacterBySlug(ctx context.Context, slug string) (Character, error)
	// PriceHistory returns up to limit samples in chronological order.
	PriceHistory(ctx context.Context, characterID string, limit int) ([]PricePoint, error)

	CreateAccount(ctx context.Context, p Profile) (Profile, error)
	Account(ctx context.Context, id string) (Profile, error)
	HoldingsFor(ctx context.Context, accountID string) ([]Holding, error)
	TransactionsFor(ctx context.Context, accountID string, limit int) ([]Transaction, error)

	// SeedCharacters inserts the given catalog only when it is empty.
	SeedCharacters(ctx context.Context, chars []Character) error
}
