// Package postgres implements market.Store on pgx. Trade scopes run as
// serializable transactions with row locks on the character, profile, and
// holding rows they touch; serialization failures surface as
// market.ErrTxConflict so the executor can retry.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"berrydex/internal/market"
)

//go:embed schema.sql
var schemaSQL string

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Store struct {
	ledger
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		ledger: ledger{q: pool},
		pool:   pool,
	}
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InTrade runs fn inside one serializable transaction. The ledger handed
// to fn locks every row it reads, so the order's read-modify-write
// sequence cannot interleave with a concurrent order on the same rows.
func (s *Store) InTrade(ctx context.Context, fn func(market.Ledger) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin trade: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ledger{q: tx, locking: true}); err != nil {
		if isSerializationFailure(err) {
			return market.ErrTxConflict
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return market.ErrTxConflict
		}
		return fmt.Errorf("commit trade: %w", err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

// ledger serves both the pool (display reads) and a trade transaction
// (locking reads).
type ledger struct {
	q       querier
	locking bool
}

func (l ledger) forUpdate() string {
	if l.locking {
		return " FOR UPDATE"
	}
	return ""
}

const characterColumns = `id, name, slug, image_url, description, base_price_cents, volatility, total_shares, created_at`

func (l ledger) CharacterByID(ctx context.Context, id string) (market.Character, error) {
	var ch market.Character
	err := l.q.QueryRow(ctx, `
		SELECT `+characterColumns+`
		FROM characters
		WHERE id = $1`+l.forUpdate(),
		id,
	).Scan(&ch.ID, &ch.Name, &ch.Slug, &ch.ImageURL, &ch.Description,
		&ch.BasePriceCents, &ch.Volatility, &ch.TotalShares, &ch.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Character{}, market.ErrCharacterNotFound
	}
	if err != nil {
		return market.Character{}, fmt.Errorf("character by id: %w", err)
	}
	return ch, nil
}

func (l ledger) SetCharacterPrice(ctx context.Context, id string, priceCents int64) error {
	cmd, err := l.q.Exec(ctx, `
		UPDATE characters
		SET base_price_cents = $1, updated_at = now()
		WHERE id = $2
	`, priceCents, id)
	if err != nil {
		return fmt.Errorf("set character price: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return market.ErrCharacterNotFound
	}
	return nil
}

func (l ledger) AppendPricePoint(ctx context.Context, characterID string, priceCents int64, at time.Time) error {
	_, err := l.q.Exec(ctx, `
		INSERT INTO price_history (character_id, price_cents, at)
		VALUES ($1, $2, $3)
	`, characterID, priceCents, at)
	if err != nil {
		return fmt.Errorf("append price point: %w", err)
	}
	return nil
}

func (l ledger) GetOrCreateHolding(ctx context.Context, accountID, characterID string) (market.Holding, error) {
	_, err := l.q.Exec(ctx, `
		INSERT INTO holdings (id, account_id, character_id, shares, avg_buy_price_cents)
		VALUES (gen_random_uuid()::text, $1, $2, 0, 0)
		ON CONFLICT (account_id, character_id) DO NOTHING
	`, accountID, characterID)
	if err != nil {
		return market.Holding{}, fmt.Errorf("upsert holding: %w", err)
	}
	var h market.Holding
	err = l.q.QueryRow(ctx, `
		SELECT id, account_id, character_id, shares, avg_buy_price_cents
		FROM holdings
		WHERE account_id = $1 AND character_id = $2`+l.forUpdate(),
		accountID, characterID,
	).Scan(&h.ID, &h.AccountID, &h.CharacterID, &h.Shares, &h.AvgBuyPriceCents)
	if err != nil {
		return market.Holding{}, fmt.Errorf("read holding: %w", err)
	}
	return h, nil
}

func (l ledger) SetHolding(ctx context.Context, holdingID string, shares, avgBuyPriceCents int64) error {
	cmd, err := l.q.Exec(ctx, `
		UPDATE holdings
		SET shares = $1, avg_buy_price_cents = $2, updated_at = now()
		WHERE id = $3
	`, shares, avgBuyPriceCents, holdingID)
	if err != nil {
		return fmt.Errorf("set holding: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("holding %s not found", holdingID)
	}
	return nil
}

func (l ledger) AppendTransaction(ctx context.Context, tx market.Transaction) error {
	_, err := l.q.Exec(ctx, `
		INSERT INTO transactions (id, account_id, character_id, shares, price_cents, side, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, tx.ID, tx.AccountID, tx.CharacterID, tx.Shares, tx.PriceCents, string(tx.Side), tx.At)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

func (l ledger) Balance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := l.q.QueryRow(ctx, `
		SELECT berries_cents
		FROM profiles
		WHERE id = $1`+l.forUpdate(),
		accountID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, market.ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

func (l ledger) AdjustBalance(ctx context.Context, accountID string, deltaCents int64) (int64, error) {
	var balance int64
	err := l.q.QueryRow(ctx, `
		UPDATE profiles
		SET berries_cents = berries_cents + $1, updated_at = now()
		WHERE id = $2 AND berries_cents + $1 >= 0
		RETURNING berries_cents
	`, deltaCents, accountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the account is missing or the debit would go negative.
		if _, berr := l.Balance(ctx, accountID); berr != nil {
			return 0, berr
		}
		return 0, fmt.Errorf("%w: balance would go negative", market.ErrInsufficientFunds)
	}
	if err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	return balance, nil
}

func (l ledger) LastTradeAt(ctx context.Context, accountID, characterID string) (time.Time, bool, error) {
	var at time.Time
	err := l.q.QueryRow(ctx, `
		SELECT at
		FROM transactions
		WHERE account_id = $1 AND character_id = $2
		ORDER BY at DESC
		LIMIT 1
	`, accountID, characterID).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last trade at: %w", err)
	}
	return at, true, nil
}

// Display reads and bootstrap writes run against the pool directly.

func (s *Store) ListCharacters(ctx context.Context) ([]market.Character, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+characterColumns+`
		FROM characters
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var out []market.Character
	for rows.Next() {
		var ch market.Character
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Slug, &ch.ImageURL, &ch.Description,
			&ch.BasePriceCents, &ch.Volatility, &ch.TotalShares, &ch.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *Store) CharacterBySlug(ctx context.Context, slug string) (market.Character, error) {
	var ch market.Character
	err := s.pool.QueryRow(ctx, `
		SELECT `+characterColumns+`
		FROM characters
		WHERE slug = $1
	`, slug).Scan(&ch.ID, &ch.Name, &ch.Slug, &ch.ImageURL, &ch.Description,
		&ch.BasePriceCents, &ch.Volatility, &ch.TotalShares, &ch.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Character{}, market.ErrCharacterNotFound
	}
	if err != nil {
		return market.Character{}, fmt.Errorf("character by slug: %w", err)
	}
	return ch, nil
}

func (s *Store) PriceHistory(ctx context.Context, characterID string, limit int) ([]market.PricePoint, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT character_id, price_cents, at
		FROM price_history
		WHERE character_id = $1
		ORDER BY at DESC
		LIMIT $2
	`, characterID, limit)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	defer rows.Close()

	var out []market.PricePoint
	for rows.Next() {
		var p market.PricePoint
		if err := rows.Scan(&p.CharacterID, &p.PriceCents, &p.At); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Newest-first from the query; callers want chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) CreateAccount(ctx context.Context, p market.Profile) (market.Profile, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (id, username, avatar_url, berries_cents, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, p.ID, p.Username, p.AvatarURL, p.BerriesCents, p.CreatedAt)
	if err != nil {
		return market.Profile{}, fmt.Errorf("create account: %w", err)
	}
	return s.Account(ctx, p.ID)
}

func (s *Store) Account(ctx context.Context, id string) (market.Profile, error) {
	var p market.Profile
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, avatar_url, berries_cents, created_at
		FROM profiles
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Username, &p.AvatarURL, &p.BerriesCents, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Profile{}, market.ErrAccountNotFound
	}
	if err != nil {
		return market.Profile{}, fmt.Errorf("read account: %w", err)
	}
	return p, nil
}

func (s *Store) HoldingsFor(ctx context.Context, accountID string) ([]market.Holding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, character_id, shares, avg_buy_price_cents
		FROM holdings
		WHERE account_id = $1
		ORDER BY character_id
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("holdings for: %w", err)
	}
	defer rows.Close()

	var out []market.Holding
	for rows.Next() {
		var h market.Holding
		if err := rows.Scan(&h.ID, &h.AccountID, &h.CharacterID, &h.Shares, &h.AvgBuyPriceCents); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) TransactionsFor(ctx context.Context, accountID string, limit int) ([]market.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, character_id, shares, price_cents, side, at
		FROM transactions
		WHERE account_id = $1
		ORDER BY at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("transactions for: %w", err)
	}
	defer rows.Close()

	var out []market.Transaction
	for rows.Next() {
		var tx market.Transaction
		var side string
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.CharacterID, &tx.Shares, &tx.PriceCents, &side, &tx.At); err != nil {
			return nil, err
		}
		tx.Side = market.Side(side)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) SeedCharacters(ctx context.Context, chars []market.Character) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(1) FROM characters`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, ch := range chars {
		_, err := tx.Exec(ctx, `
			INSERT INTO characters (id, name, slug, image_url, description, base_price_cents, volatility, total_shares, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, ch.ID, ch.Name, ch.Slug, ch.ImageURL, ch.Description, ch.BasePriceCents, ch.Volatility, ch.TotalShares, ch.CreatedAt)
		if err != nil {
			return fmt.Errorf("seed character %s: %w", ch.Slug, err)
		}
	}
	return tx.Commit(ctx)
}

var _ market.Store = (*Store)(nil)
