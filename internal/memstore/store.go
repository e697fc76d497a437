// Package memstore is an in-memory market.Store used by tests and the dev
// mode of the API. A single mutex serializes trade scopes, so concurrent
// orders can never interleave their read-modify-write sequences; a snapshot
// taken at trade entry gives rollback on error.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"berrydex/internal/market"
)

type Store struct {
	mu sync.Mutex

	characters   map[string]market.Character
	slugs        map[string]string // slug -> character id
	history      map[string][]market.PricePoint
	profiles     map[string]market.Profile
	holdings     map[string]market.Holding
	holdingByKey map[string]string // account/character -> holding id
	transactions []market.Transaction
}

func New() *Store {
	return &Store{
		characters:   make(map[string]market.Character),
		slugs:        make(map[string]string),
		history:      make(map[string][]market.PricePoint),
		profiles:     make(map[string]market.Profile),
		holdings:     make(map[string]market.Holding),
		holdingByKey: make(map[string]string),
	}
}

func holdingKey(accountID, characterID string) string {
	return accountID + "/" + characterID
}

// snapshot deep-copies all mutable state for trade rollback.
type snapshot struct {
	characters   map[string]market.Character
	history      map[string][]market.PricePoint
	profiles     map[string]market.Profile
	holdings     map[string]market.Holding
	holdingByKey map[string]string
	txCount      int
}

func (s *Store) takeSnapshot() snapshot {
	snap := snapshot{
		characters:   make(map[string]market.Character, len(s.characters)),
		history:      make(map[string][]market.PricePoint, len(s.history)),
		profiles:     make(map[string]market.Profile, len(s.profiles)),
		holdings:     make(map[string]market.Holding, len(s.holdings)),
		holdingByKey: make(map[string]string, len(s.holdingByKey)),
		txCount:      len(s.transactions),
	}
	for k, v := range s.characters {
		snap.characters[k] = v
	}
	for k, v := range s.history {
		snap.history[k] = append([]market.PricePoint(nil), v...)
	}
	for k, v := range s.profiles {
		snap.profiles[k] = v
	}
	for k, v := range s.holdings {
		snap.holdings[k] = v
	}
	for k, v := range s.holdingByKey {
		snap.holdingByKey[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.characters = snap.characters
	s.history = snap.history
	s.profiles = snap.profiles
	s.holdings = snap.holdings
	s.holdingByKey = snap.holdingByKey
	s.transactions = s.transactions[:snap.txCount]
}

// InTrade serializes the whole order against every other trade. On error
// the pre-trade snapshot is restored, so partial application is never
// observable.
func (s *Store) InTrade(_ context.Context, fn func(market.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.takeSnapshot()
	if err := fn(tradeLedger{s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// tradeLedger exposes the unlocked implementations to a trade scope that
// already holds the store mutex.
type tradeLedger struct{ s *Store }

func (l tradeLedger) CharacterByID(_ context.Context, id string) (market.Character, error) {
	return l.s.characterByID(id)
}

func (l tradeLedger) SetCharacterPrice(_ context.Context, id string, priceCents int64) error {
	return l.s.setCharacterPrice(id, priceCents)
}

func (l tradeLedger) AppendPricePoint(_ context.Context, characterID string, priceCents int64, at time.Time) error {
	return l.s.appendPricePoint(characterID, priceCents, at)
}

func (l tradeLedger) GetOrCreateHolding(_ context.Context, accountID, characterID string) (market.Holding, error) {
	return l.s.getOrCreateHolding(accountID, characterID)
}

func (l tradeLedger) SetHolding(_ context.Context, holdingID string, shares, avgBuyPriceCents int64) error {
	return l.s.setHolding(holdingID, shares, avgBuyPriceCents)
}

func (l tradeLedger) AppendTransaction(_ context.Context, tx market.Transaction) error {
	l.s.transactions = append(l.s.transactions, tx)
	return nil
}

func (l tradeLedger) Balance(_ context.Context, accountID string) (int64, error) {
	return l.s.balance(accountID)
}

func (l tradeLedger) AdjustBalance(_ context.Context, accountID string, deltaCents int64) (int64, error) {
	return l.s.adjustBalance(accountID, deltaCents)
}

func (l tradeLedger) LastTradeAt(_ context.Context, accountID, characterID string) (time.Time, bool, error) {
	return l.s.lastTradeAt(accountID, characterID)
}

// Locked wrappers for use outside a trade scope.

func (s *Store) CharacterByID(_ context.Context, id string) (market.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.characterByID(id)
}

func (s *Store) SetCharacterPrice(_ context.Context, id string, priceCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCharacterPrice(id, priceCents)
}

func (s *Store) AppendPricePoint(_ context.Context, characterID string, priceCents int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendPricePoint(characterID, priceCents, at)
}

func (s *Store) GetOrCreateHolding(_ context.Context, accountID, characterID string) (market.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateHolding(accountID, characterID)
}

func (s *Store) SetHolding(_ context.Context, holdingID string, shares, avgBuyPriceCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setHolding(holdingID, shares, avgBuyPriceCents)
}

func (s *Store) AppendTransaction(_ context.Context, tx market.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, tx)
	return nil
}

func (s *Store) Balance(_ context.Context, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance(accountID)
}

func (s *Store) AdjustBalance(_ context.Context, accountID string, deltaCents int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustBalance(accountID, deltaCents)
}

func (s *Store) LastTradeAt(_ context.Context, accountID, characterID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTradeAt(accountID, characterID)
}

// Unlocked implementations. Callers hold s.mu.

func (s *Store) characterByID(id string) (market.Character, error) {
	ch, ok := s.characters[id]
	if !ok {
		return market.Character{}, market.ErrCharacterNotFound
	}
	return ch, nil
}

func (s *Store) setCharacterPrice(id string, priceCents int64) error {
	ch, ok := s.characters[id]
	if !ok {
		return market.ErrCharacterNotFound
	}
	ch.BasePriceCents = priceCents
	s.characters[id] = ch
	return nil
}

func (s *Store) appendPricePoint(characterID string, priceCents int64, at time.Time) error {
	if _, ok := s.characters[characterID]; !ok {
		return market.ErrCharacterNotFound
	}
	s.history[characterID] = append(s.history[characterID], market.PricePoint{
		CharacterID: characterID,
		PriceCents:  priceCents,
		At:          at,
	})
	return nil
}

func (s *Store) getOrCreateHolding(accountID, characterID string) (market.Holding, error) {
	key := holdingKey(accountID, characterID)
	if id, ok := s.holdingByKey[key]; ok {
		return s.holdings[id], nil
	}
	h := market.Holding{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		CharacterID: characterID,
	}
	s.holdings[h.ID] = h
	s.holdingByKey[key] = h.ID
	return h, nil
}

func (s *Store) setHolding(holdingID string, shares, avgBuyPriceCents int64) error {
	h, ok := s.holdings[holdingID]
	if !ok {
		return fmt.Errorf("holding %s not found", holdingID)
	}
	if shares < 0 {
		return fmt.Errorf("holding %s: negative shares", holdingID)
	}
	h.Shares = shares
	h.AvgBuyPriceCents = avgBuyPriceCents
	s.holdings[holdingID] = h
	return nil
}

func (s *Store) balance(accountID string) (int64, error) {
	p, ok := s.profiles[accountID]
	if !ok {
		return 0, market.ErrAccountNotFound
	}
	return p.BerriesCents, nil
}

func (s *Store) adjustBalance(accountID string, deltaCents int64) (int64, error) {
	p, ok := s.profiles[accountID]
	if !ok {
		return 0, market.ErrAccountNotFound
	}
	next := p.BerriesCents + deltaCents
	if next < 0 {
		return 0, fmt.Errorf("%w: balance would go negative", market.ErrInsufficientFunds)
	}
	p.BerriesCents = next
	s.profiles[accountID] = p
	return next, nil
}

func (s *Store) lastTradeAt(accountID, characterID string) (time.Time, bool, error) {
	for i := len(s.transactions) - 1; i >= 0; i-- {
		tx := s.transactions[i]
		if tx.AccountID == accountID && tx.CharacterID == characterID {
			return tx.At, true, nil
		}
	}
	return time.Time{}, false, nil
}

// Display reads and bootstrap writes.

func (s *Store) ListCharacters(_ context.Context) ([]market.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]market.Character, 0, len(s.characters))
	for _, ch := range s.characters {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CharacterBySlug(_ context.Context, slug string) (market.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.slugs[slug]
	if !ok {
		return market.Character{}, market.ErrCharacterNotFound
	}
	return s.characters[id], nil
}

func (s *Store) PriceHistory(_ context.Context, characterID string, limit int) ([]market.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.history[characterID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]market.PricePoint(nil), all...), nil
}

func (s *Store) CreateAccount(_ context.Context, p market.Profile) (market.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.profiles[p.ID]; ok {
		return existing, nil
	}
	s.profiles[p.ID] = p
	return p, nil
}

func (s *Store) Account(_ context.Context, id string) (market.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return market.Profile{}, market.ErrAccountNotFound
	}
	return p, nil
}

func (s *Store) HoldingsFor(_ context.Context, accountID string) ([]market.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []market.Holding
	for _, h := range s.holdings {
		if h.AccountID == accountID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CharacterID < out[j].CharacterID })
	return out, nil
}

func (s *Store) TransactionsFor(_ context.Context, accountID string, limit int) ([]market.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []market.Transaction
	for i := len(s.transactions) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.transactions[i].AccountID == accountID {
			out = append(out, s.transactions[i])
		}
	}
	return out, nil
}

func (s *Store) SeedCharacters(_ context.Context, chars []market.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.characters) > 0 {
		return nil
	}
	for _, ch := range chars {
		s.characters[ch.ID] = ch
		s.slugs[ch.Slug] = ch.ID
	}
	return nil
}

var _ market.Store = (*Store)(nil)
