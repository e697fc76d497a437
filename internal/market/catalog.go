package market

import (
	"context"

	"github.com/google/uuid"
)

// CharacterDetail is a single catalog entry with its price history.
type CharacterDetail struct {
	CharacterView
	History []PricePoint `json:"history"`
}

// Characters lists the catalog enriched with last-change stats.
func (s *Service) Characters(ctx context.Context) ([]CharacterView, error) {
	chars, err := s.store.ListCharacters(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CharacterView, 0, len(chars))
	for _, ch := range chars {
		history, err := s.store.PriceHistory(ctx, ch.ID, displayHistoryLimit)
		if err != nil {
			return nil, err
		}
		out = append(out, DisplayPrice(ch, history))
	}
	return out, nil
}

func (s *Service) CharacterDetail(ctx context.Context, slug string) (CharacterDetail, error) {
	ch, err := s.store.CharacterBySlug(ctx, slug)
	if err != nil {
		return CharacterDetail{}, err
	}
	history, err := s.store.PriceHistory(ctx, ch.ID, displayHistoryLimit)
	if err != nil {
		return CharacterDetail{}, err
	}
	return CharacterDetail{
		CharacterView: DisplayPrice(ch, history),
		History:       history,
	}, nil
}

func (s *Service) Account(ctx context.Context, id string) (Profile, error) {
	return s.store.Account(ctx, id)
}

func (s *Service) Transactions(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.TransactionsFor(ctx, accountID, limit)
}

// SnapshotPrices appends one history sample per character at its current
// price so display change stats stay fresh between trades.
func (s *Service) SnapshotPrices(ctx context.Context) (int, error) {
	chars, err := s.store.ListCharacters(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	for i, ch := range chars {
		if err := s.store.AppendPricePoint(ctx, ch.ID, ch.BasePriceCents, now); err != nil {
			return i, err
		}
	}
	return len(chars), nil
}

// SeedDefaults loads a starter catalog when the store is empty.
func (s *Service) SeedDefaults(ctx context.Context) error {
	seed := []struct {
		Name       string
		Slug       string
		Price      int64 // berries
		Volatility float64
		Shares     int64
	}{
		{"Captain Marrow", "captain-marrow", 120, 1.4, 50_000},
		{"Sable the Navigator", "sable-the-navigator", 85, 1.0, 80_000},
		{"Grimtooth", "grimtooth", 150, 1.8, 40_000},
		{"Penny Sprocket", "penny-sprocket", 45, 0.6, 120_000},
		{"The Cartographer", "the-cartographer", 95, 1.1, 75_000},
		{"Ironjaw Brenna", "ironjaw-brenna", 130, 1.5, 55_000},
		{"Whisper", "whisper", 200, 2.2, 25_000},
		{"Old Man Tidepool", "old-man-tidepool", 60, 0.8, 100_000},
		{"Kettle the Cook", "kettle-the-cook", 35, 0.5, 150_000},
		{"Admiral Voss", "admiral-voss", 175, 1.9, 30_000},
		{"Lantern Jack", "lantern-jack", 110, 1.3, 60_000},
		{"Mirelle of the Deep", "mirelle-of-the-deep", 140, 1.6, 45_000},
	}

	now := s.now()
	chars := make([]Character, 0, len(seed))
	for _, row := range seed {
		chars = append(chars, Character{
			ID:             uuid.NewString(),
			Name:           row.Name,
			Slug:           row.Slug,
			BasePriceCents: row.Price * CentsPerBerry,
			Volatility:     row.Volatility,
			TotalShares:    row.Shares,
			CreatedAt:      now,
		})
	}
	return s.store.SeedCharacters(ctx, chars)
}

// ResolveCharacter maps a public slug to the character's ID for order
// placement. The trade path re-reads the character inside its own scope.
func (s *Service) ResolveCharacter(ctx context.Context, slug string) (Character, error) {
	return s.store.CharacterBySlug(ctx, slug)
}
