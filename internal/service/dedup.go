package service

import (
	"context"
	"fmt"

	"github.com/S1M0N38/cr-db/internal/domain"

	"github.com/rs/zerolog"
)

// DedupGate guarantees at most one stored row per distinct deck or battle.
type DedupGate struct {
	decks   DeckStore
	battles BattleStore
	logger  zerolog.Logger
}

func NewDedupGate(decks DeckStore, battles BattleStore, logger zerolog.Logger) *DedupGate {
	return &DedupGate{decks: decks, battles: battles, logger: logger}
}

func (g *DedupGate) ResolveDeck(ctx context.Context, cards domain.Cards) (domain.DeckID, error) {
	return g.decks.FindOrCreate(ctx, cards)
}

// ResolveDecks sets the deck id of both sides of b from their cards.
func (g *DedupGate) ResolveDecks(ctx context.Context, b *domain.Battle) error {
	for _, s := range []*domain.Side{&b.A, &b.B} {
		id, err := g.ResolveDeck(ctx, s.Cards)
		if err != nil {
			return fmt.Errorf("failed to resolve deck of %s: %w", s.Tag, err)
		}
		s.DeckID = id
	}
	return nil
}

// ResolveBattle stores b unless a battle at b.Time with side A b.A.Tag
// exists. An existing battle is reported through Existed, not as an error.
func (g *DedupGate) ResolveBattle(ctx context.Context, b domain.Battle) (domain.Resolution, error) {
	res, err := g.battles.InsertIfAbsent(ctx, b)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("failed to resolve battle: %w", err)
	}
	if res.Existed {
		g.logger.Debug().
			Int64("battle_id", int64(res.ID)).
			Str("tag_1", b.A.Tag).
			Str("tag_2", b.B.Tag).
			Msg("battle already stored")
	}
	return res, nil
}
