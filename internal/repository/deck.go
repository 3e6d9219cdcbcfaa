package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/S1M0N38/cr-db/internal/db"
	"github.com/S1M0N38/cr-db/internal/domain"

	"github.com/rs/zerolog"
)

type DeckRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewDeckRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *DeckRepository {
	return &DeckRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// FindOrCreate returns the id of the deck holding exactly cards, inserting it
// first if needed. cards must already be sorted.
func (r *DeckRepository) FindOrCreate(ctx context.Context, cards domain.Cards) (domain.DeckID, error) {
	key := toKey(cards)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	id, err := qtx.GetDeckIDByCards(ctx, key)
	if err == nil {
		return domain.DeckID(id), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up deck %v: %w", cards, err)
	}

	id, err = qtx.InsertDeck(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to insert deck %v: %w", cards, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit deck %v: %w", cards, err)
	}

	r.logger.Debug().Int64("deck_id", id).Ints("cards", cards[:]).Msg("insert new deck into decks")
	return domain.DeckID(id), nil
}

func (r *DeckRepository) Get(ctx context.Context, id domain.DeckID) (*domain.Deck, error) {
	row, err := r.queries.GetDeck(ctx, int64(id))
	if err != nil {
		return nil, err
	}
	return &domain.Deck{
		ID: domain.DeckID(row.DeckID),
		Cards: domain.Cards{
			int(row.Card1), int(row.Card2), int(row.Card3), int(row.Card4),
			int(row.Card5), int(row.Card6), int(row.Card7), int(row.Card8),
		},
	}, nil
}

func (r *DeckRepository) Count(ctx context.Context) (int64, error) {
	return r.queries.CountDecks(ctx)
}

func toKey(cards domain.Cards) [8]int64 {
	var key [8]int64
	for i, c := range cards {
		key[i] = int64(c)
	}
	return key
}
