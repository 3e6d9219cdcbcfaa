package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/S1M0N38/cr-db/internal/db"
	"github.com/S1M0N38/cr-db/internal/domain"

	"github.com/rs/zerolog"
)

// ErrNotCanonical is returned when side 1 does not hold the smaller tag.
var ErrNotCanonical = errors.New("battle sides are not in canonical order")

type BattleRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewBattleRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *BattleRepository {
	return &BattleRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// Find reports whether a battle with side 1 tag1 was played at t.
func (r *BattleRepository) Find(ctx context.Context, t time.Time, tag1 string) (domain.BattleID, bool, error) {
	return findBattle(ctx, r.queries, t, tag1)
}

// Insert stores b, which the caller has checked is not stored yet.
func (r *BattleRepository) Insert(ctx context.Context, b domain.Battle) (domain.BattleID, error) {
	return insertBattle(ctx, r.queries, b)
}

// InsertIfAbsent runs Find and Insert in one transaction.
func (r *BattleRepository) InsertIfAbsent(ctx context.Context, b domain.Battle) (domain.Resolution, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	id, found, err := findBattle(ctx, qtx, b.Time, b.A.Tag)
	if err != nil {
		return domain.Resolution{}, err
	}
	if found {
		return domain.Resolution{ID: id, Existed: true}, nil
	}

	id, err = insertBattle(ctx, qtx, b)
	if err != nil {
		return domain.Resolution{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Resolution{}, fmt.Errorf("failed to commit battle: %w", err)
	}

	r.logger.Debug().
		Int64("battle_id", int64(id)).
		Time("battle_time", b.Time).
		Str("tag_1", b.A.Tag).
		Str("tag_2", b.B.Tag).
		Msg("insert new battle into battles")
	return domain.Resolution{ID: id}, nil
}

func (r *BattleRepository) Get(ctx context.Context, id domain.BattleID) (*domain.Battle, error) {
	row, err := r.queries.GetBattle(ctx, int64(id))
	if err != nil {
		return nil, err
	}

	t, err := parseBattleTime(row.BattleTime)
	if err != nil {
		return nil, fmt.Errorf("failed to parse battle time %q: %w", row.BattleTime, err)
	}

	return &domain.Battle{
		ID:   domain.BattleID(row.BattleID),
		Time: t,
		A: domain.Side{
			Tag:      row.Tag1,
			Trophies: int(row.Trophies1),
			Crowns:   int(row.Crowns1),
			DeckID:   domain.DeckID(row.Deck1),
		},
		B: domain.Side{
			Tag:      row.Tag2,
			Trophies: int(row.Trophies2),
			Crowns:   int(row.Crowns2),
			DeckID:   domain.DeckID(row.Deck2),
		},
	}, nil
}

func (r *BattleRepository) Count(ctx context.Context) (int64, error) {
	return r.queries.CountBattles(ctx)
}

func findBattle(ctx context.Context, q *db.Queries, t time.Time, tag1 string) (domain.BattleID, bool, error) {
	id, err := q.GetBattleIDByTimeTag(ctx, db.GetBattleIDByTimeTagParams{
		BattleTime: formatBattleTime(t),
		Tag1:       tag1,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up battle %s/%s: %w", formatBattleTime(t), tag1, err)
	}
	return domain.BattleID(id), true, nil
}

func insertBattle(ctx context.Context, q *db.Queries, b domain.Battle) (domain.BattleID, error) {
	if b.A.Tag >= b.B.Tag {
		return 0, fmt.Errorf("%w: %s vs %s", ErrNotCanonical, b.A.Tag, b.B.Tag)
	}

	id, err := q.InsertBattle(ctx, db.InsertBattleParams{
		BattleTime: formatBattleTime(b.Time),
		Tag1:       b.A.Tag,
		Trophies1:  int64(b.A.Trophies),
		Crowns1:    int64(b.A.Crowns),
		Deck1:      int64(b.A.DeckID),
		Tag2:       b.B.Tag,
		Trophies2:  int64(b.B.Trophies),
		Crowns2:    int64(b.B.Crowns),
		Deck2:      int64(b.B.DeckID),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert battle %s/%s: %w", formatBattleTime(b.Time), b.A.Tag, err)
	}
	return domain.BattleID(id), nil
}
