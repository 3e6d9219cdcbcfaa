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

type PlayerRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
	now     Clock
}

func NewPlayerRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
		now:     systemClock,
	}
}

// SetClock replaces the clock used to compute staleness cutoffs.
func (r *PlayerRepository) SetClock(now Clock) {
	r.now = now
}

// Upsert inserts tag with a null visit time if it is new. A non-nil
// visitedAt then overwrites last_visited whether or not the row is new.
func (r *PlayerRepository) Upsert(ctx context.Context, tag string, visitedAt *time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	inserted, err := qtx.InsertPlayerIfAbsent(ctx, tag)
	if err != nil {
		return false, fmt.Errorf("failed to insert player %s: %w", tag, err)
	}

	if visitedAt != nil {
		err := qtx.UpdatePlayerLastVisited(ctx, db.UpdatePlayerLastVisitedParams{
			LastVisited: formatVisit(*visitedAt),
			Tag:         tag,
		})
		if err != nil {
			return false, fmt.Errorf("failed to set last visited for %s: %w", tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit player %s: %w", tag, err)
	}

	if inserted {
		r.logger.Debug().Str("tag", tag).Msg("new player")
	}
	return inserted, nil
}

// NextStale returns the never-visited or least recently visited player whose
// last visit is older than threshold. ok is false when every known player is
// fresh.
func (r *PlayerRepository) NextStale(ctx context.Context, threshold time.Duration) (tag string, ok bool, err error) {
	cutoff := r.now().Add(-threshold)

	tag, err = r.queries.GetNextStalePlayer(ctx, formatVisit(cutoff))
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Debug().Time("cutoff", cutoff).Msg("no stale player")
		return "", false, nil
	}
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to get next stale player")
		return "", false, fmt.Errorf("failed to get next stale player: %w", err)
	}
	return tag, true, nil
}

func (r *PlayerRepository) Get(ctx context.Context, tag string) (*domain.Player, error) {
	row, err := r.queries.GetPlayer(ctx, tag)
	if err != nil {
		return nil, err
	}

	player := &domain.Player{Tag: row.Tag}
	if row.LastVisited.Valid {
		t, err := parseVisit(row.LastVisited.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last visited for %s: %w", tag, err)
		}
		player.LastVisited = &t
	}
	return player, nil
}

func (r *PlayerRepository) Count(ctx context.Context) (int64, error) {
	return r.queries.CountPlayers(ctx)
}
