package repository

import (
	"context"
	"fmt"

	"github.com/S1M0N38/cr-db/internal/db"
	"github.com/S1M0N38/cr-db/internal/domain"
)

type StatsRepository struct {
	queries *db.Queries
}

func NewStatsRepository(queries *db.Queries) *StatsRepository {
	return &StatsRepository{queries: queries}
}

func (r *StatsRepository) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	var err error

	if snap.Players, err = r.queries.CountPlayers(ctx); err != nil {
		return snap, fmt.Errorf("failed to count players: %w", err)
	}
	visited, err := r.queries.CountVisitedPlayers(ctx)
	if err != nil {
		return snap, fmt.Errorf("failed to count visited players: %w", err)
	}
	snap.VisitedPlayers = visited.Count
	if visited.LastVisit.Valid {
		t, err := parseVisit(visited.LastVisit.String)
		if err != nil {
			return snap, fmt.Errorf("failed to parse last visit: %w", err)
		}
		snap.LastVisit = &t
	}
	if snap.Decks, err = r.queries.CountDecks(ctx); err != nil {
		return snap, fmt.Errorf("failed to count decks: %w", err)
	}
	if snap.Battles, err = r.queries.CountBattles(ctx); err != nil {
		return snap, fmt.Errorf("failed to count battles: %w", err)
	}
	return snap, nil
}
