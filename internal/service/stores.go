package service

import (
	"context"
	"time"

	"github.com/S1M0N38/cr-db/internal/api"
	"github.com/S1M0N38/cr-db/internal/domain"
)

type PlayerStore interface {
	Upsert(ctx context.Context, tag string, visitedAt *time.Time) (bool, error)
	NextStale(ctx context.Context, threshold time.Duration) (string, bool, error)
	Count(ctx context.Context) (int64, error)
}

type DeckStore interface {
	FindOrCreate(ctx context.Context, cards domain.Cards) (domain.DeckID, error)
}

type BattleStore interface {
	InsertIfAbsent(ctx context.Context, b domain.Battle) (domain.Resolution, error)
}

type BattleLogFetcher interface {
	GetBattleLog(ctx context.Context, tag string) ([]api.Battle, error)
}
