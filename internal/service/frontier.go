package service

import (
	"context"
	"fmt"
	"time"

	"github.com/S1M0N38/cr-db/internal/domain"

	"github.com/rs/zerolog"
)

type VisitState int

const (
	Unvisited VisitState = iota
	Stale
	Fresh
)

func (s VisitState) String() string {
	switch s {
	case Unvisited:
		return "unvisited"
	case Stale:
		return "stale"
	case Fresh:
		return "fresh"
	}
	return fmt.Sprintf("VisitState(%d)", int(s))
}

// StateOf classifies p at now. A fresh player turns stale once threshold has
// passed since its last visit; nothing else moves it.
func StateOf(p domain.Player, now time.Time, threshold time.Duration) VisitState {
	if p.LastVisited == nil {
		return Unvisited
	}
	if p.LastVisited.Before(now.Add(-threshold)) {
		return Stale
	}
	return Fresh
}

// FrontierScheduler picks the next player to crawl.
type FrontierScheduler struct {
	players   PlayerStore
	threshold time.Duration
	logger    zerolog.Logger
}

func NewFrontierScheduler(players PlayerStore, threshold time.Duration, logger zerolog.Logger) *FrontierScheduler {
	return &FrontierScheduler{players: players, threshold: threshold, logger: logger}
}

// PickNext returns the unvisited or stalest player. ok is false when the
// frontier is idle.
func (f *FrontierScheduler) PickNext(ctx context.Context) (tag string, ok bool, err error) {
	return f.players.NextStale(ctx, f.threshold)
}

func (f *FrontierScheduler) RecordVisit(ctx context.Context, tag string, at time.Time) error {
	if _, err := f.players.Upsert(ctx, tag, &at); err != nil {
		return fmt.Errorf("failed to record visit of %s: %w", tag, err)
	}
	return nil
}

// Discover registers tag as unvisited if it is not known yet.
func (f *FrontierScheduler) Discover(ctx context.Context, tag string) (bool, error) {
	inserted, err := f.players.Upsert(ctx, tag, nil)
	if err != nil {
		return false, fmt.Errorf("failed to register player %s: %w", tag, err)
	}
	return inserted, nil
}

// Seed adds tag as the crawl root when the store has no players at all.
func (f *FrontierScheduler) Seed(ctx context.Context, tag string) (bool, error) {
	n, err := f.players.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count players: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	if _, err := f.players.Upsert(ctx, tag, nil); err != nil {
		return false, fmt.Errorf("failed to seed player %s: %w", tag, err)
	}
	f.logger.Info().Str("tag", tag).Msg("seeded empty frontier")
	return true, nil
}
