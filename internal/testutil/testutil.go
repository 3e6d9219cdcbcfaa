// Package testutil builds the fixtures shared by package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/S1M0N38/cr-db/internal/api"
	"github.com/S1M0N38/cr-db/internal/config"
	"github.com/S1M0N38/cr-db/internal/database"

	"github.com/rs/zerolog"
)

// NewDB opens a migrated database in a fresh temporary directory.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := &config.Config{
		DBPath:   filepath.Join(t.TempDir(), "cr.db"),
		LogLevel: "info",
	}
	sqlDB, err := database.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

// Clock is a settable clock for staleness tests.
type Clock struct {
	T time.Time
}

func (c *Clock) Now() time.Time { return c.T }

func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// Participant builds a battle participant holding cards with ids base..base+7.
func Participant(tag string, trophies, crowns, base int) api.Participant {
	cards := make([]api.Card, 8)
	for i := range cards {
		// reversed so decks arrive unsorted
		cards[i] = api.Card{ID: base + 7 - i, Level: 14}
	}
	return api.Participant{
		Tag:              "#" + tag,
		StartingTrophies: &trophies,
		Crowns:           crowns,
		Cards:            cards,
	}
}

// LadderBattle builds a ladder battle as it appears in team's battlelog.
func LadderBattle(battleTime string, team, opponent api.Participant) api.Battle {
	return api.Battle{
		Type:       "pathOfLegend",
		BattleTime: battleTime,
		GameMode:   api.GameMode{ID: 72000006, Name: "Ladder"},
		Team:       []api.Participant{team},
		Opponent:   []api.Participant{opponent},
	}
}
