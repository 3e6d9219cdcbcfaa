package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/S1M0N38/cr-db/internal/api"
	"github.com/S1M0N38/cr-db/internal/canonical"
	"github.com/S1M0N38/cr-db/internal/db"
	"github.com/S1M0N38/cr-db/internal/domain"
	"github.com/S1M0N38/cr-db/internal/repository"
	"github.com/S1M0N38/cr-db/internal/testutil"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	logs     map[string][]api.Battle
	failures map[string]error
	calls    []string
}

func (f *fakeFetcher) GetBattleLog(ctx context.Context, tag string) ([]api.Battle, error) {
	f.calls = append(f.calls, tag)
	if err, ok := f.failures[tag]; ok {
		delete(f.failures, tag)
		return nil, err
	}
	return f.logs[tag], nil
}

type crawlEnv struct {
	crawler  *Crawler
	frontier *FrontierScheduler
	fetcher  *fakeFetcher
	players  *repository.PlayerRepository
	decks    *repository.DeckRepository
	battles  *repository.BattleRepository
	stats    *repository.StatsRepository
	clock    *testutil.Clock
}

func newCrawlEnv(t *testing.T, exitWhenIdle bool) crawlEnv {
	t.Helper()

	sqlDB := testutil.NewDB(t)
	queries := db.New(sqlDB)
	clock := &testutil.Clock{T: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}

	players := repository.NewPlayerRepository(sqlDB, queries, zerolog.Nop())
	players.SetClock(clock.Now)
	decks := repository.NewDeckRepository(sqlDB, queries, zerolog.Nop())
	battles := repository.NewBattleRepository(sqlDB, queries, zerolog.Nop())

	fetcher := &fakeFetcher{logs: map[string][]api.Battle{}, failures: map[string]error{}}
	frontier := NewFrontierScheduler(players, time.Hour, zerolog.Nop())
	gate := NewDedupGate(decks, battles, zerolog.Nop())
	filter := canonical.NewFilter([]int{72000006}, 6600)

	crawler := NewCrawler(fetcher, frontier, gate, filter, CrawlerConfig{
		IdleWait:     time.Millisecond,
		ExitWhenIdle: exitWhenIdle,
	}, zerolog.Nop())
	crawler.SetClock(clock.Now)

	return crawlEnv{
		crawler:  crawler,
		frontier: frontier,
		fetcher:  fetcher,
		players:  players,
		decks:    decks,
		battles:  battles,
		stats:    repository.NewStatsRepository(queries),
		clock:    clock,
	}
}

// P1 beat P2 and then lost to P3, who is below the trophy threshold.
func (e crawlEnv) seedLogs() {
	p1 := testutil.Participant("P1", 7000, 3, 100)
	p2 := testutil.Participant("P2", 6800, 0, 200)
	p3 := testutil.Participant("P3", 6000, 3, 300)

	e.fetcher.logs["P1"] = []api.Battle{
		testutil.LadderBattle("20240101T120000.000Z", p1, p2),
		testutil.LadderBattle("20240101T121000.000Z", p1, p3),
	}
	e.fetcher.logs["P2"] = []api.Battle{
		testutil.LadderBattle("20240101T120000.000Z", p2, p1),
	}
}

func TestRunCrawlsUntilIdle(t *testing.T) {
	env := newCrawlEnv(t, true)
	env.seedLogs()
	ctx := context.Background()

	_, err := env.frontier.Seed(ctx, "P1")
	require.NoError(t, err)

	require.NoError(t, env.crawler.Run(ctx))

	assert.Equal(t, []string{"P1", "P2"}, env.fetcher.calls)

	snap, err := env.stats.Snapshot(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, snap.Players, "P3 is never discovered")
	assert.EqualValues(t, 2, snap.VisitedPlayers)
	assert.EqualValues(t, 2, snap.Decks)
	assert.EqualValues(t, 1, snap.Battles, "the mirrored battle is stored once")

	_, err = env.players.Get(ctx, "P3")
	assert.Error(t, err)
}

func TestVisitCounts(t *testing.T) {
	env := newCrawlEnv(t, true)
	env.seedLogs()
	ctx := context.Background()

	_, err := env.frontier.Seed(ctx, "P1")
	require.NoError(t, err)

	res, err := env.crawler.Visit(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "P1", res.Tag)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Eligible)
	assert.Equal(t, 1, res.Inserted)
	assert.Zero(t, res.Duplicates)
	assert.Equal(t, env.clock.Now(), res.VisitedAt)

	p2, err := env.players.Get(ctx, "P2")
	require.NoError(t, err)
	assert.Nil(t, p2.LastVisited)

	res, err = env.crawler.Visit(ctx, "P2")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Eligible)
	assert.Zero(t, res.Inserted)
	assert.Equal(t, 1, res.Duplicates)
}

func TestIngestIsIdempotent(t *testing.T) {
	env := newCrawlEnv(t, true)
	env.seedLogs()
	ctx := context.Background()

	first := env.crawler.Ingest(ctx, "P1", env.fetcher.logs["P1"])
	second := env.crawler.Ingest(ctx, "P1", env.fetcher.logs["P1"])

	assert.Equal(t, 1, first.Inserted)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 1, second.Duplicates)

	snap, err := env.stats.Snapshot(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, snap.Battles)
	assert.EqualValues(t, 2, snap.Decks)
	assert.Zero(t, snap.VisitedPlayers, "ingest does not record a visit")
}

func TestIngestSkipsMalformed(t *testing.T) {
	env := newCrawlEnv(t, true)
	ctx := context.Background()

	short := testutil.Participant("P1", 7000, 1, 100)
	short.Cards = short.Cards[:7]
	battles := []api.Battle{
		testutil.LadderBattle("20240101T120000.000Z", short, testutil.Participant("P2", 7000, 0, 200)),
		testutil.LadderBattle("not a time", testutil.Participant("P1", 7000, 1, 100), testutil.Participant("P2", 7000, 0, 200)),
	}

	res := env.crawler.Ingest(ctx, "P1", battles)
	assert.Equal(t, 2, res.Total)
	assert.Zero(t, res.Eligible)
	assert.Zero(t, res.Inserted)

	snap, err := env.stats.Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.Battles)
	assert.Zero(t, snap.Decks)
}

func TestRunStopsOnAPIError(t *testing.T) {
	env := newCrawlEnv(t, true)
	env.seedLogs()
	ctx := context.Background()

	_, err := env.frontier.Seed(ctx, "P1")
	require.NoError(t, err)
	env.fetcher.failures["P1"] = &api.APIError{StatusCode: 403, Reason: "accessDenied", Message: "Invalid authorization"}

	err = env.crawler.Run(ctx)

	var apiErr *api.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "accessDenied", apiErr.Reason)

	p1, err := env.players.Get(ctx, "P1")
	require.NoError(t, err)
	assert.Nil(t, p1.LastVisited)
}

// P1 (6700) beats P2 (6650) 3-1 and then plays P3 at 4000 vs 4100. Decks are
// cards 1..8 and 9..16, listed unsorted.
func TestEndToEndScenario(t *testing.T) {
	env := newCrawlEnv(t, true)
	ctx := context.Background()

	p1 := testutil.Participant("P1", 6700, 3, 1)
	p2 := testutil.Participant("P2", 6650, 1, 9)
	env.fetcher.logs["P1"] = []api.Battle{
		testutil.LadderBattle("20240101T120000.000Z", p1, p2),
		testutil.LadderBattle("20240101T121000.000Z",
			testutil.Participant("P1", 4000, 0, 1),
			testutil.Participant("P3", 4100, 1, 17)),
	}

	_, err := env.frontier.Seed(ctx, "P1")
	require.NoError(t, err)

	first, err := env.crawler.Visit(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	id, found, err := env.battles.Find(ctx, at, "P1")
	require.NoError(t, err)
	require.True(t, found)

	stored, err := env.battles.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "P1", stored.A.Tag)
	assert.Equal(t, 6700, stored.A.Trophies)
	assert.Equal(t, 3, stored.A.Crowns)
	assert.Equal(t, "P2", stored.B.Tag)
	assert.Equal(t, 6650, stored.B.Trophies)
	assert.Equal(t, 1, stored.B.Crowns)

	deck1, err := env.decks.Get(ctx, stored.A.DeckID)
	require.NoError(t, err)
	assert.Equal(t, domain.Cards{1, 2, 3, 4, 5, 6, 7, 8}, deck1.Cards)
	deck2, err := env.decks.Get(ctx, stored.B.DeckID)
	require.NoError(t, err)
	assert.Equal(t, domain.Cards{9, 10, 11, 12, 13, 14, 15, 16}, deck2.Cards)

	_, err = env.players.Get(ctx, "P3")
	assert.Error(t, err, "P3 only played an ineligible battle")

	// the same battle from P2's battlelog
	mirrored := env.crawler.Ingest(ctx, "P2", []api.Battle{
		testutil.LadderBattle("20240101T120000.000Z", p2, p1),
	})
	assert.Equal(t, 1, mirrored.Duplicates)
	assert.Zero(t, mirrored.Inserted)

	env.clock.Advance(2 * time.Hour)
	second, err := env.crawler.Visit(ctx, "P1")
	require.NoError(t, err)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 1, second.Duplicates)

	snap, err := env.stats.Snapshot(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, snap.Battles)
	assert.EqualValues(t, 2, snap.Decks)
	assert.EqualValues(t, 2, snap.Players)

	player1, err := env.players.Get(ctx, "P1")
	require.NoError(t, err)
	require.NotNil(t, player1.LastVisited)
	assert.True(t, env.clock.Now().Equal(*player1.LastVisited))

	player2, err := env.players.Get(ctx, "P2")
	require.NoError(t, err)
	assert.Nil(t, player2.LastVisited)
}

func TestTransportErrorLeavesPlayerUnvisited(t *testing.T) {
	env := newCrawlEnv(t, true)
	env.seedLogs()
	ctx := context.Background()

	_, err := env.frontier.Seed(ctx, "P1")
	require.NoError(t, err)
	env.fetcher.failures["P1"] = errors.New("connection reset by peer")

	_, err = env.crawler.Visit(ctx, "P1")
	require.Error(t, err)

	p1, err := env.players.Get(ctx, "P1")
	require.NoError(t, err)
	assert.Nil(t, p1.LastVisited)

	tag, ok, err := env.frontier.PickNext(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "P1", tag)
}

func TestRunRetriesAfterTransportError(t *testing.T) {
	env := newCrawlEnv(t, true)
	env.seedLogs()
	ctx := context.Background()

	_, err := env.frontier.Seed(ctx, "P1")
	require.NoError(t, err)
	env.fetcher.failures["P1"] = errors.New("connection reset by peer")

	require.NoError(t, env.crawler.Run(ctx))
	assert.Equal(t, []string{"P1", "P1", "P2"}, env.fetcher.calls)
}

func TestRunRevisitsStalePlayers(t *testing.T) {
	env := newCrawlEnv(t, true)
	env.seedLogs()
	ctx := context.Background()

	_, err := env.frontier.Seed(ctx, "P1")
	require.NoError(t, err)
	require.NoError(t, env.crawler.Run(ctx))

	env.clock.Advance(2 * time.Hour)
	env.fetcher.calls = nil
	require.NoError(t, env.crawler.Run(ctx))

	// least recently visited first
	assert.Equal(t, []string{"P1", "P2"}, env.fetcher.calls)
}

func TestRunReturnsOnCancel(t *testing.T) {
	env := newCrawlEnv(t, false)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// an empty frontier keeps the crawler idling until ctx ends
	assert.NoError(t, env.crawler.Run(ctx))
}
