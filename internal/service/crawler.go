package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/S1M0N38/cr-db/internal/api"
	"github.com/S1M0N38/cr-db/internal/canonical"
	"github.com/S1M0N38/cr-db/internal/constants"
	"github.com/S1M0N38/cr-db/internal/domain"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type CrawlerConfig struct {
	// RequestDelay is the minimum gap between two battlelog requests.
	RequestDelay time.Duration
	// IdleWait is how long to wait before polling an idle frontier again.
	IdleWait time.Duration
	// ExitWhenIdle makes Run return once no player is stale.
	ExitWhenIdle bool
}

// Crawler visits players one at a time, ingesting their battlelogs.
type Crawler struct {
	fetcher  BattleLogFetcher
	frontier *FrontierScheduler
	gate     *DedupGate
	filter   canonical.Filter
	cfg      CrawlerConfig
	pacer    *rate.Limiter
	now      func() time.Time
	logger   zerolog.Logger
}

func NewCrawler(
	fetcher BattleLogFetcher,
	frontier *FrontierScheduler,
	gate *DedupGate,
	filter canonical.Filter,
	cfg CrawlerConfig,
	logger zerolog.Logger,
) *Crawler {
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = constants.DefaultIdleWait
	}
	return &Crawler{
		fetcher:  fetcher,
		frontier: frontier,
		gate:     gate,
		filter:   filter,
		cfg:      cfg,
		pacer:    rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// SetClock replaces the clock used to stamp visits.
func (c *Crawler) SetClock(now func() time.Time) {
	c.now = now
}

// Run crawls until ctx is done, the frontier is idle with ExitWhenIdle set,
// or a fatal error occurs. An *api.APIError from the upstream is fatal.
func (c *Crawler) Run(ctx context.Context) error {
	runID, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate run id: %w", err)
	}
	logger := c.logger.With().Str("run_id", runID).Logger()
	logger.Info().Msg("crawl started")

	for {
		if ctx.Err() != nil {
			logger.Info().Msg("crawl stopped")
			return nil
		}

		tag, ok, err := c.frontier.PickNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			return err
		}

		if !ok {
			if c.cfg.ExitWhenIdle {
				logger.Info().Msg("frontier exhausted, every known player is fresh")
				return nil
			}
			logger.Debug().Dur("idle_wait", c.cfg.IdleWait).Msg("frontier idle")
			sleep(ctx, c.cfg.IdleWait)
			continue
		}

		if _, err := c.Visit(logger.WithContext(ctx), tag); err != nil {
			var apiErr *api.APIError
			switch {
			case errors.As(err, &apiErr):
				return err
			case ctx.Err() != nil:
				continue
			default:
				logger.Warn().Err(err).Str("tag", tag).Msg("visit aborted")
			}
		}
	}
}

// Visit fetches and ingests the battlelog of tag, then records the visit.
// A failed fetch leaves the player unvisited.
func (c *Crawler) Visit(ctx context.Context, tag string) (domain.VisitResult, error) {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &c.logger
	}
	visitLogger := logger.With().Str("visit_id", uuid.New().String()).Str("tag", tag).Logger()

	if err := c.pacer.Wait(ctx); err != nil {
		return domain.VisitResult{}, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	start := time.Now()
	battles, err := c.fetcher.GetBattleLog(fetchCtx, tag)
	if err != nil {
		return domain.VisitResult{}, fmt.Errorf("failed to fetch battlelog of %s: %w", tag, err)
	}
	visitLogger.Debug().
		Int("battles", len(battles)).
		Dur("elapsed", time.Since(start)).
		Msg("battlelog fetched")

	res := c.ingest(ctx, tag, battles, visitLogger)
	res.VisitedAt = c.now()

	if err := c.frontier.RecordVisit(ctx, tag, res.VisitedAt); err != nil {
		return res, err
	}

	if res.Inserted > 0 {
		visitLogger.Info().
			Int("inserted", res.Inserted).
			Int("total", res.Total).
			Msgf("insert [%d/%d] battles for %s", res.Inserted, res.Total, tag)
	}
	return res, nil
}

// Ingest stores the eligible battles of subject's battlelog without fetching
// or recording a visit.
func (c *Crawler) Ingest(ctx context.Context, subject string, battles []api.Battle) domain.VisitResult {
	return c.ingest(ctx, subject, battles, c.logger.With().Str("tag", subject).Logger())
}

func (c *Crawler) ingest(ctx context.Context, subject string, battles []api.Battle, logger zerolog.Logger) domain.VisitResult {
	res := domain.VisitResult{Tag: subject, Total: len(battles)}

	for i, raw := range battles {
		if !c.filter.IsEligible(raw) {
			continue
		}

		b, err := canonical.Canonicalize(raw)
		if err != nil {
			logger.Debug().Err(err).Int("index", i).Msg("skipping battle")
			continue
		}
		res.Eligible++

		stored, err := c.store(ctx, subject, &b)
		if err != nil {
			res.Failed++
			logger.Error().Err(err).Int("index", i).Time("battle_time", b.Time).Msg("failed to store battle")
			continue
		}
		if stored.Existed {
			res.Duplicates++
		} else {
			res.Inserted++
		}
	}

	return res
}

func (c *Crawler) store(ctx context.Context, subject string, b *domain.Battle) (domain.Resolution, error) {
	if _, err := c.frontier.Discover(ctx, b.Opponent(subject).Tag); err != nil {
		return domain.Resolution{}, err
	}
	if err := c.gate.ResolveDecks(ctx, b); err != nil {
		return domain.Resolution{}, err
	}
	return c.gate.ResolveBattle(ctx, *b)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
