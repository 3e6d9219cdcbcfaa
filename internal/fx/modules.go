package fx

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/S1M0N38/cr-db/internal/api"
	"github.com/S1M0N38/cr-db/internal/canonical"
	"github.com/S1M0N38/cr-db/internal/config"
	"github.com/S1M0N38/cr-db/internal/constants"
	"github.com/S1M0N38/cr-db/internal/database"
	"github.com/S1M0N38/cr-db/internal/db"
	"github.com/S1M0N38/cr-db/internal/logger"
	"github.com/S1M0N38/cr-db/internal/repository"
	"github.com/S1M0N38/cr-db/internal/server"
	"github.com/S1M0N38/cr-db/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideFilter(cfg *config.Config) canonical.Filter {
	return canonical.NewFilter(cfg.GameModes, cfg.MinTrophies)
}

func ProvideFrontier(players service.PlayerStore, cfg *config.Config, logger zerolog.Logger) *service.FrontierScheduler {
	return service.NewFrontierScheduler(players, cfg.Staleness, logger)
}

func ProvideCrawler(
	fetcher service.BattleLogFetcher,
	frontier *service.FrontierScheduler,
	gate *service.DedupGate,
	filter canonical.Filter,
	cfg *config.Config,
	logger zerolog.Logger,
) *service.Crawler {
	return service.NewCrawler(fetcher, frontier, gate, filter, service.CrawlerConfig{
		RequestDelay: cfg.RequestDelay,
		IdleWait:     cfg.IdleWait,
		ExitWhenIdle: cfg.ExitWhenIdle,
	}, logger)
}

// Module needs a config.Overrides supplied by the caller.
var Module = fx.Options(
	fx.Provide(config.Load),
	fx.Provide(logger.New),
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	// repos
	fx.Provide(
		fx.Annotate(repository.NewPlayerRepository, fx.As(new(service.PlayerStore))),
		fx.Annotate(repository.NewDeckRepository, fx.As(new(service.DeckStore))),
		fx.Annotate(repository.NewBattleRepository, fx.As(new(service.BattleStore))),
		fx.Annotate(repository.NewStatsRepository, fx.As(new(server.StatsReader))),
	),
	// api client
	fx.Provide(fx.Annotate(api.NewClient, fx.As(new(service.BattleLogFetcher)))),
	// svc
	fx.Provide(ProvideFilter),
	fx.Provide(ProvideFrontier),
	fx.Provide(service.NewDedupGate),
	fx.Provide(ProvideCrawler),
	// server
	fx.Provide(server.NewStatusServer),
	fx.Invoke(closeDatabase),
	fx.Invoke(logConfig),
)

// CrawlModule runs the crawl worker and, when a port is set, the status server.
var CrawlModule = fx.Options(
	Module,
	fx.Invoke(RunStatusServer),
	fx.Invoke(RunCrawler),
)

func logConfig(cfg *config.Config, logger zerolog.Logger) {
	logger.Info().Object("config", cfg).Msg("configuration loaded")
}

// closeDatabase is invoked first so its stop hook runs last.
func closeDatabase(lc fx.Lifecycle, sqlDB *sql.DB, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := sqlDB.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			return nil
		},
	})
}

func RunCrawler(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	crawler *service.Crawler,
	frontier *service.FrontierScheduler,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	runCtx, cancel := context.WithCancel(context.Background())
	g, gCtx := errgroup.WithContext(runCtx)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := frontier.Seed(ctx, canonical.NormalizeTag(cfg.SeedTag)); err != nil {
				cancel()
				return err
			}

			g.Go(func() error {
				err := crawler.Run(gCtx)
				if runCtx.Err() != nil {
					return err
				}

				var apiErr *api.APIError
				switch {
				case errors.As(err, &apiErr):
					logger.Error().
						Int("status", apiErr.StatusCode).
						Str("reason", apiErr.Reason).
						Str("message", apiErr.Message).
						Msg("upstream API rejected the request")
					return sd.Shutdown(fx.ExitCode(1))
				case err != nil:
					logger.Error().Err(err).Msg("crawl failed")
					return sd.Shutdown(fx.ExitCode(1))
				}
				return sd.Shutdown()
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			if err := g.Wait(); err != nil {
				logger.Debug().Err(err).Msg("crawl worker exited")
			}
			logger.Info().Msg("crawl worker stopped")
			return nil
		},
	})
}

func RunStatusServer(lc fx.Lifecycle, cfg *config.Config, status *server.StatusServer, logger zerolog.Logger) {
	if cfg.StatusPort == "" {
		return
	}

	srv := &http.Server{
		Addr:              ":" + cfg.StatusPort,
		Handler:           status.Handler(),
		ReadHeaderTimeout: constants.ExternalAPITimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("status server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error().Err(err).Msg("status server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("status server shutdown failed")
				return err
			}
			logger.Info().Msg("status server stopped")
			return nil
		},
	})
}
