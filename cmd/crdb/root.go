package main

import (
	"time"

	"github.com/S1M0N38/cr-db/internal/config"
	"github.com/S1M0N38/cr-db/internal/constants"
	fxmodules "github.com/S1M0N38/cr-db/internal/fx"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crdb",
		Short: "Crawl ranked ladder battles into SQLite",
		Long: `crdb walks the player graph reachable from a seed player, always visiting
the least recently visited player next, and stores every eligible battle,
deck and opponent exactly once.

The API token is read from token.txt when present, otherwise from
CLASH_ROYALE_API_TOKEN. Flags override environment variables and .env.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fx.New(
				fx.Supply(overridesFrom(cmd.Flags())),
				fxmodules.CrawlModule,
			).Run()
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("db", constants.DefaultDBPath, "database file")
	flags.String("log", "info", "console log level")
	flags.String("token-file", constants.DefaultTokenFile, "file holding the API token")

	cmd.Flags().String("player", constants.DefaultSeedPlayer, "seed player used when the database has no players")
	cmd.Flags().Float64("sleep", constants.DefaultRequestDelay.Seconds(), "seconds between API requests")
	cmd.Flags().Float64("staleness", constants.DefaultStaleness.Seconds(), "seconds before a visited player is crawled again")
	cmd.Flags().Float64("idle-wait", constants.DefaultIdleWait.Seconds(), "seconds to wait when no player is stale")
	cmd.Flags().Bool("exit-when-idle", false, "exit instead of waiting when no player is stale")
	cmd.Flags().String("status-port", "", "serve crawl status on this port")

	cmd.AddCommand(NewStatsCmd())

	return cmd
}

// overridesFrom keeps only flags the user actually set.
func overridesFrom(flags *pflag.FlagSet) config.Overrides {
	var ov config.Overrides

	str := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetString(name)
		if err != nil {
			return nil
		}
		return &v
	}
	seconds := func(name string) *time.Duration {
		if !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetFloat64(name)
		if err != nil {
			return nil
		}
		d := time.Duration(v * float64(time.Second))
		return &d
	}

	ov.DBPath = str("db")
	ov.LogLevel = str("log")
	ov.TokenFile = str("token-file")
	ov.SeedTag = str("player")
	ov.StatusPort = str("status-port")
	ov.RequestDelay = seconds("sleep")
	ov.Staleness = seconds("staleness")
	ov.IdleWait = seconds("idle-wait")

	if flags.Changed("exit-when-idle") {
		if v, err := flags.GetBool("exit-when-idle"); err == nil {
			ov.ExitWhenIdle = &v
		}
	}
	return ov
}
