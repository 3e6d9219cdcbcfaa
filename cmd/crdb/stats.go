package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/S1M0N38/cr-db/internal/constants"
	"github.com/S1M0N38/cr-db/internal/domain"
	fxmodules "github.com/S1M0N38/cr-db/internal/fx"
	"github.com/S1M0N38/cr-db/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print player, deck and battle counts",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
}

func runStatsCmd(cmd *cobra.Command, args []string) error {
	var stats server.StatsReader

	app := fx.New(
		fx.NopLogger,
		fx.Supply(overridesFrom(cmd.Flags())),
		fxmodules.Module,
		fx.Populate(&stats),
	)
	if err := app.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), constants.DatabaseTimeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer stop()
		_ = app.Stop(stopCtx)
	}()

	snap, err := stats.Snapshot(ctx)
	if err != nil {
		return err
	}
	return printSnapshot(cmd.OutOrStdout(), snap)
}

func printSnapshot(w io.Writer, snap domain.Snapshot) error {
	lastVisit := "never"
	if snap.LastVisit != nil {
		lastVisit = snap.LastVisit.Format(time.RFC3339)
	}
	_, err := fmt.Fprintf(w,
		"players:  %d (%d visited)\ndecks:    %d\nbattles:  %d\nlast visit: %s\n",
		snap.Players, snap.VisitedPlayers, snap.Decks, snap.Battles, lastVisit)
	return err
}
