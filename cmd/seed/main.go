package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oggyb/discovery/internal/config"
	"github.com/oggyb/discovery/internal/db"
	"github.com/oggyb/discovery/internal/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newSeedCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newSeedCmd() *cobra.Command {
	var (
		count   int
		minimal bool
		centre  db.Point
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Reset the database and load demo users",
		Long: "Clears every table, then creates --count users around the centre point with likes and matches.\n" +
			"--minimal loads the three fixed fixture profiles instead.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			logger.InitFromConfig(cfg)

			database, err := db.NewDB(cfg)
			if err != nil {
				return fmt.Errorf("init db: %w", err)
			}
			defer func() { _ = db.Close(database) }()

			if minimal {
				if err := db.Clear(database); err != nil {
					return err
				}
				err = db.SeedMinimalTestData(database)
			} else {
				err = db.SeedTestData(database, count, centre)
			}
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			logger.Info("seeding completed", "minimal", minimal, "count", count)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 200, "number of users to create")
	cmd.Flags().BoolVar(&minimal, "minimal", false, "load only the C/D/E fixtures")
	cmd.Flags().Float64Var(&centre.Latitude, "lat", 51.5072, "latitude of the centre point")
	cmd.Flags().Float64Var(&centre.Longitude, "lon", -0.1276, "longitude of the centre point")
	return cmd
}
