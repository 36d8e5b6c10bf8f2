package main

import (
	"context"
	"fmt"

	"schoolbridge/internal/db"
	"schoolbridge/internal/fallback"
	"schoolbridge/internal/seed"
	"schoolbridge/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Write the built-in offline dataset into the snapshot table",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := requireDatabase(cfg); err != nil {
			return err
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		repo := store.NewSnapshotRepository(pool)

		_, err = seed.SeedSnapshots(ctx, repo, fallback.NewStatic(), logrus.StandardLogger())
		if err != nil {
			return fmt.Errorf("failed to seed snapshots: %w", err)
		}

		return nil
	},
}
