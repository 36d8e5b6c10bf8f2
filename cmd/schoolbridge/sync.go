package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"schoolbridge/internal/api"
	"schoolbridge/internal/db"
	"schoolbridge/internal/fallback"
	"schoolbridge/internal/store"
	"schoolbridge/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var syncCommand = &cli.Command{
	Name:  "sync",
	Usage: "Refresh the offline snapshots from the live backend",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Fetch every endpoint without writing snapshots",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		dryRun := c.Bool("dry-run")
		if !dryRun {
			if err := requireDatabase(cfg); err != nil {
				return err
			}
		}

		ctx := context.Background()
		logger := logrus.StandardLogger()

		// Snapshots must come from the backend, never from fallback data.
		cfg.FallbackEnabled = false
		_, client := newBackend(cfg, logger, nil)

		var repo *store.SnapshotRepository
		if !dryRun {
			pool, err := db.Connect(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			repo = store.NewSnapshotRepository(pool)
		}

		endpoints := api.SnapshotEndpoints()
		failed := 0
		for _, key := range fallback.Keys() {
			endpoint := endpoints[key]
			entry := logger.WithField("key", key).WithField("endpoint", endpoint.Path())

			var raw json.RawMessage
			if err := client.Do(ctx, endpoint, nil, &raw); err != nil {
				entry.WithError(err).Error("failed to fetch snapshot")
				failed++
				continue
			}

			if dryRun {
				entry.WithField("bytes", len(raw)).Info("fetched")
				continue
			}

			snapshot := &types.Snapshot{Key: string(key), Payload: raw, FetchedAt: time.Now()}
			if err := repo.UpsertSnapshot(ctx, snapshot); err != nil {
				return err
			}
			entry.WithField("bytes", len(raw)).Info("snapshot stored")
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d endpoints failed", failed, len(endpoints))
		}

		return nil
	},
}
