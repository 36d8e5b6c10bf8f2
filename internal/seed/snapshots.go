package seed

import (
	"context"
	"fmt"
	"time"

	"schoolbridge/internal/fallback"
	"schoolbridge/pkg/types"

	"github.com/sirupsen/logrus"
)

// SnapshotRepository is the subset of store.SnapshotRepository the seeder uses.
type SnapshotRepository interface {
	AllSnapshots(ctx context.Context) ([]*types.Snapshot, error)
	UpsertSnapshot(ctx context.Context, snapshot *types.Snapshot) error
	DeleteSnapshot(ctx context.Context, key string) error
}

type Result struct {
	Upserted int
	Deleted  int
}

// SeedSnapshots syncs the snapshot table with the compiled in offline dataset:
//   - every fallback key is upserted from src
//   - rows whose key is no longer a fallback key are deleted
func SeedSnapshots(ctx context.Context, repo SnapshotRepository, src fallback.Source, logger logrus.FieldLogger) (Result, error) {
	var result Result

	known := make(map[string]bool)
	for _, key := range fallback.Keys() {
		known[string(key)] = true
	}

	existing, err := repo.AllSnapshots(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to fetch existing snapshots: %w", err)
	}
	logger.WithField("count", len(existing)).Info("loaded existing snapshots")

	for _, snapshot := range existing {
		if known[snapshot.Key] {
			continue
		}

		logger.WithField("key", snapshot.Key).Info("deleting stale snapshot")
		if err := repo.DeleteSnapshot(ctx, snapshot.Key); err != nil {
			return result, fmt.Errorf("failed to delete snapshot %s: %w", snapshot.Key, err)
		}
		result.Deleted++
	}

	now := time.Now()
	for _, key := range fallback.Keys() {
		payload, err := src.Lookup(ctx, key)
		if err != nil {
			return result, fmt.Errorf("failed to load fallback %s: %w", key, err)
		}

		snapshot := &types.Snapshot{Key: string(key), Payload: payload, FetchedAt: now}
		if err := repo.UpsertSnapshot(ctx, snapshot); err != nil {
			return result, fmt.Errorf("failed to upsert snapshot %s: %w", key, err)
		}
		result.Upserted++
	}

	logger.WithFields(logrus.Fields{"upserted": result.Upserted, "deleted": result.Deleted}).Info("snapshot sync complete")

	return result, nil
}
