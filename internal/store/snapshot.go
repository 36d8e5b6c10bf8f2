package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schoolbridge/internal/utils"
	"schoolbridge/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const snapshotTableName = "schoolbridge.snapshots"

var ErrSnapshotNotFound = errors.New("snapshot not found")

var snapshotColumns = utils.StructTagValues(types.Snapshot{})

// SnapshotRepository persists copies of backend read responses so the
// offline dataset can be refreshed without a redeploy.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Snapshot returns nil without an error when key has never been stored.
func (r *SnapshotRepository) Snapshot(ctx context.Context, key string) (*types.Snapshot, error) {
	query, args, err := psql().
		Select(snapshotColumns...).
		From(snapshotTableName).
		Where(sq.Eq{"key": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate snapshot query: %w", err)
	}

	var snapshot types.Snapshot
	err = pgxscan.Get(ctx, r.pool, &snapshot, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch snapshot %s: %w", key, err)
	}

	return &snapshot, nil
}

func (r *SnapshotRepository) AllSnapshots(ctx context.Context) ([]*types.Snapshot, error) {
	query, args, err := psql().
		Select(snapshotColumns...).
		From(snapshotTableName).
		OrderBy("key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate snapshots query: %w", err)
	}

	var snapshots = make([]*types.Snapshot, 0)
	err = pgxscan.Select(ctx, r.pool, &snapshots, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshots: %w", err)
	}

	return snapshots, nil
}

func (r *SnapshotRepository) UpsertSnapshot(ctx context.Context, snapshot *types.Snapshot) error {
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now()
	}

	snapshotMap := utils.StructToMap(snapshot)

	updateMap := make(map[string]any, len(snapshotMap))
	for k, v := range snapshotMap {
		if k != "key" {
			updateMap[k] = v
		}
	}

	query, args, err := psql().
		Insert(snapshotTableName).
		SetMap(snapshotMap).
		Suffix("ON CONFLICT (key) DO UPDATE SET " + buildUpdateClause(updateMap)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to upsert snapshot "+snapshot.Key)
}

func (r *SnapshotRepository) DeleteSnapshot(ctx context.Context, key string) error {
	query, args, err := psql().
		Delete(snapshotTableName).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
	}

	return nil
}
