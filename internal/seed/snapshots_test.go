package seed

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"schoolbridge/internal/fallback"
	"schoolbridge/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	rows      map[string]*types.Snapshot
	failWrite error
}

func (m *memoryRepo) AllSnapshots(_ context.Context) ([]*types.Snapshot, error) {
	out := make([]*types.Snapshot, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryRepo) UpsertSnapshot(_ context.Context, s *types.Snapshot) error {
	if m.failWrite != nil {
		return m.failWrite
	}
	m.rows[s.Key] = s
	return nil
}

func (m *memoryRepo) DeleteSnapshot(_ context.Context, key string) error {
	delete(m.rows, key)
	return nil
}

func TestSeedSnapshotsWritesEveryKey(t *testing.T) {
	logger, hook := test.NewNullLogger()
	repo := &memoryRepo{rows: map[string]*types.Snapshot{
		"retired_key": {Key: "retired_key", Payload: []byte(`[]`)},
	}}

	result, err := SeedSnapshots(context.Background(), repo, fallback.NewStatic(), logger)
	require.NoError(t, err)

	assert.Equal(t, len(fallback.Keys()), result.Upserted)
	assert.Equal(t, 1, result.Deleted)
	assert.NotContains(t, repo.rows, "retired_key")
	assert.Len(t, repo.rows, len(fallback.Keys()))
	assert.NotEmpty(t, hook.AllEntries())

	var needs []types.Need
	require.NoError(t, json.Unmarshal(repo.rows[string(fallback.KeySchoolNeeds)].Payload, &needs))
	assert.NotEmpty(t, needs)
}

func TestSeededSnapshotsServeAsFallback(t *testing.T) {
	logger, _ := test.NewNullLogger()
	repo := &memoryRepo{rows: map[string]*types.Snapshot{}}

	_, err := SeedSnapshots(context.Background(), repo, fallback.NewStatic(), logger)
	require.NoError(t, err)

	src := fallback.NewSnapshots(readerFunc(func(_ context.Context, key string) (*types.Snapshot, error) {
		return repo.rows[key], nil
	}))

	raw, err := src.Lookup(context.Background(), fallback.KeyPlatformStats)
	require.NoError(t, err)

	var stats types.PlatformStats
	require.NoError(t, json.Unmarshal(raw, &stats))
	assert.Equal(t, 128, stats.SchoolsServed)
}

func TestSeedSnapshotsStopsOnWriteError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	boom := errors.New("boom")
	repo := &memoryRepo{rows: map[string]*types.Snapshot{}, failWrite: boom}

	result, err := SeedSnapshots(context.Background(), repo, fallback.NewStatic(), logger)
	require.ErrorIs(t, err, boom)
	assert.Zero(t, result.Upserted)
}

type readerFunc func(ctx context.Context, key string) (*types.Snapshot, error)

func (f readerFunc) Snapshot(ctx context.Context, key string) (*types.Snapshot, error) {
	return f(ctx, key)
}
