package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"schoolbridge/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticServesEveryKey(t *testing.T) {
	src := NewStatic()
	for _, key := range Keys() {
		raw, err := src.Lookup(context.Background(), key)
		require.NoError(t, err, key)
		assert.True(t, json.Valid(raw), key)
	}
}

func TestStaticUnknownKey(t *testing.T) {
	_, err := NewStatic().Lookup(context.Background(), Key("nope"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindNeed(t *testing.T) {
	raw, err := FindNeed(context.Background(), NewStatic(), "need-003")
	require.NoError(t, err)

	var need types.Need
	require.NoError(t, json.Unmarshal(raw, &need))
	assert.Equal(t, "圖書館藏書更新", need.Title)

	_, err = FindNeed(context.Background(), NewStatic(), "missing")
	assert.ErrorIs(t, err, ErrNeedNotFound)
}

type fakeSnapshots map[string]*types.Snapshot

func (f fakeSnapshots) Snapshot(_ context.Context, key string) (*types.Snapshot, error) {
	if key == "broken" {
		return nil, errors.New("db down")
	}
	return f[key], nil
}

func TestLayeredPrefersSnapshots(t *testing.T) {
	snapshots := fakeSnapshots{
		string(KeyPlatformStats): {Key: string(KeyPlatformStats), Payload: []byte(`{"schools_served":1}`)},
	}
	src := NewLayered(NewSnapshots(snapshots), NewStatic())

	raw, err := src.Lookup(context.Background(), KeyPlatformStats)
	require.NoError(t, err)
	assert.JSONEq(t, `{"schools_served":1}`, string(raw))

	raw, err = src.Lookup(context.Background(), KeyImpactStories)
	require.NoError(t, err)
	var stories []types.ImpactStory
	require.NoError(t, json.Unmarshal(raw, &stories))
	assert.Len(t, stories, 3)
}

func TestLayeredPropagatesReaderErrors(t *testing.T) {
	src := NewLayered(NewSnapshots(fakeSnapshots{}), NewStatic())
	_, err := src.Lookup(context.Background(), Key("broken"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
