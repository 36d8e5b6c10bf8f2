package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"schoolbridge/pkg/types"
)

// Key names one slice of the offline dataset.
type Key string

const (
	KeySchoolNeeds               Key = "schoolNeeds"
	KeyCompanyNeeds              Key = "companyNeeds"
	KeyCompanyDashboardStats     Key = "companyDashboardStats"
	KeySchoolDashboardStats      Key = "schoolDashboardStats"
	KeyPlatformStats             Key = "platformStats"
	KeyAIRecommendedNeeds        Key = "aiRecommendedNeeds"
	KeyCompanyAIRecommendedNeeds Key = "companyAiRecommendedNeeds"
	KeyRecentProjects            Key = "recentProjects"
	KeyImpactStories             Key = "impactStories"
	KeyMyNeeds                   Key = "myNeeds"
	KeyCompanyDonations          Key = "companyDonations"
	KeyRecentActivity            Key = "recentActivity"
)

func Keys() []Key {
	return []Key{
		KeySchoolNeeds,
		KeyCompanyNeeds,
		KeyCompanyDashboardStats,
		KeySchoolDashboardStats,
		KeyPlatformStats,
		KeyAIRecommendedNeeds,
		KeyCompanyAIRecommendedNeeds,
		KeyRecentProjects,
		KeyImpactStories,
		KeyMyNeeds,
		KeyCompanyDonations,
		KeyRecentActivity,
	}
}

var (
	ErrNotFound     = errors.New("no fallback data")
	ErrNeedNotFound = errors.New("need not found in fallback data")
)

// Source serves raw JSON payloads for fallback keys.
type Source interface {
	Lookup(ctx context.Context, key Key) (json.RawMessage, error)
}

// FindNeed scans the school needs slice of src for the need with the given id.
func FindNeed(ctx context.Context, src Source, id string) (json.RawMessage, error) {
	raw, err := src.Lookup(ctx, KeySchoolNeeds)
	if err != nil {
		return nil, err
	}

	var needs []json.RawMessage
	if err := json.Unmarshal(raw, &needs); err != nil {
		return nil, fmt.Errorf("decode fallback needs: %w", err)
	}

	for _, item := range needs {
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(item, &head); err != nil {
			continue
		}
		if head.ID == id {
			return item, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNeedNotFound, id)
}

// Layered consults each source in order; the first one holding the key wins.
type Layered struct {
	sources []Source
}

func NewLayered(sources ...Source) *Layered {
	return &Layered{sources: sources}
}

func (l *Layered) Lookup(ctx context.Context, key Key) (json.RawMessage, error) {
	for _, src := range l.sources {
		raw, err := src.Lookup(ctx, key)
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// SnapshotReader is satisfied by the Postgres snapshot repository. A nil
// snapshot with a nil error means the key has never been stored.
type SnapshotReader interface {
	Snapshot(ctx context.Context, key string) (*types.Snapshot, error)
}

// Snapshots adapts a SnapshotReader into a Source.
type Snapshots struct {
	reader SnapshotReader
}

func NewSnapshots(reader SnapshotReader) *Snapshots {
	return &Snapshots{reader: reader}
}

func (s *Snapshots) Lookup(ctx context.Context, key Key) (json.RawMessage, error) {
	snapshot, err := s.reader.Snapshot(ctx, string(key))
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}

	if snapshot == nil || len(snapshot.Payload) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return json.RawMessage(snapshot.Payload), nil
}
