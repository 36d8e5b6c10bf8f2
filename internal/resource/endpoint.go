package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// RawFetcher fetches a literal endpoint path, such as *api.Client.
type RawFetcher interface {
	Fetch(ctx context.Context, path string) (json.RawMessage, error)
}

// ForEndpoint resolves a literal endpoint string through client and decodes
// the payload into T. An empty or null payload fails with ErrNoData.
func ForEndpoint[T any](client RawFetcher, path string) Fetcher[T] {
	return func(ctx context.Context) (T, error) {
		var out T

		raw, err := client.Fetch(ctx, path)
		if err != nil {
			return out, err
		}

		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return out, fmt.Errorf("%w: %s", ErrNoData, path)
		}

		if err := json.Unmarshal(raw, &out); err != nil {
			return out, fmt.Errorf("decode %s: %w", path, err)
		}

		return out, nil
	}
}
