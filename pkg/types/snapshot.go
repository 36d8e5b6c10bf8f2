package types

import "time"

// Snapshot is a persisted copy of one fallback dataset slice.
type Snapshot struct {
	Key       string    `db:"key"`
	Payload   []byte    `db:"payload"`
	FetchedAt time.Time `db:"fetched_at"`
}
