package persistence

import (
	"context"
	"time"
)

// Record is one stored pipeline row. Data is the encoded state document
// and is treated as opaque bytes by every store: unknown document keys
// must round-trip unmodified.
type Record struct {
	PKey    string
	AppName string
	Data    []byte
	Created time.Time
	Updated time.Time
}

// Store handles storage of pipeline records.
type Store interface {
	// Insert stores a brand-new record. It returns api.ErrKeyConflict if
	// a record with the same pkey already exists.
	Insert(ctx context.Context, rec Record) error

	// Get returns the record for pkey, or api.ErrPipelineNotFound.
	Get(ctx context.Context, pkey string) (Record, error)

	// Update replaces the record's data and updated stamp wholesale.
	// There is no partial patch and no version check: last writer wins.
	Update(ctx context.Context, pkey string, data []byte, updated time.Time) error

	// ScanKeys returns the pkeys belonging to appName that start with
	// prefix, sorted ascending. An empty prefix matches every key.
	ScanKeys(ctx context.Context, appName, prefix string) ([]string, error)
}
