// Package source defines the record source the ledger reads its snapshot
// from, and the writer the write service uses.
package source

import (
	"context"
	"fmt"

	"villaledger/internal/core"
)

// Record is one row of a collection as the store returns it. Field names
// follow the store schema (villa_id, created_at, ...).
type Record map[string]any

// Ports for outbound adapters.
type (
	// RecordSource returns the full contents of a named collection.
	// A legitimately empty collection yields an empty slice and no error.
	RecordSource interface {
		SelectAll(ctx context.Context, collection string) ([]Record, error)
	}

	// RecordWriter inserts and deletes rows of a named collection.
	RecordWriter interface {
		Insert(ctx context.Context, collection string, r Record) (id string, err error)
		Delete(ctx context.Context, collection string, id string) error
	}

	// Store is a source that can also be written to.
	Store interface {
		RecordSource
		RecordWriter
	}
)

// ValidateCollection rejects names outside the three ledger collections.
func ValidateCollection(name string) error {
	for _, c := range core.Collections {
		if c == name {
			return nil
		}
	}
	return fmt.Errorf("unknown collection %q", name)
}

// Unavailable wraps a transport or auth failure so callers can test it with
// errors.Is(err, core.ErrSourceUnavailable).
func Unavailable(collection string, err error) error {
	return fmt.Errorf("%w: select %s: %w", core.ErrSourceUnavailable, collection, err)
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
