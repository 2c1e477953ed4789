// Package storage abstracts where the canonical transactions CSV lives.
// The store only ever reads whole snapshots and the upload flow only ever
// replaces them wholesale, so the interface is deliberately two methods.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Fetch when the source has never been written.
// The store treats it as "empty table", not as a failure.
var ErrNotFound = errors.New("source not found")

// Source is a persisted location for the canonical transactions CSV.
type Source interface {
	// Fetch returns the full current content of the source.
	Fetch(ctx context.Context) ([]byte, error)

	// Replace atomically overwrites the source with data. A reader must
	// never observe a half-written source.
	Replace(ctx context.Context, data []byte) error
}
