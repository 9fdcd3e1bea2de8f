// Package snapshot persists encoded namespace contents. A namespace hands
// its encoded entry map to a Snapshotter on SAVE and reads it back at
// startup; the bytes are opaque here, only the namespace knows the layout.
//
// Two engines are provided: a flat file per namespace, and a shared badger
// database keyed by namespace name.
package snapshot

import (
	"context"
	"errors"
)

// ErrNoSnapshot reports a load from an engine that has never saved.
// Callers treat it as "start empty", not as a failure.
var ErrNoSnapshot = errors.New("snapshot: no snapshot present")

// Snapshotter durably stores one namespace's encoded contents.
type Snapshotter interface {
	// Save persists data, replacing any previous snapshot atomically.
	Save(ctx context.Context, data []byte) error

	// Load returns the last saved snapshot, or ErrNoSnapshot.
	Load(ctx context.Context) ([]byte, error)
}
