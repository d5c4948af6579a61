package store

import (
	"context"

	"github.com/dmitrymomot/fsmkit"
)

// Store defines the interface for snapshot persistence. Snapshots are keyed
// by machine ID; saving an ID that already exists replaces the previous
// snapshot.
type Store interface {
	// Save persists a snapshot, overwriting any existing snapshot with the same ID.
	Save(ctx context.Context, snap fsmkit.Snapshot) error

	// Load retrieves a snapshot by machine ID.
	Load(ctx context.Context, id string) (fsmkit.Snapshot, error)

	// Delete removes a snapshot by machine ID. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error
}
