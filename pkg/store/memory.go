package store

import (
	"context"
	"sync"

	"github.com/dmitrymomot/fsmkit"
)

// MemoryStore implements Store using in-memory storage. Suitable for tests
// and single-process deployments where snapshots do not need to survive a
// restart.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]fsmkit.Snapshot
}

// NewMemoryStore creates a new in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]fsmkit.Snapshot),
	}
}

// Save persists a snapshot, overwriting any existing snapshot with the same ID.
func (m *MemoryStore) Save(ctx context.Context, snap fsmkit.Snapshot) error {
	if snap.ID == "" {
		return ErrInvalidSnapshot
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Clone the context so later machine updates do not leak into the store.
	snap.Context = snap.Context.Clone()
	m.snapshots[snap.ID] = snap
	return nil
}

// Load retrieves a snapshot by machine ID.
func (m *MemoryStore) Load(ctx context.Context, id string) (fsmkit.Snapshot, error) {
	m.mu.RLock()
	snap, exists := m.snapshots[id]
	m.mu.RUnlock()

	if !exists {
		return fsmkit.Snapshot{}, ErrSnapshotNotFound
	}

	snap.Context = snap.Context.Clone()
	return snap, nil
}

// Delete removes a snapshot by machine ID.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.snapshots, id)
	return nil
}

// Len returns the number of stored snapshots.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}
