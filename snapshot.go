package fsmkit

import "time"

// Snapshot is a serializable observation of one machine: its id, current
// state, and context. It is the minimal persistence contract: pkg/store
// saves and loads snapshots, and WithSnapshot resumes a fresh machine from
// one. Machine definitions themselves are never serialized.
type Snapshot struct {
	ID      string    `json:"id" yaml:"id"`
	State   StateID   `json:"state" yaml:"state"`
	Context Context   `json:"context" yaml:"context"`
	TakenAt time.Time `json:"taken_at" yaml:"taken_at"`
}

// Snapshot exports the current (state, context) pair. The context is a copy;
// holding the snapshot does not observe later machine updates. Before Start
// the state is empty.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		ID:      m.id,
		State:   m.current,
		Context: m.context.Clone(),
		TakenAt: time.Now().UTC(),
	}
}
