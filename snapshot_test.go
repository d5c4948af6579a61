package fsmkit_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit"
)

func TestMachine_Snapshot(t *testing.T) {
	t.Parallel()

	t.Run("captures state and context", func(t *testing.T) {
		t.Parallel()

		m, err := doorDefinition().NewMachine(
			fsmkit.WithID("door-7"),
			fsmkit.WithInitialContext(fsmkit.Context{"owner": "alice"}),
		)
		require.NoError(t, err)
		require.NoError(t, m.Start(context.Background()))
		defer func() { _ = m.Stop() }()

		require.NoError(t, m.SendSync(context.Background(), fsmkit.NewEvent("OPEN", nil)))

		snap := m.Snapshot()
		assert.Equal(t, "door-7", snap.ID)
		assert.Equal(t, fsmkit.StateID("open"), snap.State)
		assert.Equal(t, "alice", snap.Context.GetString("owner"))
		assert.False(t, snap.TakenAt.IsZero())
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		t.Parallel()

		m, err := doorDefinition().NewMachine(
			fsmkit.WithInitialContext(fsmkit.Context{"owner": "alice"}),
		)
		require.NoError(t, err)
		require.NoError(t, m.Start(context.Background()))
		defer func() { _ = m.Stop() }()

		snap := m.Snapshot()
		snap.Context["owner"] = "mallory"
		assert.Equal(t, "alice", m.Context().GetString("owner"))

		// Later transitions do not show up in the old snapshot.
		require.NoError(t, m.SendSync(context.Background(), fsmkit.NewEvent("OPEN", nil)))
		assert.Equal(t, fsmkit.StateID("closed"), snap.State)
	})

	t.Run("before start the state is empty", func(t *testing.T) {
		t.Parallel()

		m, err := doorDefinition().NewMachine()
		require.NoError(t, err)

		snap := m.Snapshot()
		assert.Equal(t, fsmkit.StateID(""), snap.State)
	})

	t.Run("round-trips through JSON", func(t *testing.T) {
		t.Parallel()

		snap := fsmkit.Snapshot{
			ID:      "door-7",
			State:   "open",
			Context: fsmkit.Context{"owner": "alice", "count": 2},
			TakenAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		}
		data, err := json.Marshal(snap)
		require.NoError(t, err)

		var decoded fsmkit.Snapshot
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, snap.ID, decoded.ID)
		assert.Equal(t, snap.State, decoded.State)
		assert.Equal(t, "alice", decoded.Context.GetString("owner"))
		// JSON numbers decode as float64; GetInt converts.
		assert.Equal(t, 2, decoded.Context.GetInt("count"))
		assert.True(t, snap.TakenAt.Equal(decoded.TakenAt))
	})
}

func TestMachine_Restore(t *testing.T) {
	t.Parallel()

	t.Run("resumes state, context, and id", func(t *testing.T) {
		t.Parallel()

		var actionRuns atomic.Int32
		def := fsmkit.MustNewDefinition(
			fsmkit.WithInitial("pending"),
			fsmkit.WithState("pending",
				fsmkit.WithTransition("PAY", "paid",
					fsmkit.WithActions(func(ctx fsmkit.Context, evt fsmkit.Event) fsmkit.Context {
						actionRuns.Add(1)
						return fsmkit.Context{"paid_via": evt.Payload}
					}),
				),
			),
			fsmkit.WithState("paid"),
		)

		first, err := def.NewMachine()
		require.NoError(t, err)
		require.NoError(t, first.Start(context.Background()))
		require.NoError(t, first.SendSync(context.Background(), fsmkit.NewEvent("PAY", "card")))
		snap := first.Snapshot()
		require.NoError(t, first.Stop())

		second, err := def.NewMachine(fsmkit.WithSnapshot(snap))
		require.NoError(t, err)
		require.NoError(t, second.Start(context.Background()))
		defer func() { _ = second.Stop() }()

		assert.Equal(t, first.ID(), second.ID())
		assert.Equal(t, fsmkit.StateID("paid"), second.Current())
		assert.Equal(t, "card", second.Context().GetString("paid_via"))
		// Restoring replays no transition actions.
		assert.Equal(t, int32(1), actionRuns.Load())
	})

	t.Run("starts the restored state's services", func(t *testing.T) {
		t.Parallel()

		var starts atomic.Int32
		def := fsmkit.MustNewDefinition(
			fsmkit.WithInitial("idle"),
			fsmkit.WithState("idle",
				fsmkit.WithTransition("WORK", "working"),
			),
			fsmkit.WithState("working",
				fsmkit.WithService("worker", func(scope *fsmkit.ServiceScope) (fsmkit.Cleanup, error) {
					starts.Add(1)
					return nil, nil
				}),
			),
		)

		snap := fsmkit.Snapshot{ID: "job-1", State: "working", Context: fsmkit.Context{"attempt": 2}}
		m, err := def.NewMachine(fsmkit.WithSnapshot(snap))
		require.NoError(t, err)
		require.NoError(t, m.Start(context.Background()))
		defer func() { _ = m.Stop() }()

		assert.Equal(t, fsmkit.StateID("working"), m.Current())
		assert.Equal(t, int32(1), starts.Load())
		assert.Equal(t, 2, m.Context().GetInt("attempt"))
	})

	t.Run("arms the restored state's timers", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		snap := fsmkit.Snapshot{ID: "door-9", State: "closing"}
		m, err := doorDefinition().NewMachine(fsmkit.WithSnapshot(snap), fsmkit.WithClock(clock))
		require.NoError(t, err)
		require.NoError(t, m.Start(context.Background()))
		defer func() { _ = m.Stop() }()

		assert.Equal(t, 1, clock.armed())
		clock.fire(500 * time.Millisecond)
		require.NoError(t, m.SendSync(context.Background(), fsmkit.NewEvent("PROBE", nil)))
		assert.Equal(t, fsmkit.StateID("closed"), m.Current())
	})

	t.Run("unknown snapshot state is rejected", func(t *testing.T) {
		t.Parallel()

		snap := fsmkit.Snapshot{ID: "door-9", State: "ajar"}
		_, err := doorDefinition().NewMachine(fsmkit.WithSnapshot(snap))
		require.Error(t, err)
		assert.True(t, fsmkit.IsInvalidDefinitionError(err))
		assert.Contains(t, err.Error(), "ajar")
	})

	t.Run("snapshot context is copied at construction", func(t *testing.T) {
		t.Parallel()

		snapCtx := fsmkit.Context{"owner": "alice"}
		snap := fsmkit.Snapshot{ID: "door-9", State: "open", Context: snapCtx}
		m, err := doorDefinition().NewMachine(fsmkit.WithSnapshot(snap))
		require.NoError(t, err)

		snapCtx["owner"] = "mallory"
		require.NoError(t, m.Start(context.Background()))
		defer func() { _ = m.Stop() }()

		assert.Equal(t, "alice", m.Context().GetString("owner"))
	})
}
