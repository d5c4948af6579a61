package fsmkit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit"
)

// fakeClock implements fsmkit.Clock with manually fired timers, so delayed
// transitions can be tested without sleeping.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{}
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) fsmkit.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, delay: d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// fire runs the callbacks of every armed, unfired timer with the given delay.
func (c *fakeClock) fire(d time.Duration) {
	c.mu.Lock()
	var fns []func()
	for _, t := range c.timers {
		if t.delay == d && !t.stopped && !t.fired {
			t.fired = true
			fns = append(fns, t.fn)
		}
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// armed counts timers that are neither stopped nor fired.
func (c *fakeClock) armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// last returns the most recently created timer.
func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func TestMachine_AfterTransitions(t *testing.T) {
	t.Parallel()

	const closeDelay = 500 * time.Millisecond

	// probe waits until every queued event, including timer shots, has been
	// processed: its own processing is a silent discard queued behind them.
	probe := func(t *testing.T, m *fsmkit.Machine) {
		t.Helper()
		require.NoError(t, m.SendSync(context.Background(), fsmkit.NewEvent("PROBE", nil)))
	}

	t.Run("door closes itself after the delay", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		m, err := doorDefinition().NewMachine(fsmkit.WithClock(clock))
		require.NoError(t, err)
		require.NoError(t, m.Start(context.Background()))
		defer func() { _ = m.Stop() }()

		ctx := context.Background()
		require.NoError(t, m.SendSync(ctx, fsmkit.NewEvent("OPEN", nil)))
		require.NoError(t, m.SendSync(ctx, fsmkit.NewEvent("CLOSE", nil)))
		assert.Equal(t, fsmkit.StateID("closing"), m.Current())
		assert.Equal(t, 1, clock.armed())

		clock.fire(closeDelay)
		probe(t, m)
		assert.Equal(t, fsmkit.StateID("closed"), m.Current())
	})

	t.Run("leaving the state cancels the timer", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		m, err := doorDefinition().NewMachine(fsmkit.WithClock(clock))
		require.NoError(t, err)
		require.NoError(t, m.Start(context.Background()))
		defer func() { _ = m.Stop() }()

		ctx := context.Background()
		require.NoError(t, m.SendSync(ctx, fsmkit.NewEvent("OPEN", nil)))
		require.NoError(t, m.SendSync(ctx, fsmkit.NewEvent("CLOSE", nil)))

		// Reopen while closing: the pending close must never apply.
		require.NoError(t, m.SendSync(ctx, fsmkit.NewEvent("OPEN", nil)))
		assert.Equal(t, fsmkit.StateID("open"), m.Current())
		assert.Equal(t, 0, clock.armed())

		clock.fire(closeDelay)
		probe(t, m)
		assert.Equal(t, fsmkit.StateID("open"), m.Current())
	})

	t.Run("a stale shot from a previous occupancy is discarded", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		m, err := doorDefinition().NewMachine(fsmkit.WithClock(clock))
		require.NoError(t, err)
		require.NoError(t, m.Start(context.Background()))
		defer func() { _ = m.Stop() }()

		ctx := context.Background()
		require.NoError(t, m.SendSync(ctx, fsmkit.NewEvent("OPEN", nil)))
		require.NoError(t, m.SendSync(ctx, fsmkit.NewEvent("CLOSE", nil)))
		stale := clock.last()
		require.NoError(t, m.SendSync(ctx, fsmkit.NewEvent("OPEN", nil)))

		// time.AfterFunc may already be running its callback when Stop
		// returns false; invoking the cancelled timer's callback reproduces
		// that race. The shot carries the old occupancy and must not apply.
		stale.fn()
		probe(t, m)
		assert.Equal(t, fsmkit.StateID("open"), m.Current())
	})

	t.Run("timer re-arms on every entry", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		m, err := doorDefinition().NewMachine(fsmkit.WithClock(clock))
		require.NoError(t, err)
		require.NoError(t, m.Start(context.Background()))
		defer func() { _ = m.Stop() }()

		ctx := context.Background()
		for range 2 {
			require.NoError(t, m.SendSync(ctx, fsmkit.NewEvent("OPEN", nil)))
			require.NoError(t, m.SendSync(ctx, fsmkit.NewEvent("CLOSE", nil)))
			clock.fire(closeDelay)
			probe(t, m)
			assert.Equal(t, fsmkit.StateID("closed"), m.Current())
		}
		assert.Len(t, clock.timers, 2)
	})

	t.Run("guards and actions apply to timer shots", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		def := fsmkit.MustNewDefinition(
			fsmkit.WithInitial("waiting"),
			fsmkit.WithState("waiting",
				fsmkit.WithAfter(time.Second, "expired",
					fsmkit.WithGuard(func(ctx fsmkit.Context, evt fsmkit.Event) bool {
						return !ctx.GetBool("pinned")
					}),
					fsmkit.WithActions(fsmkit.Set("reason", "timeout")),
				),
				fsmkit.WithInternal("PIN",
					fsmkit.WithActions(fsmkit.Set("pinned", true)),
				),
			),
			fsmkit.WithState("expired"),
		)

		t.Run("guard passes", func(t *testing.T) {
			m, err := def.NewMachine(fsmkit.WithClock(clock))
			require.NoError(t, err)
			require.NoError(t, m.Start(context.Background()))
			defer func() { _ = m.Stop() }()

			clock.fire(time.Second)
			probe(t, m)
			assert.Equal(t, fsmkit.StateID("expired"), m.Current())
			assert.Equal(t, "timeout", m.Context().GetString("reason"))
		})

		t.Run("guard rejects", func(t *testing.T) {
			pinnedClock := newFakeClock()
			m, err := def.NewMachine(fsmkit.WithClock(pinnedClock))
			require.NoError(t, err)
			require.NoError(t, m.Start(context.Background()))
			defer func() { _ = m.Stop() }()

			require.NoError(t, m.SendSync(context.Background(), fsmkit.NewEvent("PIN", nil)))
			pinnedClock.fire(time.Second)
			probe(t, m)
			assert.Equal(t, fsmkit.StateID("waiting"), m.Current())
		})
	})

	t.Run("multiple delays on one state", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		def := fsmkit.MustNewDefinition(
			fsmkit.WithInitial("pending"),
			fsmkit.WithState("pending",
				fsmkit.WithAfter(time.Minute, "reminded"),
				fsmkit.WithAfter(time.Hour, "expired"),
			),
			fsmkit.WithState("reminded"),
			fsmkit.WithState("expired"),
		)
		m, err := def.NewMachine(fsmkit.WithClock(clock))
		require.NoError(t, err)
		require.NoError(t, m.Start(context.Background()))
		defer func() { _ = m.Stop() }()

		assert.Equal(t, 2, clock.armed())

		// The first delay wins; entering the new state cancels the other.
		clock.fire(time.Minute)
		probe(t, m)
		assert.Equal(t, fsmkit.StateID("reminded"), m.Current())
		assert.Equal(t, 0, clock.armed())
	})

	t.Run("timer shots carry a synthetic event type", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		var fired fsmkit.Event
		def := fsmkit.MustNewDefinition(
			fsmkit.WithInitial("waiting"),
			fsmkit.WithState("waiting",
				fsmkit.WithAfter(250*time.Millisecond, "done"),
			),
			fsmkit.WithState("done"),
		)
		m, err := def.NewMachine(
			fsmkit.WithClock(clock),
			fsmkit.WithOnTransition(func(te fsmkit.TransitionEvent) {
				fired = te.Event
			}),
		)
		require.NoError(t, err)
		require.NoError(t, m.Start(context.Background()))
		defer func() { _ = m.Stop() }()

		clock.fire(250 * time.Millisecond)
		probe(t, m)
		assert.Equal(t, fsmkit.EventType("after.250ms"), fired.Type)
	})

	t.Run("real clock fires", func(t *testing.T) {
		t.Parallel()

		transitioned := make(chan fsmkit.TransitionEvent, 1)
		def := fsmkit.MustNewDefinition(
			fsmkit.WithInitial("waiting"),
			fsmkit.WithState("waiting",
				fsmkit.WithAfter(10*time.Millisecond, "done"),
			),
			fsmkit.WithState("done"),
		)
		m, err := def.NewMachine(fsmkit.WithOnTransition(func(te fsmkit.TransitionEvent) {
			transitioned <- te
		}))
		require.NoError(t, err)
		require.NoError(t, m.Start(context.Background()))
		defer func() { _ = m.Stop() }()

		select {
		case te := <-transitioned:
			assert.Equal(t, fsmkit.StateID("done"), te.To)
		case <-time.After(time.Second):
			t.Fatal("delayed transition did not fire")
		}
	})
}
