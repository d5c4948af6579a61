package fsmkit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit"
)

func TestNewDefinition(t *testing.T) {
	t.Parallel()

	t.Run("valid definition", func(t *testing.T) {
		t.Parallel()

		def, err := fsmkit.NewDefinition(
			fsmkit.WithInitial("closed"),
			fsmkit.WithState("closed",
				fsmkit.WithTransition("OPEN", "open"),
			),
			fsmkit.WithState("open",
				fsmkit.WithTransition("CLOSE", "closing"),
			),
			fsmkit.WithState("closing",
				fsmkit.WithAfter(500*time.Millisecond, "closed"),
				fsmkit.WithTransition("OPEN", "open"),
			),
		)
		require.NoError(t, err)
		assert.Equal(t, fsmkit.StateID("closed"), def.Initial())
		assert.Equal(t, []fsmkit.StateID{"closed", "open", "closing"}, def.StateIDs())
	})

	t.Run("no states", func(t *testing.T) {
		t.Parallel()

		_, err := fsmkit.NewDefinition(fsmkit.WithInitial("a"))
		require.Error(t, err)
		assert.True(t, fsmkit.IsInvalidDefinitionError(err))
		assert.Contains(t, err.Error(), "no states declared")
	})

	t.Run("duplicate state id", func(t *testing.T) {
		t.Parallel()

		_, err := fsmkit.NewDefinition(
			fsmkit.WithInitial("a"),
			fsmkit.WithState("a"),
			fsmkit.WithState("a"),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate state id 'a'")
	})

	t.Run("initial state not set", func(t *testing.T) {
		t.Parallel()

		_, err := fsmkit.NewDefinition(fsmkit.WithState("a"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "initial state not set")
	})

	t.Run("initial state not declared", func(t *testing.T) {
		t.Parallel()

		_, err := fsmkit.NewDefinition(
			fsmkit.WithInitial("ghost"),
			fsmkit.WithState("a"),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "initial state 'ghost' not declared")
	})

	t.Run("transition targets unknown state", func(t *testing.T) {
		t.Parallel()

		_, err := fsmkit.NewDefinition(
			fsmkit.WithInitial("a"),
			fsmkit.WithState("a",
				fsmkit.WithTransition("GO", "nowhere"),
			),
		)
		require.Error(t, err)
		assert.True(t, fsmkit.IsInvalidDefinitionError(err))
		assert.Contains(t, err.Error(), "unknown state 'nowhere'")
	})

	t.Run("after targets unknown state", func(t *testing.T) {
		t.Parallel()

		_, err := fsmkit.NewDefinition(
			fsmkit.WithInitial("a"),
			fsmkit.WithState("a",
				fsmkit.WithAfter(time.Second, "nowhere"),
			),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown state 'nowhere'")
	})

	t.Run("empty event type", func(t *testing.T) {
		t.Parallel()

		_, err := fsmkit.NewDefinition(
			fsmkit.WithInitial("a"),
			fsmkit.WithState("a",
				fsmkit.WithTransition("", "a"),
			),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty event type")
	})

	t.Run("external transition with empty target", func(t *testing.T) {
		t.Parallel()

		_, err := fsmkit.NewDefinition(
			fsmkit.WithInitial("a"),
			fsmkit.WithState("a",
				fsmkit.WithTransition("GO", ""),
			),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty target")
	})

	t.Run("after with non-positive delay", func(t *testing.T) {
		t.Parallel()

		_, err := fsmkit.NewDefinition(
			fsmkit.WithInitial("a"),
			fsmkit.WithState("a",
				fsmkit.WithAfter(0, "a"),
			),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-positive delay")
	})

	t.Run("service with empty id", func(t *testing.T) {
		t.Parallel()

		_, err := fsmkit.NewDefinition(
			fsmkit.WithInitial("a"),
			fsmkit.WithState("a",
				fsmkit.WithService("", func(scope *fsmkit.ServiceScope) (fsmkit.Cleanup, error) {
					return nil, nil
				}),
			),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "service with empty id")
	})

	t.Run("service with nil factory", func(t *testing.T) {
		t.Parallel()

		_, err := fsmkit.NewDefinition(
			fsmkit.WithInitial("a"),
			fsmkit.WithState("a",
				fsmkit.WithService("svc", nil),
			),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil factory")
	})

	t.Run("duplicate service id within one state", func(t *testing.T) {
		t.Parallel()

		noop := func(scope *fsmkit.ServiceScope) (fsmkit.Cleanup, error) { return nil, nil }
		_, err := fsmkit.NewDefinition(
			fsmkit.WithInitial("a"),
			fsmkit.WithState("a",
				fsmkit.WithService("svc", noop),
				fsmkit.WithService("svc", noop),
			),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate service id 'svc'")
	})

	t.Run("same service id in different states is allowed", func(t *testing.T) {
		t.Parallel()

		noop := func(scope *fsmkit.ServiceScope) (fsmkit.Cleanup, error) { return nil, nil }
		_, err := fsmkit.NewDefinition(
			fsmkit.WithInitial("a"),
			fsmkit.WithState("a", fsmkit.WithService("svc", noop)),
			fsmkit.WithState("b", fsmkit.WithService("svc", noop)),
		)
		assert.NoError(t, err)
	})

	t.Run("forward to unknown service", func(t *testing.T) {
		t.Parallel()

		_, err := fsmkit.NewDefinition(
			fsmkit.WithInitial("a"),
			fsmkit.WithState("a",
				fsmkit.WithInternal("PING", fsmkit.WithForward("ghost")),
			),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown service 'ghost'")
	})

	t.Run("forward to service declared by another state", func(t *testing.T) {
		t.Parallel()

		noop := func(scope *fsmkit.ServiceScope) (fsmkit.Cleanup, error) { return nil, nil }
		_, err := fsmkit.NewDefinition(
			fsmkit.WithInitial("a"),
			fsmkit.WithState("a",
				fsmkit.WithInternal("PING", fsmkit.WithForward("svc")),
			),
			fsmkit.WithState("b", fsmkit.WithService("svc", noop)),
		)
		assert.NoError(t, err)
	})
}

func TestMustNewDefinition(t *testing.T) {
	t.Parallel()

	t.Run("returns definition when valid", func(t *testing.T) {
		t.Parallel()

		def := fsmkit.MustNewDefinition(
			fsmkit.WithInitial("a"),
			fsmkit.WithState("a"),
		)
		assert.NotNil(t, def)
	})

	t.Run("panics when invalid", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			fsmkit.MustNewDefinition(fsmkit.WithInitial("a"))
		})
	})
}
