package fsmkit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/fsmkit"
)

func TestContext_Clone(t *testing.T) {
	t.Parallel()

	t.Run("copy is independent", func(t *testing.T) {
		t.Parallel()

		original := fsmkit.Context{"name": "door", "count": 1}
		clone := original.Clone()
		clone["name"] = "changed"

		assert.Equal(t, "door", original.GetString("name"))
		assert.Equal(t, "changed", clone.GetString("name"))
	})

	t.Run("nil receiver yields usable map", func(t *testing.T) {
		t.Parallel()

		var c fsmkit.Context
		clone := c.Clone()
		assert.NotNil(t, clone)
		clone["key"] = "value"
		assert.Equal(t, "value", clone.GetString("key"))
	})
}

func TestContext_Merge(t *testing.T) {
	t.Parallel()

	base := fsmkit.Context{"a": 1, "b": 2}
	patch := fsmkit.Context{"b": 20, "c": 30}
	merged := base.Merge(patch)

	// Neither input is modified.
	assert.Equal(t, 2, base.GetInt("b"))
	_, ok := base.Get("c")
	assert.False(t, ok)
	assert.Equal(t, 20, patch.GetInt("b"))

	// Patch keys win.
	assert.Equal(t, 1, merged.GetInt("a"))
	assert.Equal(t, 20, merged.GetInt("b"))
	assert.Equal(t, 30, merged.GetInt("c"))
}

func TestContext_Getters(t *testing.T) {
	t.Parallel()

	c := fsmkit.Context{
		"name":    "door",
		"int":     42,
		"int64":   int64(43),
		"float":   float64(44),
		"enabled": true,
	}

	t.Run("Get", func(t *testing.T) {
		v, ok := c.Get("name")
		assert.True(t, ok)
		assert.Equal(t, "door", v)

		_, ok = c.Get("missing")
		assert.False(t, ok)
	})

	t.Run("GetString", func(t *testing.T) {
		assert.Equal(t, "door", c.GetString("name"))
		assert.Equal(t, "", c.GetString("int"))
		assert.Equal(t, "", c.GetString("missing"))
	})

	t.Run("GetInt", func(t *testing.T) {
		assert.Equal(t, 42, c.GetInt("int"))
		// Snapshots deserialized from JSON carry numbers as int64 or float64.
		assert.Equal(t, 43, c.GetInt("int64"))
		assert.Equal(t, 44, c.GetInt("float"))
		assert.Equal(t, 0, c.GetInt("name"))
		assert.Equal(t, 0, c.GetInt("missing"))
	})

	t.Run("GetBool", func(t *testing.T) {
		assert.True(t, c.GetBool("enabled"))
		assert.False(t, c.GetBool("name"))
		assert.False(t, c.GetBool("missing"))
	})
}

func TestSet(t *testing.T) {
	t.Parallel()

	patch := fsmkit.Set("status", "ready")(fsmkit.Context{}, fsmkit.Event{})
	assert.Equal(t, "ready", patch.GetString("status"))
}

func TestAssign(t *testing.T) {
	t.Parallel()

	increment := fsmkit.Assign("count", func(ctx fsmkit.Context, evt fsmkit.Event) any {
		return ctx.GetInt("count") + 1
	})

	patch := increment(fsmkit.Context{"count": 2}, fsmkit.Event{})
	assert.Equal(t, 3, patch.GetInt("count"))
}
