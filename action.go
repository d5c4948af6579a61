package fsmkit

// ContextUpdater computes a context patch from the current context and the
// triggering event. The returned patch is shallow-merged into a fresh context
// value; returning nil means no change. Updaters run in declaration order and
// each sees the patches of the updaters before it. Like guards they must be
// pure: mutating ctx directly is not supported.
type ContextUpdater func(ctx Context, evt Event) Context

// Set returns an updater that patches a single key with a fixed value.
func Set(key string, value any) ContextUpdater {
	return func(Context, Event) Context {
		return Context{key: value}
	}
}

// Assign returns an updater that patches a single key with a computed value.
func Assign(key string, fn func(ctx Context, evt Event) any) ContextUpdater {
	return func(ctx Context, evt Event) Context {
		return Context{key: fn(ctx, evt)}
	}
}
