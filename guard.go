package fsmkit

// Guard is a predicate gating whether a transition rule applies. Guards must
// be pure: no side effects, no mutation of ctx, same answer for the same
// input. The machine evaluates candidates in declaration order and selects
// the first rule whose guard passes.
//
// A panicking guard is recovered and treated as an evaluation error: the
// event is abandoned without falling through to later rules.
type Guard func(ctx Context, evt Event) bool

// Not inverts a guard.
func Not(g Guard) Guard {
	return func(ctx Context, evt Event) bool {
		return !g(ctx, evt)
	}
}

// AllOf passes when every guard passes. With no guards it always passes.
func AllOf(guards ...Guard) Guard {
	return func(ctx Context, evt Event) bool {
		for _, g := range guards {
			if !g(ctx, evt) {
				return false
			}
		}
		return true
	}
}

// AnyOf passes when at least one guard passes.
func AnyOf(guards ...Guard) Guard {
	return func(ctx Context, evt Event) bool {
		for _, g := range guards {
			if g(ctx, evt) {
				return true
			}
		}
		return false
	}
}
