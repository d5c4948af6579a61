package fsmkit

// TransitionRule maps an event arriving in a state to an optional target
// state plus context updates. A rule whose Target is empty or equal to the
// owning state is an internal transition: actions apply and the event may be
// forwarded, but no state is exited or entered and services are untouched.
//
// Rules for the same event type are kept in declaration order; the first one
// whose guard passes (or which has no guard) is selected and the rest are
// ignored.
type TransitionRule struct {
	Target    StateID
	Guard     Guard
	Actions   []ContextUpdater
	ForwardTo []ServiceID
}

// TransitionOption configures a single transition rule.
type TransitionOption func(*TransitionRule)

// WithGuard sets the guard deciding whether the rule applies.
func WithGuard(guard Guard) TransitionOption {
	return func(rule *TransitionRule) {
		if guard != nil {
			rule.Guard = guard
		}
	}
}

// WithActions appends context updaters to the rule.
func WithActions(actions ...ContextUpdater) TransitionOption {
	return func(rule *TransitionRule) {
		for _, action := range actions {
			if action != nil {
				rule.Actions = append(rule.Actions, action)
			}
		}
	}
}

// WithForward routes the triggering event to the listed services when the
// rule applies. Only services active at that moment receive it; the rest are
// skipped.
func WithForward(ids ...ServiceID) TransitionOption {
	return func(rule *TransitionRule) {
		rule.ForwardTo = append(rule.ForwardTo, ids...)
	}
}
