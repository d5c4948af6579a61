package fsmkit

import "time"

// Clock schedules the delayed transitions declared with WithAfter. The
// default implementation delegates to time.AfterFunc; tests can inject a
// manual clock through WithClock.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a scheduled one-shot timer that can be stopped before it fires.
type Timer interface {
	// Stop cancels the timer and reports whether the call prevented it from
	// firing. Stopping an already-fired timer is harmless.
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// afterRule is one delayed transition: the rule applies when the delay
// elapses without the state having been left.
type afterRule struct {
	delay time.Duration
	rule  TransitionRule
}

// afterEventType names the synthetic event a fired timer submits, e.g.
// "after.500ms". Guards, actions, and observers see it like any other event.
func afterEventType(d time.Duration) EventType {
	return EventType("after." + d.String())
}
