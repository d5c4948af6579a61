package fsmkit

import (
	"fmt"
	"time"
)

// StateID names a state within one machine definition.
type StateID string

// stateNode holds everything one state declares: transition rules per event
// type in declaration order, services started on entry, and delayed
// transitions armed on entry.
type stateNode struct {
	id          StateID
	transitions map[EventType][]TransitionRule
	services    []ServiceSpec
	afters      []afterRule

	// problems collects configuration mistakes for NewDefinition to report.
	problems []string
}

func newStateNode(id StateID) *stateNode {
	return &stateNode{
		id:          id,
		transitions: make(map[EventType][]TransitionRule),
	}
}

// StateOption configures a single state within a definition.
type StateOption func(*stateNode)

// WithTransition declares an external transition: when event arrives and the
// rule is selected, the machine exits the current state and enters target.
// Declaring target equal to the owning state keeps the rule internal, since
// re-entering the same state never restarts its services.
func WithTransition(event EventType, target StateID, opts ...TransitionOption) StateOption {
	return func(node *stateNode) {
		if event == "" {
			node.problems = append(node.problems, "transition with empty event type")
			return
		}
		if target == "" {
			node.problems = append(node.problems, fmt.Sprintf("transition on '%s' has empty target, use WithInternal for internal transitions", event))
			return
		}
		rule := TransitionRule{Target: target}
		for _, opt := range opts {
			opt(&rule)
		}
		node.transitions[event] = append(node.transitions[event], rule)
	}
}

// WithInternal declares an internal transition: actions and forwards apply
// but the state is not exited, so services keep running and timers stay
// armed.
func WithInternal(event EventType, opts ...TransitionOption) StateOption {
	return func(node *stateNode) {
		if event == "" {
			node.problems = append(node.problems, "internal transition with empty event type")
			return
		}
		rule := TransitionRule{}
		for _, opt := range opts {
			opt(&rule)
		}
		node.transitions[event] = append(node.transitions[event], rule)
	}
}

// WithService declares a service started every time the state is entered and
// released exactly once when it is left.
func WithService(id ServiceID, start ServiceFactory) StateOption {
	return func(node *stateNode) {
		if id == "" {
			node.problems = append(node.problems, "service with empty id")
			return
		}
		if start == nil {
			node.problems = append(node.problems, fmt.Sprintf("service '%s' has nil factory", id))
			return
		}
		node.services = append(node.services, ServiceSpec{ID: id, Start: start})
	}
}

// WithAfter declares a delayed transition: entering the state arms a timer
// that submits a synthetic event after delay, applying the rule exactly as if
// the event had been sent externally. Leaving the state cancels the timer.
func WithAfter(delay time.Duration, target StateID, opts ...TransitionOption) StateOption {
	return func(node *stateNode) {
		if delay <= 0 {
			node.problems = append(node.problems, fmt.Sprintf("after transition to '%s' has non-positive delay %s", target, delay))
			return
		}
		if target == "" {
			node.problems = append(node.problems, "after transition with empty target")
			return
		}
		rule := TransitionRule{Target: target}
		for _, opt := range opts {
			opt(&rule)
		}
		node.afters = append(node.afters, afterRule{delay: delay, rule: rule})
	}
}
