package fsmkit

import (
	"errors"
	"fmt"
)

var (
	ErrNotStarted      = errors.New("machine not started")
	ErrAlreadyRunning  = errors.New("machine already running")
	ErrInstanceStopped = errors.New("machine stopped")
	ErrQueueFull       = errors.New("event queue full")
	ErrServiceReleased = errors.New("service released")
)

// ErrInvalidDefinition indicates a structurally invalid machine definition.
// It is fatal: no Definition or Machine is produced.
type ErrInvalidDefinition struct {
	Reason string
}

func (e *ErrInvalidDefinition) Error() string {
	return fmt.Sprintf("invalid machine definition: %s", e.Reason)
}

func NewErrInvalidDefinition(reason string) *ErrInvalidDefinition {
	return &ErrInvalidDefinition{Reason: reason}
}

// ErrTransitionFailed indicates that processing an event in a given state
// failed and the attempted transition was abandoned. State and context are
// unchanged; the machine keeps accepting events.
type ErrTransitionFailed struct {
	State StateID
	Event EventType
	Err   error
}

func (e *ErrTransitionFailed) Error() string {
	return fmt.Sprintf("transition from state '%s' on event '%s' failed: %v", e.State, e.Event, e.Err)
}

func (e *ErrTransitionFailed) Unwrap() error {
	return e.Err
}

func NewErrTransitionFailed(state StateID, event EventType, err error) *ErrTransitionFailed {
	return &ErrTransitionFailed{
		State: state,
		Event: event,
		Err:   err,
	}
}

func IsInvalidDefinitionError(err error) bool {
	var e *ErrInvalidDefinition
	return errors.As(err, &e)
}

func IsTransitionFailedError(err error) bool {
	var e *ErrTransitionFailed
	return errors.As(err, &e)
}
