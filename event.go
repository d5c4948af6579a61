package fsmkit

// EventType discriminates events. Each machine definition declares a closed
// vocabulary of event types through its transition rules; sending a type the
// current state does not declare is a silent no-op.
type EventType string

// Event is a transient message driving a machine. It is consumed during
// processing and never retained afterwards.
type Event struct {
	Type    EventType
	Payload any
}

// NewEvent creates an event with the given type and payload.
func NewEvent(eventType EventType, payload any) Event {
	return Event{Type: eventType, Payload: payload}
}
