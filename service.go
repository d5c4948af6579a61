package fsmkit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// serviceInboxSize bounds the buffer of forwarded events per service.
const serviceInboxSize = 16

// ServiceID names an invoked service within one machine definition.
type ServiceID string

// Cleanup releases whatever a service factory acquired. Nil is treated as a
// no-op. The machine invokes it exactly once per started service, with no
// concurrent re-entry, whenever the owning state is exited or the machine
// stops.
type Cleanup func() error

// ServiceFactory starts a service when its state is entered. It must return
// synchronously; long-running work belongs in a goroutine (see Go). An error
// abandons the entry: the machine stays in its previous state and services
// already started for the aborted entry are released.
type ServiceFactory func(scope *ServiceScope) (Cleanup, error)

// ServiceSpec pairs a service id with the factory that starts it.
type ServiceSpec struct {
	ID    ServiceID
	Start ServiceFactory
}

// ServiceScope is a service's view of its owning machine: the context and
// event that caused the entry, a channel of events explicitly forwarded to
// the service, and a way to send events back into the machine.
type ServiceScope struct {
	serviceID ServiceID
	machineID string
	entryCtx  Context
	entryEvt  Event
	inbox     chan Event
	log       *slog.Logger
	machine   *Machine
	handle    *serviceHandle
}

// ServiceID returns the id the service was declared under.
func (s *ServiceScope) ServiceID() ServiceID {
	return s.serviceID
}

// MachineID returns the id of the owning machine.
func (s *ServiceScope) MachineID() string {
	return s.machineID
}

// Context returns the machine context captured when the state was entered.
// The service owns the returned value; later machine updates are not
// reflected in it.
func (s *ServiceScope) Context() Context {
	return s.entryCtx
}

// Event returns the event that triggered the entry. For the initial state on
// Start it is the zero Event.
func (s *ServiceScope) Event() Event {
	return s.entryEvt
}

// Events returns the service's inbox of forwarded events. Only rules
// declared with WithForward deliver here; the channel is closed when the
// service is released.
func (s *ServiceScope) Events() <-chan Event {
	return s.inbox
}

// Send submits an event to the owning machine's queue, interleaved with
// externally sent events in arrival order. After the service is released it
// fails with ErrServiceReleased; after the machine stops, with
// ErrInstanceStopped.
func (s *ServiceScope) Send(evt Event) error {
	if s.handle.released.Load() {
		return ErrServiceReleased
	}
	return s.machine.Send(evt)
}

// Logger returns a logger annotated with the machine and service ids.
func (s *ServiceScope) Logger() *slog.Logger {
	return s.log
}

// serviceHandle owns one running service. Release order matters: the
// released flag stops further sends, closing the inbox lets range-based
// consumers drain and exit, and only then does cleanup run so it can safely
// wait for them.
type serviceHandle struct {
	id       ServiceID
	scope    *ServiceScope
	cleanup  Cleanup
	once     sync.Once
	released atomic.Bool
}

func (h *serviceHandle) release() error {
	var err error
	h.once.Do(func() {
		h.released.Store(true)
		close(h.scope.inbox)
		if h.cleanup != nil {
			err = safeCleanup(h.cleanup)
		}
	})
	return err
}

// deliver places a forwarded event into the service inbox without blocking.
// It reports whether the event was accepted.
func (h *serviceHandle) deliver(evt Event) bool {
	if h.released.Load() {
		return false
	}
	select {
	case h.scope.inbox <- evt:
		return true
	default:
		return false
	}
}

func safeFactory(start ServiceFactory, scope *ServiceScope) (cleanup Cleanup, err error) {
	defer func() {
		if r := recover(); r != nil {
			cleanup = nil
			err = fmt.Errorf("service factory panic: %v", r)
		}
	}()
	return start(scope)
}

func safeCleanup(cleanup Cleanup) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("service cleanup panic: %v", r)
		}
	}()
	return cleanup()
}

// Go adapts a goroutine-shaped service to the factory contract: fn runs in
// its own goroutine with a context that is cancelled on release, and the
// returned cleanup waits for fn to return. fn should select on ctx.Done or
// range scope.Events, both of which unblock on release.
func Go(fn func(ctx context.Context, scope *ServiceScope)) ServiceFactory {
	return func(scope *ServiceScope) (Cleanup, error) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		go func() {
			defer close(done)
			defer func() {
				if r := recover(); r != nil {
					scope.Logger().Error("service panic",
						slog.String("service_id", string(scope.ServiceID())),
						slog.Any("panic", r))
				}
			}()
			fn(ctx, scope)
		}()

		return func() error {
			cancel()
			<-done
			return nil
		}, nil
	}
}
