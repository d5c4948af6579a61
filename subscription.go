package fsmkit

import (
	"context"
	"log/slog"
	"sync"
)

// subscriberBufferSize is the channel buffer each Subscribe consumer gets.
const subscriberBufferSize = 16

// TransitionEvent describes one applied rule: the state before and after
// (equal for internal transitions), the triggering event, and a copy of the
// resulting context.
type TransitionEvent struct {
	MachineID string
	From      StateID
	To        StateID
	Event     Event
	Context   Context
}

// OnTransition registers a callback invoked synchronously on the machine's
// processing goroutine after each applied rule, in registration order.
// Callbacks therefore see transitions in exact order but must return
// promptly; a panicking callback is recovered and logged. Registration may
// happen at any time and takes effect for subsequent transitions.
func (m *Machine) OnTransition(fn func(TransitionEvent)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Subscribe returns a channel of transition events for consumers that prefer
// to range over changes, e.g. view layers re-rendering per update. Delivery
// is non-blocking: a subscriber that stops draining its buffer is dropped.
// The subscription ends, and the channel closes, when ctx is cancelled or
// the machine stops.
func (m *Machine) Subscribe(ctx context.Context) <-chan TransitionEvent {
	return m.fanout.subscribe(ctx)
}

// notify runs on the processing goroutine after each applied rule.
func (m *Machine) notify(te TransitionEvent) {
	m.mu.RLock()
	observers := m.observers
	m.mu.RUnlock()

	for _, fn := range observers {
		m.safeObserve(fn, te)
	}
	m.fanout.publish(te)
}

func (m *Machine) safeObserve(fn func(TransitionEvent), te TransitionEvent) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("transition observer panic",
				slog.String("machine_id", m.id),
				slog.Any("panic", r))
		}
	}()
	fn(te)
}

// fanout distributes transition events to channel subscribers, dropping
// slow consumers rather than blocking the processing loop. Safe for
// concurrent use.
type fanout struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

type subscriber struct {
	ch     chan TransitionEvent
	mu     sync.Mutex
	closed bool
}

func newFanout() *fanout {
	return &fanout{
		subs: make(map[*subscriber]struct{}),
		done: make(chan struct{}),
	}
}

func (f *fanout) subscribe(ctx context.Context) <-chan TransitionEvent {
	sub := &subscriber{ch: make(chan TransitionEvent, subscriberBufferSize)}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		sub.close()
		return sub.ch
	}
	f.subs[sub] = struct{}{}
	watch := ctx.Done() != nil
	if watch {
		// Registered under the lock so close cannot start waiting before
		// this watcher is counted.
		f.wg.Add(1)
	}
	f.mu.Unlock()

	if watch {
		go func() {
			defer f.wg.Done()
			select {
			case <-ctx.Done():
				f.remove(sub)
			case <-f.done:
			}
		}()
	}
	return sub.ch
}

func (f *fanout) publish(te TransitionEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	for sub := range f.subs {
		if !sub.send(te) {
			// Slow or closed subscriber: detach it without blocking this
			// publish. Removal takes the write lock, so it runs async.
			go f.remove(sub)
		}
	}
}

func (f *fanout) remove(sub *subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, sub)
	sub.close()
}

// close shuts the fanout down and closes every subscriber channel. Safe to
// call more than once.
func (f *fanout) close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	for sub := range f.subs {
		sub.close()
	}
	clear(f.subs)
	f.mu.Unlock()

	// Release the context watchers and let them finish so no remove races
	// the close.
	close(f.done)
	f.wg.Wait()
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		close(s.ch)
		s.closed = true
	}
}

func (s *subscriber) send(te TransitionEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- te:
		return true
	default:
		return false
	}
}
