package fsmkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultQueueSize = 128

// Status reports where a machine is in its lifecycle.
type Status int

const (
	StatusNew Status = iota
	StatusRunning
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// queueItem is one unit of work for the processing loop. Timer shots carry
// the delayed rule and the entry epoch they were armed under; synchronous
// sends carry a done channel for the processing result.
type queueItem struct {
	evt   Event
	after *TransitionRule
	epoch uint64
	done  chan error
}

// Machine is one running execution of a Definition, holding current state,
// context, and active services. All event processing happens on a single
// goroutine consuming a bounded FIFO queue, so state and context never change
// concurrently within one machine. Machines built from the same Definition
// are fully independent.
type Machine struct {
	id    string
	def   *Definition
	log   *slog.Logger
	clock Clock

	queueSize int
	queue     chan queueItem
	stopCh    chan struct{}
	doneCh    chan struct{}

	// lifecycleMu serializes Start and Stop against each other.
	lifecycleMu sync.Mutex
	stopErr     error

	// mu guards the observable machine state. The processing loop is the
	// only writer while the machine runs; readers take RLock.
	mu       sync.RWMutex
	status   Status
	current  StateID
	context  Context
	services []*serviceHandle
	active   map[ServiceID]*serviceHandle
	timers   []Timer
	epoch    uint64

	observers []func(TransitionEvent)
	fanout    *fanout

	initialCtx Context
	restored   *Snapshot
}

// Option configures a machine during construction.
type Option func(*Machine)

// WithID overrides the generated machine id, e.g. with a domain key such as
// an order number. Snapshots carry this id.
func WithID(id string) Option {
	return func(m *Machine) {
		if id != "" {
			m.id = id
		}
	}
}

// WithInitialContext seeds the context the machine starts with.
func WithInitialContext(ctx Context) Option {
	return func(m *Machine) {
		m.initialCtx = ctx.Clone()
	}
}

// WithLogger sets the logger for machine diagnostics. Defaults to
// slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(m *Machine) {
		if log != nil {
			m.log = log
		}
	}
}

// WithQueueSize sets the capacity of the event queue. A minimum of 1 is
// enforced.
func WithQueueSize(n int) Option {
	return func(m *Machine) {
		m.queueSize = max(n, 1)
	}
}

// WithClock injects the timer source used for delayed transitions.
func WithClock(clock Clock) Option {
	return func(m *Machine) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithOnTransition registers a synchronous transition observer. See
// Machine.OnTransition.
func WithOnTransition(fn func(TransitionEvent)) Option {
	return func(m *Machine) {
		if fn != nil {
			m.observers = append(m.observers, fn)
		}
	}
}

// WithSnapshot makes Start resume from a previously exported snapshot
// instead of the definition's initial state: the machine enters the snapshot
// state with the snapshot context, starting that state's services and arming
// its timers. Transition actions are not replayed.
func WithSnapshot(snap Snapshot) Option {
	return func(m *Machine) {
		restored := snap
		restored.Context = snap.Context.Clone()
		m.restored = &restored
		if snap.ID != "" {
			m.id = snap.ID
		}
	}
}

// NewMachine creates a machine from the definition. The machine does nothing
// until Start is called.
func (d *Definition) NewMachine(opts ...Option) (*Machine, error) {
	m := &Machine{
		id:        uuid.NewString(),
		def:       d,
		log:       slog.Default(),
		clock:     realClock{},
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.restored != nil {
		if _, ok := d.states[m.restored.State]; !ok {
			return nil, NewErrInvalidDefinition(fmt.Sprintf("snapshot state '%s' not declared", m.restored.State))
		}
	}
	if m.initialCtx == nil {
		m.initialCtx = Context{}
	}

	m.queue = make(chan queueItem, m.queueSize)
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.active = make(map[ServiceID]*serviceHandle)
	m.fanout = newFanout()
	return m, nil
}

// Start brings the machine to running: it enters the initial (or restored)
// state synchronously, starting its services and arming its timers, then
// launches the processing loop. The context bounds the machine's lifetime;
// when it is cancelled the machine stops itself.
//
// A service factory error during entry aborts the start: services already
// started for the aborted entry are released and the machine stays
// startable. Starting a running machine fails with ErrAlreadyRunning, a
// stopped one with ErrInstanceStopped.
func (m *Machine) Start(ctx context.Context) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	switch m.Status() {
	case StatusRunning:
		return ErrAlreadyRunning
	case StatusStopped:
		return ErrInstanceStopped
	}

	entry, entryCtx := m.def.initial, m.initialCtx
	if m.restored != nil {
		entry, entryCtx = m.restored.State, m.restored.Context
		if entryCtx == nil {
			entryCtx = Context{}
		}
	}

	// Accept sends from this point so entry services can submit events;
	// they queue up and are processed once the loop runs.
	m.setStatus(StatusRunning)

	handles, timers, err := m.enter(entry, entryCtx, Event{}, 1)
	if err != nil {
		m.setStatus(StatusNew)
		m.drainQueue(ErrNotStarted)
		return fmt.Errorf("enter initial state '%s': %w", entry, err)
	}

	m.mu.Lock()
	m.current = entry
	m.context = entryCtx
	m.setServices(handles)
	m.timers = timers
	m.epoch = 1
	m.mu.Unlock()

	go m.run()
	if ctx.Done() != nil {
		go m.watchContext(ctx)
	}

	m.log.Debug("machine started",
		slog.String("machine_id", m.id),
		slog.String("state", string(entry)))
	return nil
}

// Stop halts processing and releases every active service exactly once.
// Cleanup errors are logged and joined into the returned error but never
// block releasing the rest. Stop is terminal and idempotent: subsequent
// calls are no-ops returning nil, and a stopped machine cannot be restarted.
func (m *Machine) Stop() error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	switch m.Status() {
	case StatusStopped:
		return nil
	case StatusNew:
		// Never started: nothing to release, but the machine is done.
		m.setStatus(StatusStopped)
		return nil
	}

	m.setStatus(StatusStopped)
	close(m.stopCh)
	<-m.doneCh

	// The loop has exited; this goroutine now owns the machine state.
	m.cancelTimers()
	errs := m.releaseAll()
	m.mu.Lock()
	m.setServices(nil)
	m.timers = nil
	m.mu.Unlock()

	m.drainQueue(ErrInstanceStopped)
	m.fanout.close()

	m.stopErr = errors.Join(errs...)
	m.log.Debug("machine stopped", slog.String("machine_id", m.id))
	return m.stopErr
}

// Run returns a function suitable for errgroup: it starts the machine,
// blocks until ctx is cancelled, then stops it.
func (m *Machine) Run(ctx context.Context) func() error {
	return func() error {
		if err := m.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return m.Stop()
	}
}

// Send submits an event to the machine's queue and returns immediately.
// Events are processed strictly in arrival order, one at a time. Processing
// errors are logged; use SendSync to receive them. Send fails fast with
// ErrNotStarted, ErrInstanceStopped, or ErrQueueFull.
func (m *Machine) Send(evt Event) error {
	if err := m.sendable(); err != nil {
		return err
	}
	select {
	case m.queue <- queueItem{evt: evt}:
		return nil
	default:
		return ErrQueueFull
	}
}

// SendSync submits an event like Send but waits until it has been processed
// and returns the processing result: nil when the event applied a rule or
// was discarded, the transition error otherwise.
func (m *Machine) SendSync(ctx context.Context, evt Event) error {
	if err := m.sendable(); err != nil {
		return err
	}
	item := queueItem{evt: evt, done: make(chan error, 1)}
	select {
	case m.queue <- item:
	case <-m.stopCh:
		return ErrInstanceStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-item.done:
		return err
	case <-m.stopCh:
		return ErrInstanceStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ID returns the machine id.
func (m *Machine) ID() string {
	return m.id
}

// Current returns the current state id.
func (m *Machine) Current() StateID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Context returns a copy of the current context.
func (m *Machine) Context() Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.context.Clone()
}

// Status returns the lifecycle status.
func (m *Machine) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Matches reports whether the machine currently occupies the given state.
func (m *Machine) Matches(id StateID) bool {
	return m.Current() == id
}

// CanHandle reports whether the current state declares at least one rule for
// the event type. Guards are not evaluated.
func (m *Machine) CanHandle(eventType EventType) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	node, ok := m.def.states[m.current]
	if !ok {
		return false
	}
	return len(node.transitions[eventType]) > 0
}

func (m *Machine) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

func (m *Machine) sendable() error {
	switch m.Status() {
	case StatusNew:
		return ErrNotStarted
	case StatusStopped:
		return ErrInstanceStopped
	}
	return nil
}

func (m *Machine) watchContext(ctx context.Context) {
	select {
	case <-ctx.Done():
		_ = m.Stop()
	case <-m.stopCh:
	}
}

// run is the processing loop: one event at a time, strict FIFO.
func (m *Machine) run() {
	defer close(m.doneCh)
	for {
		select {
		case <-m.stopCh:
			return
		case item := <-m.queue:
			m.process(item)
		}
	}
}

func (m *Machine) process(item queueItem) {
	err := m.safeProcess(item)
	if item.done != nil {
		item.done <- err
	} else if err != nil {
		m.log.Error("event processing failed",
			slog.String("machine_id", m.id),
			slog.String("event", string(item.evt.Type)),
			slog.String("error", err.Error()))
	}
}

func (m *Machine) safeProcess(item queueItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event processing panic: %v", r)
		}
	}()
	if item.after != nil {
		return m.processAfter(item)
	}
	return m.processEvent(item.evt)
}

// processEvent selects and applies the first matching rule for the event in
// the current state. Events the state does not declare, and events all of
// whose guards reject, are discarded silently.
func (m *Machine) processEvent(evt Event) error {
	node := m.def.states[m.current]
	rules := node.transitions[evt.Type]
	if len(rules) == 0 {
		m.log.Debug("event discarded",
			slog.String("machine_id", m.id),
			slog.String("state", string(m.current)),
			slog.String("event", string(evt.Type)))
		return nil
	}

	for i := range rules {
		rule := &rules[i]
		if rule.Guard != nil {
			pass, err := safeGuard(rule.Guard, m.context, evt)
			if err != nil {
				return NewErrTransitionFailed(m.current, evt.Type, err)
			}
			if !pass {
				continue
			}
		}
		return m.apply(rule, evt)
	}

	m.log.Debug("event rejected by guards",
		slog.String("machine_id", m.id),
		slog.String("state", string(m.current)),
		slog.String("event", string(evt.Type)))
	return nil
}

// processAfter applies a timer-fired rule unless the shot is stale: each
// state entry bumps the epoch, so a timer armed by an occupancy the machine
// has since left is discarded and can never act on the new occupancy.
func (m *Machine) processAfter(item queueItem) error {
	if item.epoch != m.epoch {
		m.log.Debug("stale timer shot discarded",
			slog.String("machine_id", m.id),
			slog.String("event", string(item.evt.Type)))
		return nil
	}
	rule := item.after
	if rule.Guard != nil {
		pass, err := safeGuard(rule.Guard, m.context, item.evt)
		if err != nil {
			return NewErrTransitionFailed(m.current, item.evt.Type, err)
		}
		if !pass {
			return nil
		}
	}
	return m.apply(rule, item.evt)
}

// apply runs the rule's actions against a working copy of the context,
// forwards the event, and commits either an internal update or a full state
// transition. Any action error abandons the event with state and context
// unchanged.
func (m *Machine) apply(rule *TransitionRule, evt Event) error {
	next := m.context
	for _, action := range rule.Actions {
		patch, err := safeUpdater(action, next, evt)
		if err != nil {
			return NewErrTransitionFailed(m.current, evt.Type, err)
		}
		if patch != nil {
			next = next.Merge(patch)
		}
	}

	for _, sid := range rule.ForwardTo {
		m.forward(sid, evt)
	}

	if rule.Target == "" || rule.Target == m.current {
		m.mu.Lock()
		m.context = next
		m.mu.Unlock()
		m.notify(TransitionEvent{
			MachineID: m.id,
			From:      m.current,
			To:        m.current,
			Event:     evt,
			Context:   next.Clone(),
		})
		return nil
	}
	return m.transition(rule.Target, next, evt)
}

// transition performs an external transition. The old state's services stop
// and its timers cancel before anything new starts, so the two states'
// services are never active at the same time.
func (m *Machine) transition(target StateID, next Context, evt Event) error {
	from := m.current

	m.cancelTimers()
	m.releaseAll()

	epoch := m.epoch + 1
	handles, timers, err := m.enter(target, next, evt, epoch)
	if err != nil {
		// Entry failed: stay in the previous state with the previous
		// context. Its services were already released and are not
		// restarted; their factories ran once for that occupancy.
		m.mu.Lock()
		m.setServices(nil)
		m.timers = nil
		m.mu.Unlock()
		return NewErrTransitionFailed(from, evt.Type, err)
	}

	m.mu.Lock()
	m.current = target
	m.context = next
	m.setServices(handles)
	m.timers = timers
	m.epoch = epoch
	m.mu.Unlock()

	m.log.Debug("transition",
		slog.String("machine_id", m.id),
		slog.String("from", string(from)),
		slog.String("to", string(target)),
		slog.String("event", string(evt.Type)))
	m.notify(TransitionEvent{
		MachineID: m.id,
		From:      from,
		To:        target,
		Event:     evt,
		Context:   next.Clone(),
	})
	return nil
}

// enter starts the target state's services and arms its timers. On a factory
// error it releases the services it already started and reports the failure.
func (m *Machine) enter(state StateID, ctx Context, evt Event, epoch uint64) ([]*serviceHandle, []Timer, error) {
	node := m.def.states[state]

	handles := make([]*serviceHandle, 0, len(node.services))
	for _, spec := range node.services {
		handle, err := m.startService(spec, ctx, evt)
		if err != nil {
			for _, started := range handles {
				if rerr := started.release(); rerr != nil {
					m.logCleanupError(started.id, rerr)
				}
			}
			return nil, nil, fmt.Errorf("start service '%s': %w", spec.ID, err)
		}
		handles = append(handles, handle)
	}

	timers := make([]Timer, 0, len(node.afters))
	for _, after := range node.afters {
		rule := after.rule
		delay := after.delay
		timers = append(timers, m.clock.AfterFunc(delay, func() {
			m.enqueueAfter(&rule, delay, epoch)
		}))
	}
	return handles, timers, nil
}

func (m *Machine) startService(spec ServiceSpec, ctx Context, evt Event) (*serviceHandle, error) {
	scope := &ServiceScope{
		serviceID: spec.ID,
		machineID: m.id,
		entryCtx:  ctx.Clone(),
		entryEvt:  evt,
		inbox:     make(chan Event, serviceInboxSize),
		machine:   m,
		log: m.log.With(
			slog.String("machine_id", m.id),
			slog.String("service_id", string(spec.ID)),
		),
	}
	handle := &serviceHandle{id: spec.ID, scope: scope}
	scope.handle = handle

	cleanup, err := safeFactory(spec.Start, scope)
	if err != nil {
		// Reject sends from anything the factory may have spawned and
		// unblock inbox consumers. There is no cleanup to run yet.
		_ = handle.release()
		return nil, err
	}
	handle.cleanup = cleanup
	return handle, nil
}

func (m *Machine) setServices(handles []*serviceHandle) {
	m.services = handles
	clear(m.active)
	for _, h := range handles {
		m.active[h.id] = h
	}
}

func (m *Machine) forward(sid ServiceID, evt Event) {
	handle, ok := m.active[sid]
	if !ok {
		m.log.Debug("forward skipped, service not active",
			slog.String("machine_id", m.id),
			slog.String("service_id", string(sid)),
			slog.String("event", string(evt.Type)))
		return
	}
	if !handle.deliver(evt) {
		m.log.Warn("forwarded event dropped, service inbox full",
			slog.String("machine_id", m.id),
			slog.String("service_id", string(sid)),
			slog.String("event", string(evt.Type)))
	}
}

// releaseAll releases every active service exactly once, in start order.
// A cleanup failure is reported but never stops the remaining releases.
func (m *Machine) releaseAll() []error {
	var errs []error
	for _, handle := range m.services {
		if err := handle.release(); err != nil {
			errs = append(errs, fmt.Errorf("service '%s': %w", handle.id, err))
			m.logCleanupError(handle.id, err)
		}
	}
	return errs
}

func (m *Machine) logCleanupError(id ServiceID, err error) {
	m.log.Error("service cleanup failed",
		slog.String("machine_id", m.id),
		slog.String("service_id", string(id)),
		slog.String("error", err.Error()))
}

func (m *Machine) cancelTimers() {
	for _, t := range m.timers {
		t.Stop()
	}
}

// enqueueAfter runs on the timer goroutine, so it must never block.
func (m *Machine) enqueueAfter(rule *TransitionRule, delay time.Duration, epoch uint64) {
	item := queueItem{evt: Event{Type: afterEventType(delay)}, after: rule, epoch: epoch}
	select {
	case m.queue <- item:
	case <-m.stopCh:
	default:
		m.log.Warn("timer event dropped, queue full",
			slog.String("machine_id", m.id),
			slog.String("event", string(item.evt.Type)))
	}
}

// drainQueue answers any waiting synchronous senders so they do not block
// after the loop is gone.
func (m *Machine) drainQueue(result error) {
	for {
		select {
		case item := <-m.queue:
			if item.done != nil {
				item.done <- result
			}
		default:
			return
		}
	}
}

func safeGuard(guard Guard, ctx Context, evt Event) (pass bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			pass = false
			err = fmt.Errorf("guard panic: %v", r)
		}
	}()
	return guard(ctx, evt), nil
}

func safeUpdater(updater ContextUpdater, ctx Context, evt Event) (patch Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			patch = nil
			err = fmt.Errorf("action panic: %v", r)
		}
	}()
	return updater(ctx, evt), nil
}
