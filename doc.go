// Package fsmkit implements a finite-state-machine runtime with invoked
// long-running services.
//
// A machine is described once as an immutable Definition: named states, the
// events each state reacts to, guarded transition rules in declaration order,
// context-updating actions, services started on state entry, and delayed
// transitions armed on entry. Any number of independent Machine instances can
// then be created from one Definition, each holding its own current state and
// context.
//
// The package handles:
//  1. Definition validation at construction (unknown targets, duplicate
//     states, unresolvable service routes)
//  2. Strictly ordered event processing through a single FIFO queue per
//     machine
//  3. Guard evaluation in declaration order with first-match selection
//  4. Copy-on-write context patches with no partial updates on failure
//  5. Service lifecycles with exactly-once cleanup on state exit and stop
//  6. Delayed transitions that are cancelled when their state is left
//
// # Architecture
//
// Each Machine owns one processing goroutine that consumes a bounded event
// queue. Send enqueues and returns immediately; SendSync enqueues and waits
// for the processing result. Events arriving from user code, timers, and
// services are interleaved in arrival order and processed one at a time, so
// state and context never change concurrently within one machine. Separate
// machines share nothing and run independently.
//
// Rich error types with helper predicates (e.g. IsInvalidDefinitionError)
// allow callers to differentiate construction failures from runtime ones.
//
// # Usage
//
// A door that closes itself half a second after closing begins:
//
//	def := fsmkit.MustNewDefinition(
//	    fsmkit.WithInitial("closed"),
//	    fsmkit.WithState("closed",
//	        fsmkit.WithTransition("OPEN", "open"),
//	    ),
//	    fsmkit.WithState("open",
//	        fsmkit.WithTransition("CLOSE", "closing"),
//	    ),
//	    fsmkit.WithState("closing",
//	        fsmkit.WithAfter(500*time.Millisecond, "closed"),
//	    ),
//	)
//
//	machine, _ := def.NewMachine()
//	_ = machine.Start(context.Background())
//	defer machine.Stop()
//
//	_ = machine.Send(fsmkit.Event{Type: "OPEN"})
//
// Events not declared for the current state are discarded silently, so a
// stray CLOSE while the door is already closed has no effect.
//
// # Guards and Actions
//
// A transition may carry a guard and context-updating actions. Guards are
// pure predicates over the current context and the triggering event; actions
// return a patch that is shallow-merged into a fresh context value:
//
//	fsmkit.WithTransition("SUBMIT", "review",
//	    fsmkit.WithGuard(func(ctx fsmkit.Context, evt fsmkit.Event) bool {
//	        return ctx.GetString("author") != ""
//	    }),
//	    fsmkit.WithActions(fsmkit.Set("submitted", true)),
//	)
//
// When several rules are declared for the same event, the first one whose
// guard passes wins and the rest are ignored.
//
// # Invoked Services
//
// A state can declare services that start when the state is entered and are
// released exactly once when it is left, however it is left. A service
// factory receives a ServiceScope to read the entry context, send events back
// into the machine, and receive events routed to it with WithForward:
//
//	fsmkit.WithState("downloading",
//	    fsmkit.WithService("downloader", fsmkit.Go(download)),
//	    fsmkit.WithInternal("PROGRESS_UPDATED",
//	        fsmkit.WithActions(progressAction),
//	    ),
//	    fsmkit.WithTransition("CANCEL", "idle"),
//	)
//
// # Observation
//
// OnTransition callbacks run synchronously after each applied rule with the
// resulting state and context. Subscribe returns a buffered channel fed by a
// non-blocking fanout for consumers that prefer to range over changes. A
// Snapshot of (state, context) can be exported at any time and restored into
// a fresh machine via WithSnapshot; the pkg/store subpackage persists
// snapshots to memory, files, Redis, Postgres, or MongoDB.
//
// # Error Handling
//
// Construction problems surface as InvalidDefinition errors and produce no
// machine. At runtime, a guard or action failure (including a recovered
// panic) abandons the attempted transition: state and context stay unchanged
// and subsequent events are accepted normally. SendSync reports the
// processing error to the caller; fire-and-forget Send logs it.
package fsmkit
