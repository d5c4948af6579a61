package fsmkit

import (
	"fmt"
	"slices"
)

// Definition is the immutable description of one machine: its states,
// transition rules, services, and delayed transitions. A Definition is built
// once with NewDefinition, validated on construction, and may be shared by
// any number of machines concurrently.
type Definition struct {
	initial StateID
	states  map[StateID]*stateNode
	order   []StateID
	dupes   []StateID
}

// DefinitionOption configures a machine definition during construction.
type DefinitionOption func(*Definition)

// WithInitial sets the state every machine built from the definition enters
// on Start.
func WithInitial(id StateID) DefinitionOption {
	return func(def *Definition) {
		def.initial = id
	}
}

// WithState declares a state. Declaring the same id twice is a construction
// error.
func WithState(id StateID, opts ...StateOption) DefinitionOption {
	return func(def *Definition) {
		if _, exists := def.states[id]; exists {
			def.dupes = append(def.dupes, id)
			return
		}
		node := newStateNode(id)
		for _, opt := range opts {
			opt(node)
		}
		def.states[id] = node
		def.order = append(def.order, id)
	}
}

// NewDefinition builds and validates a machine definition. All structural
// problems are reported as an ErrInvalidDefinition: empty or duplicate state
// ids, a missing or unknown initial state, transition or after targets that
// reference undeclared states, and forward routes naming services no state
// declares.
func NewDefinition(opts ...DefinitionOption) (*Definition, error) {
	def := &Definition{
		states: make(map[StateID]*stateNode),
	}
	for _, opt := range opts {
		opt(def)
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// MustNewDefinition builds a definition and panics on validation failure,
// for definitions declared at program start where a mistake is a bug.
func MustNewDefinition(opts ...DefinitionOption) *Definition {
	def, err := NewDefinition(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to build machine definition: %v", err))
	}
	return def
}

// Initial returns the initial state id.
func (d *Definition) Initial() StateID {
	return d.initial
}

// StateIDs returns the declared state ids in declaration order.
func (d *Definition) StateIDs() []StateID {
	return slices.Clone(d.order)
}

func (d *Definition) validate() error {
	if len(d.states) == 0 {
		return NewErrInvalidDefinition("no states declared")
	}
	if len(d.dupes) > 0 {
		return NewErrInvalidDefinition(fmt.Sprintf("duplicate state id '%s'", d.dupes[0]))
	}
	if d.initial == "" {
		return NewErrInvalidDefinition("initial state not set")
	}
	if _, ok := d.states[d.initial]; !ok {
		return NewErrInvalidDefinition(fmt.Sprintf("initial state '%s' not declared", d.initial))
	}

	// Forward routes may target a service declared by any state, not only
	// the one carrying the rule.
	declared := make(map[ServiceID]struct{})
	for _, id := range d.order {
		node := d.states[id]
		seen := make(map[ServiceID]struct{}, len(node.services))
		for _, spec := range node.services {
			if _, dup := seen[spec.ID]; dup {
				return NewErrInvalidDefinition(fmt.Sprintf("state '%s': duplicate service id '%s'", id, spec.ID))
			}
			seen[spec.ID] = struct{}{}
			declared[spec.ID] = struct{}{}
		}
	}

	for _, id := range d.order {
		node := d.states[id]
		if len(node.problems) > 0 {
			return NewErrInvalidDefinition(fmt.Sprintf("state '%s': %s", id, node.problems[0]))
		}
		for _, event := range sortedEventTypes(node) {
			for _, rule := range node.transitions[event] {
				if err := d.checkRule(id, string(event), rule, declared); err != nil {
					return err
				}
			}
		}
		for _, after := range node.afters {
			if err := d.checkRule(id, "after "+after.delay.String(), after.rule, declared); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Definition) checkRule(state StateID, label string, rule TransitionRule, declared map[ServiceID]struct{}) error {
	if rule.Target != "" {
		if _, ok := d.states[rule.Target]; !ok {
			return NewErrInvalidDefinition(fmt.Sprintf("state '%s': transition on '%s' targets unknown state '%s'", state, label, rule.Target))
		}
	}
	for _, sid := range rule.ForwardTo {
		if _, ok := declared[sid]; !ok {
			return NewErrInvalidDefinition(fmt.Sprintf("state '%s': rule on '%s' forwards to unknown service '%s'", state, label, sid))
		}
	}
	return nil
}

func sortedEventTypes(node *stateNode) []EventType {
	events := make([]EventType, 0, len(node.transitions))
	for event := range node.transitions {
		events = append(events, event)
	}
	slices.Sort(events)
	return events
}
