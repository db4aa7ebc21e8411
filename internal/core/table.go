package core

import (
	"fmt"
	"time"
)

// Env carries per-event context for handlers
type Env struct {
	Now time.Time
}

// Result is what a step handler decides for one event.
// The zero value advances to the step's static successor without changing the draft.
type Result struct {
	Set Draft
	// Stay re-prompts the current step.
	Stay bool
	// Next overrides the static successor.
	Next   Step
	Finish bool
	Notice string
}

// Handler interprets one event at a step. It must not keep the draft.
type Handler func(d Draft, ev Event, env Env) Result

// StepDef describes one node of the conversation graph
type StepDef struct {
	ID        Step
	Namespace string
	// Field is the draft key the step writes, empty for control steps.
	Field string
	Next  Step
	// Branches lists successors chosen dynamically by the handler.
	Branches []Step
	// Terminal steps may finish their flow.
	Terminal bool
	// NoBack disables generic back handling, e.g. for the first step of a flow.
	NoBack bool

	Prompt func(d Draft) Prompt
	Handle Handler
	// Enter runs when the step is reached by a forward transition or a flow start.
	Enter func(d Draft) Draft
}

// Table is the enumerable set of steps, ordered per flow
type Table struct {
	defs  map[Step]*StepDef
	order map[Flow][]Step
	ns    map[string]Step
}

// NewTable creates an empty step table
func NewTable() *Table {
	return &Table{
		defs:  make(map[Step]*StepDef),
		order: make(map[Flow][]Step),
		ns:    make(map[string]Step),
	}
}

// Add registers a step. The first step added to a flow becomes its entry point.
func (t *Table) Add(def StepDef) error {
	if def.ID == StepNone {
		return fmt.Errorf("step id cannot be empty")
	}
	if _, exists := t.defs[def.ID]; exists {
		return fmt.Errorf("duplicate step: %s", def.ID)
	}
	if def.Handle == nil || def.Prompt == nil {
		return fmt.Errorf("step %s needs a handler and a prompt", def.ID)
	}
	if def.Namespace == "" {
		return fmt.Errorf("step %s has no callback namespace", def.ID)
	}
	if other, taken := t.ns[def.Namespace]; taken {
		return fmt.Errorf("namespace %q of step %s already used by %s", def.Namespace, def.ID, other)
	}

	d := def
	t.defs[def.ID] = &d
	t.ns[def.Namespace] = def.ID
	flow := def.ID.Flow()
	t.order[flow] = append(t.order[flow], def.ID)
	return nil
}

// Lookup returns the definition of a step
func (t *Table) Lookup(step Step) (*StepDef, bool) {
	d, ok := t.defs[step]
	return d, ok
}

// ByNamespace finds the step owning a callback namespace
func (t *Table) ByNamespace(ns string) (Step, bool) {
	s, ok := t.ns[ns]
	return s, ok
}

// First returns the entry step of a flow
func (t *Table) First(flow Flow) Step {
	steps := t.order[flow]
	if len(steps) == 0 {
		return StepNone
	}
	return steps[0]
}

// Steps lists the steps of a flow in registration order
func (t *Table) Steps(flow Flow) []Step {
	return append([]Step(nil), t.order[flow]...)
}

// Edges returns every possible successor of each step
func (t *Table) Edges() map[Step][]Step {
	edges := make(map[Step][]Step, len(t.defs))
	for id, d := range t.defs {
		var next []Step
		if d.Next != StepNone {
			next = append(next, d.Next)
		}
		next = append(next, d.Branches...)
		edges[id] = next
	}
	return edges
}

// Validate checks that every successor exists and that flows without terminal steps do not dead-end
func (t *Table) Validate() error {
	for id, next := range t.Edges() {
		d := t.defs[id]
		if len(next) == 0 && !d.Terminal {
			return fmt.Errorf("step %s has no successor and is not terminal", id)
		}
		for _, n := range next {
			if _, ok := t.defs[n]; !ok {
				return fmt.Errorf("step %s points to unknown step %s", id, n)
			}
		}
	}
	return nil
}
