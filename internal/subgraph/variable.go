package subgraph

import (
	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/mdflow/mdflow/internal/future"
	"github.com/zclconf/go-cty/cty"
)

// VariableState tracks the lifecycle of a Variable.
type VariableState int

const (
	// VariableEditing is the initial state while the declaring builder is
	// still open.
	VariableEditing VariableState = iota
	// VariableInitialized is the terminal state entered when the builder
	// freezes. Type and shape are fixed from this point on.
	VariableInitialized
)

// Variable is a named, typed slot of internal subgraph state that
// persists across loop iterations.
//
// Within one declaration a variable may be read and written several times
// in sequence, e.g. read the old checkpoint early in the body and write
// the new one later. A flat name-to-value mapping would lose the ordering
// needed to tell "value before this iteration's update" from "value
// after", so every write appends to an ordered substep history and every
// read is tagged with the write position it observed.
type Variable struct {
	key   string
	shape []int
	typ   cty.Type
	state VariableState

	// history holds one entry per proposed update; entry 0 is the seeded
	// default. Entries are either concrete cty.Value literals or deferred
	// future.Reference values.
	history []any

	builder *Builder
}

// Key returns the variable's name.
func (v *Variable) Key() string { return v.key }

// Type returns the value type, inferred from the default at declaration.
func (v *Variable) Type() cty.Type { return v.typ }

// Shape returns the fixed value shape. Only scalar variables are
// supported; the shape is retained as an extension point for
// ensemble-shaped state.
func (v *Variable) Shape() []int {
	out := make([]int, len(v.shape))
	copy(out, v.shape)
	return out
}

// State returns the lifecycle state.
func (v *Variable) State() VariableState { return v.state }

// Default returns the seeded default value (substep 0).
func (v *Variable) Default() cty.Value {
	return v.history[0].(cty.Value)
}

// Set queues an update for the variable. The update may be a concrete
// cty.Value or a deferred future.Reference; it is appended to the substep
// history and recorded in the owning builder's step log. Set is only
// valid while the declaration is still being edited.
func (v *Variable) Set(update any) error {
	if v.state != VariableEditing {
		return errdefs.Usagef("variable %q is frozen and can no longer be set", v.key)
	}
	if err := checkStepValue(update); err != nil {
		return err
	}
	v.history = append(v.history, update)
	v.builder.recordSet(v.key, update)
	return nil
}

// Get returns a reference tagged with the current write position, so that
// readers at different points in the declaration observe the correct
// version. The seeded default counts as substep 0.
func (v *Variable) Get() future.Reference {
	// The constructor seeds the default, so the history is never empty.
	substep := len(v.history) - 1
	return future.VariableAt(v.key, substep)
}

// Spec is the frozen description of a variable carried by a Graph.
type Spec struct {
	Key     string
	Default cty.Value
	Type    cty.Type
	Shape   []int
	// Writes is the number of history entries recorded during the
	// declaration, counting the seeded default.
	Writes int
}
