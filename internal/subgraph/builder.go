package subgraph

import (
	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/zclconf/go-cty/cty"
)

// Builder collects a subgraph declaration: variable slots and the ordered
// step log. It replaces the class-body DSL of scripting front ends with an
// explicit object whose methods are called in declaration order.
//
// A Builder is single-pass: declare variables and steps, then call Freeze
// exactly once to obtain the immutable Graph.
type Builder struct {
	vars     map[string]*Variable
	varOrder []string
	nodes    map[string]int
	steps    []Step
	frozen   bool
}

// NewBuilder returns an empty subgraph declaration.
func NewBuilder() *Builder {
	return &Builder{
		vars:  make(map[string]*Variable),
		nodes: make(map[string]int),
	}
}

// Variable declares a named state slot seeded with a default value. The
// default write counts as substep 0, so Get is valid immediately. The
// value type is inferred from the default and fixed once the builder
// freezes.
func (b *Builder) Variable(key string, def cty.Value) (*Variable, error) {
	if b.frozen {
		return nil, errdefs.Usagef("cannot declare variable %q: subgraph is frozen", key)
	}
	if key == "" {
		return nil, errdefs.Usagef("variable key must not be empty")
	}
	if _, exists := b.vars[key]; exists {
		return nil, errdefs.Usagef("variable %q is already declared", key)
	}
	if def == cty.NilVal {
		return nil, errdefs.Usagef("variable %q must be seeded with a default value", key)
	}
	v := &Variable{
		key:     key,
		shape:   []int{1},
		typ:     def.Type(),
		state:   VariableEditing,
		history: []any{def},
		builder: b,
	}
	b.vars[key] = v
	b.varOrder = append(b.varOrder, key)
	return v, nil
}

// Add records a task instantiation under the given key and returns a Node
// handle immediately, not a result, so later steps can reference the
// task's outputs symbolically. Arguments are captured unresolved.
func (b *Builder) Add(key string, task Task) (*Node, error) {
	if b.frozen {
		return nil, errdefs.Usagef("cannot add task %q: subgraph is frozen", key)
	}
	if key == "" {
		return nil, errdefs.Usagef("task key must not be empty")
	}
	if _, exists := b.nodes[key]; exists {
		return nil, errdefs.Usagef("task %q is already added", key)
	}
	if err := task.validate(); err != nil {
		return nil, err
	}
	index := len(b.steps)
	b.steps = append(b.steps, AddStep{NodeKey: key, Task: task})
	b.nodes[key] = index
	return &Node{key: key, index: index}, nil
}

// recordSet appends a SetStep on behalf of Variable.Set.
func (b *Builder) recordSet(key string, source any) {
	b.steps = append(b.steps, SetStep{VarKey: key, Source: source})
}

// Freeze finalizes the declaration: variables flip to the initialized
// state and the step log becomes the immutable Graph. A frozen builder
// rejects further edits, and Freeze itself may only be called once.
func (b *Builder) Freeze() (*Graph, error) {
	if b.frozen {
		return nil, errdefs.Usagef("subgraph is already frozen")
	}
	b.frozen = true

	specs := make([]Spec, 0, len(b.varOrder))
	for _, key := range b.varOrder {
		v := b.vars[key]
		v.state = VariableInitialized
		specs = append(specs, Spec{
			Key:     v.key,
			Default: v.Default(),
			Type:    v.typ,
			Shape:   v.Shape(),
			Writes:  len(v.history),
		})
	}

	steps := make([]Step, len(b.steps))
	copy(steps, b.steps)
	return &Graph{vars: specs, steps: steps}, nil
}
