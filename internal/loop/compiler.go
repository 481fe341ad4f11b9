// Package loop translates a frozen subgraph declaration and a termination
// condition into a bounded iterative execution unit for the engine.
package loop

import (
	"context"
	"fmt"

	"github.com/mdflow/mdflow/internal/ctxlog"
	"github.com/mdflow/mdflow/internal/engine"
	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/mdflow/mdflow/internal/future"
	"github.com/mdflow/mdflow/internal/registry"
	"github.com/mdflow/mdflow/internal/subgraph"
)

// State tracks a Compiler through its single compilation.
type State int

const (
	StateUncompiled State = iota
	StateCompiling
	StateCompiled
)

// Compiler builds exactly one loop template from one frozen graph. It is
// not re-entrant: a second Compile call on the same Compiler is a usage
// error. Independent compilations of the same graph use independent
// Compiler values and produce structurally independent loops.
type Compiler struct {
	state State
}

// NewCompiler returns a Compiler in the uncompiled state.
func NewCompiler() *Compiler {
	return &Compiler{state: StateUncompiled}
}

// compilation is the mutable bookkeeping of one Compile pass: which
// producers exist at the current point of the replay.
type compilation struct {
	// varWrites maps a variable key to the number of writes seen so far,
	// counting the seeded default.
	varWrites map[string]int
	nodes     map[string]struct{}
	reg       *registry.Registry
}

// Compile translates the graph into an engine.Loop:
//
//  1. the declared variables become the loop's persistent state slots,
//     seeded once from their defaults;
//  2. the step log is replayed in order into a loop body, binding every
//     embedded reference and validating that its producer exists at that
//     point of the declaration;
//  3. the condition annotation is translated into an executable boolean
//     test;
//  4. the assembly is handed to the engine with the iteration cap.
//
// maxIteration bounds the loop regardless of the condition outcome. A
// graph with no declared variables still compiles into a valid, stateless
// loop.
func (c *Compiler) Compile(ctx context.Context, g *subgraph.Graph, condition any, maxIteration int, reg *registry.Registry) (*engine.Loop, error) {
	if c.state != StateUncompiled {
		return nil, errdefs.Usagef("compiler is not reusable: a subgraph compiles into exactly one loop template")
	}
	c.state = StateCompiling
	logger := ctxlog.FromContext(ctx)

	if g == nil {
		return nil, errdefs.Usagef("cannot compile a nil graph")
	}
	if maxIteration < 1 {
		return nil, errdefs.Usagef("max_iteration must be at least 1, got %d", maxIteration)
	}

	comp := &compilation{
		varWrites: make(map[string]int),
		nodes:     make(map[string]struct{}),
		reg:       reg,
	}

	vars := g.Variables()
	slots := make([]engine.Slot, 0, len(vars))
	for _, spec := range vars {
		slots = append(slots, engine.Slot{Key: spec.Key, Value: spec.Default})
		// The seeded default is substep 0.
		comp.varWrites[spec.Key] = 1
	}

	steps := g.Steps()
	body := make([]engine.BodyStep, 0, len(steps))
	for i, step := range steps {
		bound, err := comp.bindStep(step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Key(), err)
		}
		body = append(body, bound)
	}

	cond, err := comp.translateCondition(condition)
	if err != nil {
		return nil, err
	}

	c.state = StateCompiled
	logger.Debug("Subgraph compiled into loop template.",
		"slots", len(slots), "body_steps", len(body), "max_iteration", maxIteration)
	return engine.NewLoop(slots, body, cond, maxIteration, reg), nil
}

func (comp *compilation) bindStep(step subgraph.Step) (engine.BodyStep, error) {
	switch st := step.(type) {
	case subgraph.AddStep:
		if _, err := comp.reg.Runner(st.Task.Runner); err != nil {
			return nil, err
		}
		for name, arg := range st.Task.Args {
			if err := comp.bindValue(arg); err != nil {
				return nil, fmt.Errorf("argument %q: %w", name, err)
			}
		}
		comp.nodes[st.NodeKey] = struct{}{}
		return engine.RunStep{NodeKey: st.NodeKey, Runner: st.Task.Runner, Args: st.Task.Args}, nil
	case subgraph.SetStep:
		if _, ok := comp.varWrites[st.VarKey]; !ok {
			return nil, errdefs.Resolutionf("set targets undeclared variable %q", st.VarKey)
		}
		if err := comp.bindValue(st.Source); err != nil {
			return nil, err
		}
		comp.varWrites[st.VarKey]++
		return engine.WriteStep{SlotKey: st.VarKey, Source: st.Source}, nil
	default:
		return nil, errdefs.Usagef("unknown step type %T", step)
	}
}

// bindValue checks that every reference embedded in a captured value has
// a producer at the current replay position. Dependency ordering is
// implicit in declaration order, so a reference to a node added later in
// the log, or to a variable substep not yet written, fails here.
func (comp *compilation) bindValue(v any) error {
	switch val := v.(type) {
	case future.Reference:
		return comp.bindReference(val)
	case map[string]any:
		for key, elem := range val {
			if err := comp.bindValue(elem); err != nil {
				return fmt.Errorf("entry %q: %w", key, err)
			}
		}
		return nil
	case []any:
		for i, elem := range val {
			if err := comp.bindValue(elem); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	default:
		// Literals and futures carry no graph-internal dependency.
		return nil
	}
}

func (comp *compilation) bindReference(ref future.Reference) error {
	switch ref.Kind {
	case future.OwnerVariable:
		writes, ok := comp.varWrites[ref.Key]
		if !ok {
			return errdefs.Resolutionf("reference %s: variable is not declared", ref)
		}
		if ref.Substep >= writes {
			return errdefs.Resolutionf(
				"reference %s reads substep %d, but only %d writes precede it", ref, ref.Substep, writes)
		}
		return nil
	case future.OwnerNode:
		if _, ok := comp.nodes[ref.Key]; !ok {
			return errdefs.Resolutionf("reference %s: task was not added earlier in the declaration", ref)
		}
		if len(ref.Path) == 0 || ref.Path[0].Kind != future.AccessAttr || ref.Path[0].Attr != "output" {
			return errdefs.Resolutionf("reference %s does not address a task output", ref)
		}
		return nil
	default:
		return errdefs.Resolutionf("reference %s has unknown owner kind", ref)
	}
}

// translateCondition resolves the condition operand recursively and
// applies its named transformation. Logical negation is the only
// transformation defined; anything else is a missing implementation, not
// a silent fallback.
func (comp *compilation) translateCondition(condition any) (engine.Condition, error) {
	switch cond := condition.(type) {
	case future.Reference:
		if err := comp.bindReference(cond); err != nil {
			return engine.Condition{}, err
		}
		return engine.Condition{Source: cond}, nil
	case *subgraph.Variable:
		return comp.translateCondition(cond.Get())
	case subgraph.Condition:
		inner, err := comp.translateCondition(cond.Source)
		if err != nil {
			return engine.Condition{}, err
		}
		switch cond.Transform {
		case "":
			return inner, nil
		case subgraph.TransformLogicalNot:
			inner.Negate = !inner.Negate
			return inner, nil
		default:
			return engine.Condition{}, errdefs.NotImplementedf(
				"condition transformation %q is not implemented", cond.Transform)
		}
	default:
		return engine.Condition{}, errdefs.Usagef(
			"no handler for condition of type %T", condition)
	}
}
