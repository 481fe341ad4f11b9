package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/mdflow/mdflow/internal/ctxlog"
	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/mdflow/mdflow/internal/future"
	"github.com/mdflow/mdflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// BodyStep is one bound operation in a compiled loop body.
type BodyStep interface {
	stepKey() string
}

// RunStep instantiates a task inside the loop body.
type RunStep struct {
	NodeKey string
	Runner  string
	Args    map[string]any
}

func (s RunStep) stepKey() string { return s.NodeKey }

// WriteStep updates a persistent state slot from a bound source
// expression.
type WriteStep struct {
	SlotKey string
	Source  any
}

func (s WriteStep) stepKey() string { return s.SlotKey }

// Condition is the compiled boolean test that terminates a loop.
type Condition struct {
	Source future.Reference
	Negate bool
}

// Slot is a named persistent state slot with its seed value.
type Slot struct {
	Key   string
	Value cty.Value
}

// Loop is a compiled bounded iterative execution unit. Run drives it for
// up to MaxIteration passes; per-slot futures become available once the
// run completes.
type Loop struct {
	slots        []Slot
	body         []BodyStep
	cond         Condition
	maxIteration int
	reg          *registry.Registry

	runOnce    sync.Once
	done       chan struct{}
	err        error
	iterations int
	final      map[string]cty.Value
}

// NewLoop assembles a loop from its compiled parts. It is called by the
// loop compiler, which has already validated the inputs.
func NewLoop(slots []Slot, body []BodyStep, cond Condition, maxIteration int, reg *registry.Registry) *Loop {
	return &Loop{
		slots:        slots,
		body:         body,
		cond:         cond,
		maxIteration: maxIteration,
		reg:          reg,
		done:         make(chan struct{}),
	}
}

// Run drives the loop to completion: iterations execute until the
// condition holds or the iteration cap is reached. The cap is a safety
// bound and is honored regardless of the condition outcome. Run is
// idempotent; concurrent or repeated calls wait for the single underlying
// run and return its error.
func (l *Loop) Run(ctx context.Context) error {
	l.runOnce.Do(func() {
		l.err = l.run(ctx)
		close(l.done)
	})
	<-l.done
	return l.err
}

func (l *Loop) run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	state := make(map[string]cty.Value, len(l.slots))
	for _, slot := range l.slots {
		state[slot.Key] = slot.Value
	}
	logger.Debug("Loop run starting.", "slots", len(l.slots), "max_iteration", l.maxIteration)

	for i := 1; i <= l.maxIteration; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sc := newScope(state)
		for _, step := range l.body {
			if err := l.runBodyStep(ctx, sc, step); err != nil {
				return fmt.Errorf("iteration %d: %w", i, err)
			}
		}
		for key := range state {
			state[key] = sc.last(key)
		}
		l.iterations = i

		stop, err := l.evalCondition(ctx, sc)
		if err != nil {
			return fmt.Errorf("iteration %d: condition: %w", i, err)
		}
		logger.Debug("Loop iteration finished.", "iteration", i, "condition", stop)
		if stop {
			break
		}
	}

	l.final = state
	logger.Debug("Loop run finished.", "iterations", l.iterations)
	return nil
}

func (l *Loop) runBodyStep(ctx context.Context, sc *scope, step BodyStep) error {
	logger := ctxlog.FromContext(ctx)
	switch st := step.(type) {
	case RunStep:
		input := make(map[string]cty.Value, len(st.Args))
		for name, arg := range st.Args {
			val, err := sc.resolve(ctx, arg)
			if err != nil {
				return fmt.Errorf("task %q argument %q: %w", st.NodeKey, name, err)
			}
			input[name] = val
		}
		rn, err := l.reg.Runner(st.Runner)
		if err != nil {
			return err
		}
		logger.Debug("Running loop body task.", "task", st.NodeKey, "runner", st.Runner)
		outputs, err := rn.Fn(ctx, input)
		if err != nil {
			return fmt.Errorf("task %q: %w", st.NodeKey, err)
		}
		sc.nodes[st.NodeKey] = wrapOutputs(outputs)
		return nil
	case WriteStep:
		val, err := sc.resolve(ctx, st.Source)
		if err != nil {
			return fmt.Errorf("set %q: %w", st.SlotKey, err)
		}
		sc.write(st.SlotKey, val)
		return nil
	default:
		return fmt.Errorf("unknown body step type %T", step)
	}
}

func (l *Loop) evalCondition(ctx context.Context, sc *scope) (bool, error) {
	val, err := sc.resolve(ctx, l.cond.Source)
	if err != nil {
		return false, err
	}
	if !val.Type().Equals(cty.Bool) {
		return false, errdefs.Resolutionf(
			"condition %s has type %s, want bool", l.cond.Source, val.Type().FriendlyName())
	}
	result := val.True()
	if l.cond.Negate {
		result = !result
	}
	return result, nil
}

// Iterations returns the number of iterations performed so far. It is
// stable once Run has returned.
func (l *Loop) Iterations() int {
	return l.iterations
}

// Output returns a Future for the final value of a state slot. The future
// blocks until Run completes.
func (l *Loop) Output(key string) (future.Future, error) {
	for _, slot := range l.slots {
		if slot.Key == key {
			return &slotFuture{loop: l, key: key}, nil
		}
	}
	return nil, errdefs.Usagef("loop has no state slot %q", key)
}

// slotFuture resolves to a slot's value after the loop finishes.
type slotFuture struct {
	loop *Loop
	key  string
}

func (f *slotFuture) Result(ctx context.Context) (cty.Value, error) {
	select {
	case <-ctx.Done():
		return cty.NilVal, ctx.Err()
	case <-f.loop.done:
	}
	if f.loop.err != nil {
		return cty.NilVal, f.loop.err
	}
	return f.loop.final[f.key], nil
}

// wrapOutputs publishes runner outputs as object({output = {...}}) so
// reference paths read step.<key>.output.<field>.
func wrapOutputs(outputs map[string]cty.Value) cty.Value {
	inner := cty.EmptyObjectVal
	if len(outputs) > 0 {
		inner = cty.ObjectVal(outputs)
	}
	return cty.ObjectVal(map[string]cty.Value{"output": inner})
}
