package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/mdflow/mdflow/internal/future"
	"github.com/zclconf/go-cty/cty"
)

// scope is the mutable state of one loop iteration: per-variable substep
// histories and the output objects of the nodes instantiated so far.
// Each iteration (and each compiled loop instance) gets its own scope, so
// replaying one frozen graph many times shares no mutable state.
type scope struct {
	// vars maps a slot key to its substep history for this iteration.
	// Entry 0 is the value carried in from the previous iteration (or the
	// seeded default on the first pass).
	vars map[string][]cty.Value
	// nodes maps a node key to its published output object, shaped as
	// object({output = {...}}).
	nodes map[string]cty.Value
}

func newScope(state map[string]cty.Value) *scope {
	vars := make(map[string][]cty.Value, len(state))
	for key, val := range state {
		vars[key] = []cty.Value{val}
	}
	return &scope{vars: vars, nodes: make(map[string]cty.Value)}
}

// write appends a resolved value to a slot's substep history.
func (s *scope) write(key string, val cty.Value) {
	s.vars[key] = append(s.vars[key], val)
}

// last returns the most recently written value of a slot.
func (s *scope) last(key string) cty.Value {
	history := s.vars[key]
	return history[len(history)-1]
}

// resolve flattens a captured step value into a concrete cty.Value.
// References are looked up against this scope; futures block until their
// producer completes; maps and slices are resolved element-wise.
func (s *scope) resolve(ctx context.Context, v any) (cty.Value, error) {
	switch val := v.(type) {
	case cty.Value:
		return val, nil
	case future.Reference:
		return s.resolveReference(val)
	case future.Future:
		return val.Result(ctx)
	case map[string]any:
		if len(val) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(val))
		keys := make([]string, 0, len(val))
		for key := range val {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			resolved, err := s.resolve(ctx, val[key])
			if err != nil {
				return cty.NilVal, fmt.Errorf("entry %q: %w", key, err)
			}
			attrs[key] = resolved
		}
		return cty.ObjectVal(attrs), nil
	case []any:
		if len(val) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, 0, len(val))
		for i, elem := range val {
			resolved, err := s.resolve(ctx, elem)
			if err != nil {
				return cty.NilVal, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, resolved)
		}
		return cty.TupleVal(elems), nil
	default:
		return cty.NilVal, errdefs.Resolutionf("cannot resolve value of type %T", v)
	}
}

func (s *scope) resolveReference(ref future.Reference) (cty.Value, error) {
	switch ref.Kind {
	case future.OwnerVariable:
		history, ok := s.vars[ref.Key]
		if !ok {
			return cty.NilVal, errdefs.Resolutionf("reference %s: no such variable", ref)
		}
		if ref.Substep >= len(history) {
			return cty.NilVal, errdefs.Resolutionf(
				"reference %s reads substep %d but only %d writes have happened",
				ref, ref.Substep, len(history))
		}
		return future.Apply(history[ref.Substep], ref.Path)
	case future.OwnerNode:
		out, ok := s.nodes[ref.Key]
		if !ok {
			return cty.NilVal, errdefs.Resolutionf("reference %s: no such task in scope", ref)
		}
		val, err := future.Apply(out, ref.Path)
		if err != nil {
			return cty.NilVal, fmt.Errorf("reference %s: %w", ref, err)
		}
		return val, nil
	default:
		return cty.NilVal, errdefs.Resolutionf("reference %s has unknown owner kind", ref)
	}
}
