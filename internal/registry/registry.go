// Package registry holds the named task runners available to the engine.
// Built-in runners live under modules/ and register themselves through the
// Module interface.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/zclconf/go-cty/cty"
)

// RunnerFunc executes one task: it receives the fully resolved input
// values and returns the task's named outputs.
type RunnerFunc func(ctx context.Context, input map[string]cty.Value) (map[string]cty.Value, error)

// Runner describes one registered runner type.
type Runner struct {
	Type        string
	Description string
	Fn          RunnerFunc
}

// Module is the interface built-in modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry maps runner types to their handlers for a single application
// instance.
type Registry struct {
	runners map[string]*Runner
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{runners: make(map[string]*Runner)}
}

// RegisterRunner adds a runner to the registry. Registering a duplicate
// type or an incomplete runner is a programmer error and panics.
func (r *Registry) RegisterRunner(rn *Runner) {
	if rn.Type == "" || rn.Fn == nil {
		panic(fmt.Sprintf("registry: runner %+v is missing a type or handler", rn))
	}
	if _, exists := r.runners[rn.Type]; exists {
		panic(fmt.Sprintf("registry: runner type %q registered twice", rn.Type))
	}
	r.runners[rn.Type] = rn
}

// Runner looks up a runner by type.
func (r *Registry) Runner(typ string) (*Runner, error) {
	rn, ok := r.runners[typ]
	if !ok {
		return nil, errdefs.Usagef("unknown runner type %q", typ)
	}
	return rn, nil
}

// Types returns the registered runner types in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.runners))
	for typ := range r.runners {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}
