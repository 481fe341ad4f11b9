package app

import (
	"context"
	"fmt"

	"github.com/mdflow/mdflow/internal/ctxlog"
	"github.com/mdflow/mdflow/internal/loop"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Run compiles the loaded workflow into a loop and drives it to
// completion. The final value of every declared variable is resolved
// through its future and logged.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Info("Starting workflow run.",
		"workflow", a.workflow.Name, "max_iteration", a.workflow.MaxIteration)

	compiler := loop.NewCompiler()
	lp, err := compiler.Compile(ctx, a.workflow.Graph, a.workflow.Condition, a.workflow.MaxIteration, a.registry)
	if err != nil {
		return fmt.Errorf("compiling workflow: %w", err)
	}

	if err := lp.Run(ctx); err != nil {
		return fmt.Errorf("running workflow: %w", err)
	}
	a.logger.Info("Workflow run finished.", "iterations", lp.Iterations())

	for _, spec := range a.workflow.Graph.Variables() {
		fut, err := lp.Output(spec.Key)
		if err != nil {
			return err
		}
		val, err := fut.Result(ctx)
		if err != nil {
			return fmt.Errorf("resolving final value of %q: %w", spec.Key, err)
		}
		a.logger.Info("Final variable value.", "variable", spec.Key, "value", renderValue(val))
	}
	return nil
}

// renderValue formats a cty value for log output. JSON keeps nested
// objects readable; values that cannot serialize fall back to GoString.
func renderValue(val cty.Value) string {
	if val == cty.NilVal {
		return "null"
	}
	buf, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return val.GoString()
	}
	return string(buf)
}
