package loop

import (
	"context"
	"testing"

	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/mdflow/mdflow/internal/future"
	"github.com/mdflow/mdflow/internal/registry"
	"github.com/mdflow/mdflow/internal/subgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// newTestRegistry registers a pass-through runner that echoes its "value"
// input as its "value" output.
func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	reg.RegisterRunner(&registry.Runner{
		Type:        "echo",
		Description: "echoes its value input",
		Fn: func(_ context.Context, input map[string]cty.Value) (map[string]cty.Value, error) {
			return map[string]cty.Value{"value": input["value"]}, nil
		},
	})
	return reg
}

// buildCounterGraph declares a one-variable loop body that echoes the
// done flag through a task each pass.
func buildCounterGraph(t *testing.T, done cty.Value) (*subgraph.Graph, *subgraph.Variable) {
	t.Helper()
	b := subgraph.NewBuilder()
	v, err := b.Variable("done", done)
	require.NoError(t, err)
	md, err := b.Add("md", subgraph.Task{Runner: "echo", Args: map[string]any{
		"value": v.Get(),
	}})
	require.NoError(t, err)
	require.NoError(t, v.Set(md.Output("value")))
	g, err := b.Freeze()
	require.NoError(t, err)
	return g, v
}

func TestCompiler_IsSingleUse(t *testing.T) {
	reg := newTestRegistry(t)
	g, v := buildCounterGraph(t, cty.True)
	c := NewCompiler()

	_, err := c.Compile(context.Background(), g, v, 5, reg)
	require.NoError(t, err)

	_, err = c.Compile(context.Background(), g, v, 5, reg)
	require.Error(t, err)
	assert.True(t, errdefs.IsUsage(err))
}

func TestCompiler_IndependentCompilations(t *testing.T) {
	reg := newTestRegistry(t)
	g, v := buildCounterGraph(t, cty.True)

	first, err := NewCompiler().Compile(context.Background(), g, v, 5, reg)
	require.NoError(t, err)
	second, err := NewCompiler().Compile(context.Background(), g, v, 5, reg)
	require.NoError(t, err)
	require.NotSame(t, first, second)

	// Running one instance leaves the other untouched.
	require.NoError(t, first.Run(context.Background()))
	assert.Equal(t, 1, first.Iterations())
	assert.Equal(t, 0, second.Iterations())

	require.NoError(t, second.Run(context.Background()))
	assert.Equal(t, 1, second.Iterations())
}

func TestCompile_RunsUntilConditionHolds(t *testing.T) {
	// The condition never holds, so the iteration cap decides.
	reg := newTestRegistry(t)
	g, v := buildCounterGraph(t, cty.False)

	lp, err := NewCompiler().Compile(context.Background(), g, v, 7, reg)
	require.NoError(t, err)
	require.NoError(t, lp.Run(context.Background()))
	assert.Equal(t, 7, lp.Iterations())
}

func TestCompile_NegatedCondition(t *testing.T) {
	// done stays true; stopping on !done would spin to the cap, stopping
	// on done finishes in one pass.
	reg := newTestRegistry(t)
	g, v := buildCounterGraph(t, cty.True)

	lp, err := NewCompiler().Compile(context.Background(), g, subgraph.Not(v), 4, reg)
	require.NoError(t, err)
	require.NoError(t, lp.Run(context.Background()))
	assert.Equal(t, 4, lp.Iterations())
}

func TestCompile_DoubleNegationIsIdentity(t *testing.T) {
	reg := newTestRegistry(t)
	g, v := buildCounterGraph(t, cty.True)

	lp, err := NewCompiler().Compile(context.Background(), g, subgraph.Not(subgraph.Not(v)), 4, reg)
	require.NoError(t, err)
	require.NoError(t, lp.Run(context.Background()))
	assert.Equal(t, 1, lp.Iterations())
}

func TestCompile_Failures(t *testing.T) {
	reg := newTestRegistry(t)

	t.Run("nil graph", func(t *testing.T) {
		_, err := NewCompiler().Compile(context.Background(), nil, nil, 5, reg)
		require.Error(t, err)
		assert.True(t, errdefs.IsUsage(err))
	})

	t.Run("max iteration below one", func(t *testing.T) {
		g, v := buildCounterGraph(t, cty.True)
		_, err := NewCompiler().Compile(context.Background(), g, v, 0, reg)
		require.Error(t, err)
		assert.True(t, errdefs.IsUsage(err))
	})

	t.Run("unknown runner", func(t *testing.T) {
		b := subgraph.NewBuilder()
		v, err := b.Variable("done", cty.True)
		require.NoError(t, err)
		_, err = b.Add("md", subgraph.Task{Runner: "no_such_runner"})
		require.NoError(t, err)
		g, err := b.Freeze()
		require.NoError(t, err)

		_, err = NewCompiler().Compile(context.Background(), g, v, 5, reg)
		require.Error(t, err)
		assert.True(t, errdefs.IsUsage(err))
	})

	t.Run("unsupported condition transform", func(t *testing.T) {
		g, v := buildCounterGraph(t, cty.True)
		cond := subgraph.Condition{Source: v.Get(), Transform: "logical_and"}
		_, err := NewCompiler().Compile(context.Background(), g, cond, 5, reg)
		require.Error(t, err)
		assert.True(t, errdefs.IsNotImplemented(err))
	})

	t.Run("condition of unknown type", func(t *testing.T) {
		g, _ := buildCounterGraph(t, cty.True)
		_, err := NewCompiler().Compile(context.Background(), g, 42, 5, reg)
		require.Error(t, err)
		assert.True(t, errdefs.IsUsage(err))
	})
}

func TestCompile_ReferenceBinding(t *testing.T) {
	reg := newTestRegistry(t)

	t.Run("forward node reference fails", func(t *testing.T) {
		b := subgraph.NewBuilder()
		v, err := b.Variable("done", cty.True)
		require.NoError(t, err)
		_, err = b.Add("first", subgraph.Task{Runner: "echo", Args: map[string]any{
			"value": future.NodeOutput("second", "output", "value"),
		}})
		require.NoError(t, err)
		_, err = b.Add("second", subgraph.Task{Runner: "echo", Args: map[string]any{
			"value": cty.True,
		}})
		require.NoError(t, err)
		g, err := b.Freeze()
		require.NoError(t, err)

		_, err = NewCompiler().Compile(context.Background(), g, v, 5, reg)
		require.Error(t, err)
		assert.True(t, errdefs.IsResolution(err))
	})

	t.Run("variable substep ahead of writes fails", func(t *testing.T) {
		b := subgraph.NewBuilder()
		v, err := b.Variable("done", cty.True)
		require.NoError(t, err)
		_, err = b.Add("md", subgraph.Task{Runner: "echo", Args: map[string]any{
			"value": future.VariableAt("done", 3),
		}})
		require.NoError(t, err)
		g, err := b.Freeze()
		require.NoError(t, err)

		_, err = NewCompiler().Compile(context.Background(), g, v, 5, reg)
		require.Error(t, err)
		assert.True(t, errdefs.IsResolution(err))
	})

	t.Run("node reference must address an output", func(t *testing.T) {
		b := subgraph.NewBuilder()
		v, err := b.Variable("done", cty.True)
		require.NoError(t, err)
		_, err = b.Add("md", subgraph.Task{Runner: "echo", Args: map[string]any{
			"value": cty.True,
		}})
		require.NoError(t, err)
		_, err = b.Add("next", subgraph.Task{Runner: "echo", Args: map[string]any{
			"value": future.Reference{Kind: future.OwnerNode, Key: "md"},
		}})
		require.NoError(t, err)
		g, err := b.Freeze()
		require.NoError(t, err)

		_, err = NewCompiler().Compile(context.Background(), g, v, 5, reg)
		require.Error(t, err)
		assert.True(t, errdefs.IsResolution(err))
	})

	t.Run("condition reference to undeclared variable fails", func(t *testing.T) {
		g, _ := buildCounterGraph(t, cty.True)
		_, err := NewCompiler().Compile(context.Background(), g, future.VariableAt("missing", 0), 5, reg)
		require.Error(t, err)
		assert.True(t, errdefs.IsResolution(err))
	})
}
