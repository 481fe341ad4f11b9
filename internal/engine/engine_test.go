package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/mdflow/mdflow/internal/future"
	"github.com/mdflow/mdflow/internal/registry"
	"github.com/mdflow/mdflow/internal/subgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestEngine_SubmitAndOutput(t *testing.T) {
	reg := echoRegistry(t)
	e := New(reg, 2)

	h := e.Submit(context.Background(), subgraph.Task{
		Runner: "echo",
		Args:   map[string]any{"value": cty.StringVal("hello")},
	})
	require.NoError(t, h.Wait(context.Background()))

	val, err := h.Output("value").Result(context.Background())
	require.NoError(t, err)
	assert.True(t, val.RawEquals(cty.StringVal("hello")))

	_, err = h.Output("missing").Result(context.Background())
	require.Error(t, err)
	assert.True(t, errdefs.IsResolution(err))
}

func TestEngine_FutureChainsTasks(t *testing.T) {
	// The second task consumes the first task's output future; resolution
	// blocks until the producer finishes.
	reg := echoRegistry(t)
	e := New(reg, 2)

	first := e.Submit(context.Background(), subgraph.Task{
		Runner: "echo",
		Args:   map[string]any{"value": cty.NumberIntVal(42)},
	})
	second := e.Submit(context.Background(), subgraph.Task{
		Runner: "echo",
		Args:   map[string]any{"value": first.Output("value")},
	})

	val, err := second.Output("value").Result(context.Background())
	require.NoError(t, err)
	assert.True(t, val.RawEquals(cty.NumberIntVal(42)))
}

func TestEngine_FutureResultIsStable(t *testing.T) {
	reg := echoRegistry(t)
	e := New(reg, 1)

	h := e.Submit(context.Background(), subgraph.Task{
		Runner: "echo",
		Args:   map[string]any{"value": cty.True},
	})
	fut := h.Output("value")

	first, err := fut.Result(context.Background())
	require.NoError(t, err)
	second, err := fut.Result(context.Background())
	require.NoError(t, err)
	assert.True(t, first.RawEquals(second))
}

func TestEngine_RejectsReferencesOutsideLoops(t *testing.T) {
	reg := echoRegistry(t)
	e := New(reg, 1)

	h := e.Submit(context.Background(), subgraph.Task{
		Runner: "echo",
		Args:   map[string]any{"value": future.VariableAt("x", 0)},
	})
	err := h.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, errdefs.IsResolution(err))
}

func TestEngine_UnknownRunner(t *testing.T) {
	e := New(registry.New(), 1)
	h := e.Submit(context.Background(), subgraph.Task{Runner: "nope"})
	err := h.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, errdefs.IsUsage(err))
}

func TestEngine_EnsembleRunsAllMembers(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]bool)

	reg := registry.New()
	reg.RegisterRunner(&registry.Runner{
		Type:        "record",
		Description: "records its id input",
		Fn: func(_ context.Context, input map[string]cty.Value) (map[string]cty.Value, error) {
			mu.Lock()
			seen[input["id"].AsString()] = true
			mu.Unlock()
			return map[string]cty.Value{"id": input["id"]}, nil
		},
	})
	e := New(reg, 3)

	tasks := make([]subgraph.Task, 0, 8)
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, id := range ids {
		tasks = append(tasks, subgraph.Task{
			Runner: "record",
			Args:   map[string]any{"id": cty.StringVal(id)},
		})
	}

	handles := e.SubmitEnsemble(context.Background(), tasks)
	require.Len(t, handles, len(tasks))
	for i, h := range handles {
		require.NoError(t, h.Wait(context.Background()))
		val, err := h.Output("id").Result(context.Background())
		require.NoError(t, err)
		assert.True(t, val.RawEquals(cty.StringVal(ids[i])), "handle %d", i)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, len(ids))
}

func TestEngine_EnsembleBoundsConcurrency(t *testing.T) {
	var mu sync.Mutex
	running, peak := 0, 0

	reg := registry.New()
	reg.RegisterRunner(&registry.Runner{
		Type:        "busy",
		Description: "tracks concurrent executions",
		Fn: func(_ context.Context, _ map[string]cty.Value) (map[string]cty.Value, error) {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
			return nil, nil
		},
	})
	e := New(reg, 2)

	tasks := make([]subgraph.Task, 6)
	for i := range tasks {
		tasks[i] = subgraph.Task{Runner: "busy"}
	}
	for _, h := range e.SubmitEnsemble(context.Background(), tasks) {
		require.NoError(t, h.Wait(context.Background()))
	}

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, 2)
	assert.Greater(t, peak, 0)
}
