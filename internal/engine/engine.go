package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/mdflow/mdflow/internal/ctxlog"
	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/mdflow/mdflow/internal/future"
	"github.com/mdflow/mdflow/internal/registry"
	"github.com/mdflow/mdflow/internal/subgraph"
	"github.com/zclconf/go-cty/cty"
)

// Engine dispatches deferred tasks to registered runners. Single tasks
// run on their own goroutine; ensembles share a bounded worker pool.
type Engine struct {
	reg     *registry.Registry
	workers int
}

// New creates an Engine backed by the given registry. workers bounds
// ensemble concurrency and is clamped to at least one.
func New(reg *registry.Registry, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{reg: reg, workers: workers}
}

// TaskHandle is the caller's handle to a submitted task. Its output
// futures block until the task completes.
type TaskHandle struct {
	task    subgraph.Task
	done    chan struct{}
	outputs map[string]cty.Value
	err     error
	once    sync.Once
}

func newTaskHandle(task subgraph.Task) *TaskHandle {
	return &TaskHandle{task: task, done: make(chan struct{})}
}

// Submit starts a single task asynchronously and returns its handle
// immediately. Data-flow dependencies are expressed by passing another
// task's output future among the arguments; the runner blocks on it when
// resolving inputs.
func (e *Engine) Submit(ctx context.Context, task subgraph.Task) *TaskHandle {
	h := newTaskHandle(task)
	go h.run(ctx, e.reg)
	return h
}

// SubmitEnsemble starts a set of independent tasks and returns their
// handles in input order. Members are dispatched to a pool of e.workers
// workers; no ordering is guaranteed across members.
func (e *Engine) SubmitEnsemble(ctx context.Context, tasks []subgraph.Task) []*TaskHandle {
	logger := ctxlog.FromContext(ctx)
	handles := make([]*TaskHandle, len(tasks))
	for i, task := range tasks {
		handles[i] = newTaskHandle(task)
	}

	work := make(chan *TaskHandle)
	for w := 0; w < e.workers; w++ {
		go func(workerID int) {
			logger.Debug("Ensemble worker started.", "workerID", workerID)
			for h := range work {
				h.run(ctx, e.reg)
			}
			logger.Debug("Ensemble worker finished.", "workerID", workerID)
		}(w)
	}
	go func() {
		for _, h := range handles {
			work <- h
		}
		close(work)
	}()
	return handles
}

func (h *TaskHandle) run(ctx context.Context, reg *registry.Registry) {
	h.once.Do(func() {
		defer close(h.done)
		h.outputs, h.err = execute(ctx, reg, h.task)
	})
}

// execute resolves a task's arguments and invokes its runner. Outside a
// loop body there is no scope to resolve subgraph references against, so
// arguments must be literals or futures.
func execute(ctx context.Context, reg *registry.Registry, task subgraph.Task) (map[string]cty.Value, error) {
	rn, err := reg.Runner(task.Runner)
	if err != nil {
		return nil, err
	}
	sc := newScope(nil)
	input := make(map[string]cty.Value, len(task.Args))
	for name, arg := range task.Args {
		if _, isRef := arg.(future.Reference); isRef {
			return nil, errdefs.Resolutionf(
				"argument %q is a subgraph reference, which cannot be resolved outside a loop body", name)
		}
		val, err := sc.resolve(ctx, arg)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		input[name] = val
	}
	return rn.Fn(ctx, input)
}

// Wait blocks until the task completes or the context is canceled.
func (h *TaskHandle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return h.err
	}
}

// Output returns a Future for one named output of the task.
func (h *TaskHandle) Output(name string) future.Future {
	return &taskFuture{handle: h, name: name}
}

type taskFuture struct {
	handle *TaskHandle
	name   string
}

func (f *taskFuture) Result(ctx context.Context) (cty.Value, error) {
	if err := f.handle.Wait(ctx); err != nil {
		return cty.NilVal, err
	}
	val, ok := f.handle.outputs[f.name]
	if !ok {
		return cty.NilVal, errdefs.Resolutionf(
			"task has no output %q", f.name)
	}
	return val, nil
}
