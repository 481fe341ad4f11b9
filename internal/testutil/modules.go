package testutil

import (
	"context"
	"sync"

	"github.com/mdflow/mdflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// SimpleModule registers a single runner with a caller-supplied function.
type SimpleModule struct {
	Type string
	Fn   registry.RunnerFunc
}

// Register registers the module's runner.
func (m *SimpleModule) Register(r *registry.Registry) {
	r.RegisterRunner(&registry.Runner{
		Type:        m.Type,
		Description: "test runner",
		Fn:          m.Fn,
	})
}

// RecorderModule registers a runner that records every input it receives
// and echoes a fixed output. It is safe for concurrent use.
type RecorderModule struct {
	Type   string
	Output map[string]cty.Value

	mu    sync.Mutex
	calls []map[string]cty.Value
}

// Register registers the module's recording runner.
func (m *RecorderModule) Register(r *registry.Registry) {
	r.RegisterRunner(&registry.Runner{
		Type:        m.Type,
		Description: "recording test runner",
		Fn: func(_ context.Context, input map[string]cty.Value) (map[string]cty.Value, error) {
			m.mu.Lock()
			m.calls = append(m.calls, input)
			m.mu.Unlock()
			return m.Output, nil
		},
	})
}

// Calls returns a snapshot of the recorded inputs in call order.
func (m *RecorderModule) Calls() []map[string]cty.Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]cty.Value, len(m.calls))
	copy(out, m.calls)
	return out
}
