// Package future defines the deferred-value primitives of the workflow
// layer: the Future interface for not-yet-computed task outputs, and the
// Reference path expression used to name an output or a variable slot
// before it exists.
package future

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Future is a handle to a value produced by a deferred task. Result blocks
// the calling goroutine until the producing task has completed, then
// returns the concrete value. After the first resolution Result is
// idempotent and returns the cached value.
type Future interface {
	Result(ctx context.Context) (cty.Value, error)
}
