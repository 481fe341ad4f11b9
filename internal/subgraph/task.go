package subgraph

import (
	"fmt"

	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/mdflow/mdflow/internal/future"
	"github.com/zclconf/go-cty/cty"
)

// Task describes one deferred invocation of a registered runner. The
// argument values may be concrete cty literals, deferred references or
// futures, or nested maps and slices of the same; none of them are
// resolved until the engine executes the task.
type Task struct {
	// Runner is the registered runner type that will execute the task.
	Runner string
	// Args maps input names to argument values.
	Args map[string]any
}

// checkStepValue validates that a captured argument or source expression
// is made of the value kinds the engine knows how to resolve. Nested maps
// and slices are checked recursively. It does not attempt to resolve
// references; producers may legitimately not exist yet.
func checkStepValue(v any) error {
	switch val := v.(type) {
	case cty.Value:
		return nil
	case future.Reference:
		return nil
	case future.Future:
		return nil
	case map[string]any:
		for key, elem := range val {
			if err := checkStepValue(elem); err != nil {
				return fmt.Errorf("entry %q: %w", key, err)
			}
		}
		return nil
	case []any:
		for i, elem := range val {
			if err := checkStepValue(elem); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	default:
		return errdefs.Usagef("unsupported value of type %T in step expression", v)
	}
}

func (t Task) validate() error {
	if t.Runner == "" {
		return errdefs.Usagef("task has no runner type")
	}
	for name, arg := range t.Args {
		if err := checkStepValue(arg); err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
	}
	return nil
}
