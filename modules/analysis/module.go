// Package analysis provides small numeric runners used by
// simulation-and-analysis workflows: a series minimum and a scalar
// comparison, enough to express "analyze, then loop until converged"
// pipelines.
package analysis

import (
	"context"

	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/mdflow/mdflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"gonum.org/v1/gonum/floats"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the analysis runners with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner(&registry.Runner{
		Type:        "numeric_min",
		Description: "Find the minimum of a numeric data series.",
		Fn:          OnRunNumericMin,
	})
	r.RegisterRunner(&registry.Runner{
		Type:        "less_than",
		Description: "Compare two scalars: data = lhs < rhs.",
		Fn:          OnRunLessThan,
	})
}

// OnRunNumericMin publishes the minimum of the 'data' series as 'data'.
func OnRunNumericMin(ctx context.Context, input map[string]cty.Value) (map[string]cty.Value, error) {
	raw, ok := input["data"]
	if !ok {
		return nil, errdefs.Usagef("numeric_min requires a 'data' input")
	}
	ty := raw.Type()
	if !ty.IsTupleType() && !ty.IsListType() {
		return nil, errdefs.Usagef("numeric_min 'data' input must be a sequence of numbers")
	}
	if raw.LengthInt() == 0 {
		return nil, errdefs.Usagef("numeric_min 'data' input must not be empty")
	}
	series := make([]float64, 0, raw.LengthInt())
	it := raw.ElementIterator()
	for it.Next() {
		_, elem := it.Element()
		if elem.Type() != cty.Number {
			return nil, errdefs.Usagef("numeric_min 'data' elements must be numbers")
		}
		f, _ := elem.AsBigFloat().Float64()
		series = append(series, f)
	}
	return map[string]cty.Value{
		"data": cty.NumberFloatVal(floats.Min(series)),
	}, nil
}

// OnRunLessThan publishes lhs < rhs as the boolean output 'data'.
func OnRunLessThan(ctx context.Context, input map[string]cty.Value) (map[string]cty.Value, error) {
	lhs, lok := input["lhs"]
	rhs, rok := input["rhs"]
	if !lok || !rok {
		return nil, errdefs.Usagef("less_than requires 'lhs' and 'rhs' inputs")
	}
	if lhs.Type() != cty.Number || rhs.Type() != cty.Number {
		return nil, errdefs.Usagef("less_than inputs must be numbers")
	}
	return map[string]cty.Value{
		"data": lhs.LessThan(rhs),
	}, nil
}
