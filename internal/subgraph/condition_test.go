package subgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestNot(t *testing.T) {
	b := NewBuilder()
	v, err := b.Variable("converged", cty.False)
	require.NoError(t, err)

	cond := Not(v)
	assert.Equal(t, TransformLogicalNot, cond.Transform)
	assert.Same(t, v, cond.Source)

	// Annotations nest; each layer keeps its own transform name.
	double := Not(cond)
	inner, ok := double.Source.(Condition)
	require.True(t, ok)
	assert.Equal(t, TransformLogicalNot, inner.Transform)
}
