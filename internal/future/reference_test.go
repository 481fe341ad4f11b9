package future

import (
	"testing"

	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestReference_String(t *testing.T) {
	testCases := []struct {
		name        string
		ref         Reference
		expectedStr string
	}{
		{
			name:        "node output attribute",
			ref:         NodeOutput("md", "output", "checkpoint"),
			expectedStr: "step.md.output.checkpoint",
		},
		{
			name:        "variable at substep",
			ref:         VariableAt("checkpoint", 2),
			expectedStr: "var.checkpoint@2",
		},
		{
			name:        "indexed path",
			ref:         NodeOutput("min", "output", "data").Index(3),
			expectedStr: "step.min.output.data[3]",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedStr, tc.ref.String())
		})
	}
}

func TestReference_ExtendDoesNotMutateReceiver(t *testing.T) {
	base := NodeOutput("md", "output")

	a := base.Attr("checkpoint")
	b := base.Attr("trajectory")

	assert.Equal(t, "step.md.output", base.String())
	assert.Equal(t, "step.md.output.checkpoint", a.String())
	assert.Equal(t, "step.md.output.trajectory", b.String())
}

func TestApply(t *testing.T) {
	val := cty.ObjectVal(map[string]cty.Value{
		"output": cty.ObjectVal(map[string]cty.Value{
			"data": cty.TupleVal([]cty.Value{
				cty.NumberIntVal(10),
				cty.NumberIntVal(20),
			}),
		}),
	})

	t.Run("attribute chain", func(t *testing.T) {
		ref := NodeOutput("x", "output", "data")
		got, err := Apply(val, ref.Path)
		require.NoError(t, err)
		assert.True(t, got.RawEquals(cty.TupleVal([]cty.Value{
			cty.NumberIntVal(10),
			cty.NumberIntVal(20),
		})))
	})

	t.Run("attribute then index", func(t *testing.T) {
		ref := NodeOutput("x", "output", "data").Index(1)
		got, err := Apply(val, ref.Path)
		require.NoError(t, err)
		assert.True(t, got.RawEquals(cty.NumberIntVal(20)))
	})

	t.Run("missing attribute is a resolution error", func(t *testing.T) {
		ref := NodeOutput("x", "output", "nope")
		_, err := Apply(val, ref.Path)
		require.Error(t, err)
		assert.True(t, errdefs.IsResolution(err))
	})

	t.Run("attribute on non-object is a resolution error", func(t *testing.T) {
		ref := NodeOutput("x", "output", "data", "deeper")
		_, err := Apply(val, ref.Path)
		require.Error(t, err)
		assert.True(t, errdefs.IsResolution(err))
	})

	t.Run("index out of range is a resolution error", func(t *testing.T) {
		ref := NodeOutput("x", "output", "data").Index(5)
		_, err := Apply(val, ref.Path)
		require.Error(t, err)
		assert.True(t, errdefs.IsResolution(err))
	})
}
