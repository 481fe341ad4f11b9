package exec

import (
	"context"
	"runtime"
	"testing"

	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on POSIX shell utilities")
	}
}

func TestOnRunExec(t *testing.T) {
	skipOnWindows(t)

	t.Run("captures stdout and return code", func(t *testing.T) {
		out, err := OnRunExec(context.Background(), map[string]cty.Value{
			"executable": cty.StringVal("echo"),
			"arguments": cty.TupleVal([]cty.Value{
				cty.StringVal("hello"),
			}),
		})
		require.NoError(t, err)
		assert.True(t, out["stdout"].RawEquals(cty.StringVal("hello\n")))
		assert.True(t, out["returncode"].RawEquals(cty.NumberIntVal(0)))
		assert.True(t, out["file"].RawEquals(cty.EmptyObjectVal))
	})

	t.Run("passes stdin", func(t *testing.T) {
		out, err := OnRunExec(context.Background(), map[string]cty.Value{
			"executable": cty.StringVal("cat"),
			"stdin":      cty.StringVal("line one\n"),
		})
		require.NoError(t, err)
		assert.True(t, out["stdout"].RawEquals(cty.StringVal("line one\n")))
	})

	t.Run("substitutes environment", func(t *testing.T) {
		out, err := OnRunExec(context.Background(), map[string]cty.Value{
			"executable": cty.StringVal("env"),
			"env": cty.ObjectVal(map[string]cty.Value{
				"GREETING": cty.StringVal("hi"),
			}),
		})
		require.NoError(t, err)
		assert.True(t, out["stdout"].RawEquals(cty.StringVal("GREETING=hi\n")))
	})

	t.Run("publishes output file paths", func(t *testing.T) {
		out, err := OnRunExec(context.Background(), map[string]cty.Value{
			"executable": cty.StringVal("true"),
			"output_files": cty.ObjectVal(map[string]cty.Value{
				"-o": cty.StringVal("out.trr"),
			}),
		})
		require.NoError(t, err)
		file := out["file"]
		require.True(t, file.Type().IsObjectType())
		assert.True(t, file.GetAttr("-o").RawEquals(cty.StringVal("out.trr")))
	})

	t.Run("nonzero exit is an error", func(t *testing.T) {
		_, err := OnRunExec(context.Background(), map[string]cty.Value{
			"executable": cty.StringVal("false"),
		})
		require.Error(t, err)
	})

	t.Run("missing executable input", func(t *testing.T) {
		_, err := OnRunExec(context.Background(), map[string]cty.Value{})
		require.Error(t, err)
		assert.True(t, errdefs.IsUsage(err))
	})
}

func TestBuildArgv(t *testing.T) {
	argv, err := buildArgv(map[string]cty.Value{
		"arguments": cty.TupleVal([]cty.Value{
			cty.StringVal("-v"),
		}),
		"input_files": cty.ObjectVal(map[string]cty.Value{
			"-s": cty.StringVal("topol.tpr"),
			"-c": cty.StringVal("conf.gro"),
		}),
		"output_files": cty.ObjectVal(map[string]cty.Value{
			"-o": cty.StringVal("traj.trr"),
		}),
	})
	require.NoError(t, err)
	// Positionals first, then input flags sorted, then output flags.
	assert.Equal(t, []string{"-v", "-c", "conf.gro", "-s", "topol.tpr", "-o", "traj.trr"}, argv)
}

func TestBuildArgv_Failures(t *testing.T) {
	t.Run("non-sequence arguments", func(t *testing.T) {
		_, err := buildArgv(map[string]cty.Value{
			"arguments": cty.StringVal("-v"),
		})
		require.Error(t, err)
		assert.True(t, errdefs.IsUsage(err))
	})

	t.Run("non-string file path", func(t *testing.T) {
		_, err := buildArgv(map[string]cty.Value{
			"input_files": cty.ObjectVal(map[string]cty.Value{
				"-s": cty.NumberIntVal(1),
			}),
		})
		require.Error(t, err)
		assert.True(t, errdefs.IsUsage(err))
	})
}
