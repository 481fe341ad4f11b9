// Package exec provides the command-line task runner. It executes one
// subprocess per task, wiring positional arguments, input-file flags, and
// output-file flags onto the command line.
package exec

import (
	"bytes"
	"context"
	"fmt"
	osexec "os/exec"
	"sort"
	"strings"

	"github.com/mdflow/mdflow/internal/ctxlog"
	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/mdflow/mdflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the exec runner with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner(&registry.Runner{
		Type:        "exec",
		Description: "Run a command line executable as a task.",
		Fn:          OnRunExec,
	})
}

// OnRunExec is the handler for the exec runner. It builds the command
// line from the resolved inputs, runs the subprocess under the task
// context, and publishes stdout, the return code, and the output-file
// path map.
func OnRunExec(ctx context.Context, input map[string]cty.Value) (map[string]cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	executable, ok := input["executable"]
	if !ok || executable.Type() != cty.String {
		return nil, errdefs.Usagef("exec runner requires a string 'executable' input")
	}

	argv, err := buildArgv(input)
	if err != nil {
		return nil, err
	}

	cmd := osexec.CommandContext(ctx, executable.AsString(), argv...)
	if stdin, ok := input["stdin"]; ok {
		if stdin.Type() != cty.String {
			return nil, errdefs.Usagef("exec runner 'stdin' input must be a string")
		}
		cmd.Stdin = strings.NewReader(stdin.AsString())
	}
	if env, ok := input["env"]; ok {
		pairs, err := stringMap(env, "env")
		if err != nil {
			return nil, err
		}
		cmd.Env = formatEnv(pairs)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Starting subprocess.", "executable", executable.AsString(), "args", argv)
	runErr := cmd.Run()
	code := -1
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	if runErr != nil {
		return nil, fmt.Errorf("%s exited with code %d: %w (stderr: %s)",
			executable.AsString(), code, runErr, strings.TrimSpace(stderr.String()))
	}
	logger.Debug("Subprocess finished.", "executable", executable.AsString(), "returncode", code)

	outputFiles := cty.EmptyObjectVal
	if raw, ok := input["output_files"]; ok {
		files, err := stringMap(raw, "output_files")
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			attrs := make(map[string]cty.Value, len(files))
			for flag, path := range files {
				attrs[flag] = cty.StringVal(path)
			}
			outputFiles = cty.ObjectVal(attrs)
		}
	}

	return map[string]cty.Value{
		"stdout":     cty.StringVal(stdout.String()),
		"returncode": cty.NumberIntVal(int64(code)),
		"file":       outputFiles,
	}, nil
}

// buildArgv assembles positional arguments followed by input and output
// file flags. Flag order within each group is sorted for determinism.
func buildArgv(input map[string]cty.Value) ([]string, error) {
	var argv []string
	if raw, ok := input["arguments"]; ok {
		ty := raw.Type()
		if !ty.IsTupleType() && !ty.IsListType() {
			return nil, errdefs.Usagef("exec runner 'arguments' input must be a sequence of strings")
		}
		it := raw.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			if elem.Type() != cty.String {
				return nil, errdefs.Usagef("exec runner 'arguments' elements must be strings")
			}
			argv = append(argv, elem.AsString())
		}
	}
	for _, name := range []string{"input_files", "output_files"} {
		raw, ok := input[name]
		if !ok {
			continue
		}
		files, err := stringMap(raw, name)
		if err != nil {
			return nil, err
		}
		flags := make([]string, 0, len(files))
		for flag := range files {
			flags = append(flags, flag)
		}
		sort.Strings(flags)
		for _, flag := range flags {
			argv = append(argv, flag, files[flag])
		}
	}
	return argv, nil
}

func stringMap(val cty.Value, name string) (map[string]string, error) {
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, errdefs.Usagef("exec runner %q input must map flags to strings", name)
	}
	if val.LengthInt() == 0 {
		return map[string]string{}, nil
	}
	out := make(map[string]string)
	for key, elem := range val.AsValueMap() {
		if elem.Type() != cty.String {
			return nil, errdefs.Usagef("exec runner %q entry %q must be a string", name, key)
		}
		out[key] = elem.AsString()
	}
	return out, nil
}

func formatEnv(pairs map[string]string) []string {
	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(pairs))
	for _, key := range keys {
		env = append(env, key+"="+pairs[key])
	}
	return env
}
