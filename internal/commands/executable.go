package commands

import (
	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/mdflow/mdflow/internal/subgraph"
	"github.com/zclconf/go-cty/cty"
)

// RunnerType is the registered runner the built tasks execute on.
const RunnerType = "exec"

type options struct {
	stdin     string
	haveStdin bool
	env       map[string]string
	resources map[string]any
	inputs    []any
	outputs   []any
}

// Option customizes an executable task.
type Option func(*options)

// WithStdin sends the given string, including line breaks, to the
// executable's standard input.
func WithStdin(stdin string) Option {
	return func(o *options) {
		o.stdin = stdin
		o.haveStdin = true
	}
}

// WithEnv substitutes the given environment instead of inheriting the
// execution environment.
func WithEnv(env map[string]string) Option {
	return func(o *options) { o.env = env }
}

// WithResources names runtime resource requirements for the task.
// Not yet supported.
func WithResources(resources map[string]any) Option {
	return func(o *options) { o.resources = resources }
}

// WithInputs enumerates implicit inputs beyond command line arguments.
// Not yet supported.
func WithInputs(inputs ...any) Option {
	return func(o *options) { o.inputs = inputs }
}

// WithOutputs enumerates implicit outputs beyond output-file arguments.
// Not yet supported.
func WithOutputs(outputs ...any) Option {
	return func(o *options) { o.outputs = outputs }
}

// Executable wraps a command line in a deferred task description.
//
// The first element of argv is the executable. Elements may be literal
// strings, future-valued inputs, or output-file placeholders; see
// ParseArgv for the partitioning rules.
func Executable(argv []Arg, opts ...Option) (subgraph.Task, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return subgraph.Task{}, err
	}
	parsed, err := ParseArgv(argv)
	if err != nil {
		return subgraph.Task{}, err
	}
	return buildTask(parsed, o), nil
}

// Ensemble wraps a list of argv lists into one task per member. Members
// must share a single executable; differing executables are rejected
// before any task is built.
func Ensemble(argvs [][]Arg, opts ...Option) ([]subgraph.Task, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if len(argvs) == 0 {
		return nil, errdefs.Usagef("ensemble argv must contain at least one member")
	}
	members := make([]*ParsedArgs, 0, len(argvs))
	for _, argv := range argvs {
		parsed, err := ParseArgv(argv)
		if err != nil {
			return nil, err
		}
		members = append(members, parsed)
	}
	executable := members[0].Executable
	for _, member := range members[1:] {
		if member.Executable != executable {
			return nil, errdefs.Usagef(
				"ensemble command line operations must use the same executable: got %q and %q",
				executable, member.Executable)
		}
	}
	tasks := make([]subgraph.Task, 0, len(members))
	for _, member := range members {
		tasks = append(tasks, buildTask(member, o))
	}
	return tasks, nil
}

func applyOptions(opts []Option) (*options, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.resources != nil {
		return nil, errdefs.NotImplementedf("the resources option is not yet supported")
	}
	if o.inputs != nil {
		return nil, errdefs.NotImplementedf("the inputs option is not yet supported")
	}
	if o.outputs != nil {
		return nil, errdefs.NotImplementedf("the outputs option is not yet supported")
	}
	return o, nil
}

func buildTask(parsed *ParsedArgs, o *options) subgraph.Task {
	arguments := make([]any, 0, len(parsed.Arguments))
	for _, arg := range parsed.Arguments {
		arguments = append(arguments, cty.StringVal(arg))
	}
	inputFiles := make(map[string]any, len(parsed.InputFiles))
	for flag, source := range parsed.InputFiles {
		inputFiles[flag] = source
	}
	outputFiles := make(map[string]any, len(parsed.OutputFiles))
	for flag, path := range parsed.OutputFiles {
		outputFiles[flag] = cty.StringVal(path)
	}

	args := map[string]any{
		"executable":   cty.StringVal(parsed.Executable),
		"arguments":    arguments,
		"input_files":  inputFiles,
		"output_files": outputFiles,
	}
	if o.haveStdin {
		args["stdin"] = cty.StringVal(o.stdin)
	}
	if o.env != nil {
		env := make(map[string]any, len(o.env))
		for key, val := range o.env {
			env[key] = cty.StringVal(val)
		}
		args["env"] = env
	}
	return subgraph.Task{Runner: RunnerType, Args: args}
}
