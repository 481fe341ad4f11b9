// Package commands builds deferred command-line tasks. It partitions an
// argv-style argument list, in which elements may be literal strings,
// future-valued inputs, or output-file placeholders, into the executable
// name, positional arguments, and input/output flag mappings expected by
// the exec runner.
package commands

import (
	"github.com/mdflow/mdflow/internal/errdefs"
)

type argKind int

const (
	argLiteral argKind = iota
	argInput
	argOutput
)

// Arg is one element of a command line under construction.
type Arg struct {
	kind    argKind
	literal string
	// source is the deferred value of an input-file argument: a
	// future.Future or future.Reference.
	source any
	// outputPath is the requested path of an output-file placeholder.
	outputPath string
}

// String makes a literal argument: a positional argument or an
// input/output flag.
func String(s string) Arg {
	return Arg{kind: argLiteral, literal: s}
}

// Input makes a deferred input-file argument. The source must be a
// future.Future or future.Reference producing the file path; it
// establishes a data-flow dependency on the producing task.
func Input(source any) Arg {
	return Arg{kind: argInput, source: source}
}

// OutputFile makes an output-file placeholder, establishing a named
// output of the task at the given path.
func OutputFile(path string) Arg {
	return Arg{kind: argOutput, outputPath: path}
}

// ParsedArgs is the partition of one argv list.
type ParsedArgs struct {
	Executable  string
	Arguments   []string
	InputFiles  map[string]any
	OutputFiles map[string]string
}

// ParseArgv processes an argument list into positional arguments and I/O
// flag mappings. Positional arguments must precede any flagged
// input/output arguments, and each flag accepts exactly one file value.
func ParseArgv(argv []Arg) (*ParsedArgs, error) {
	if len(argv) == 0 {
		return nil, errdefs.Usagef("argv must be the array of command line arguments, including the executable")
	}
	if argv[0].kind != argLiteral {
		return nil, errdefs.Usagef("the first element of argv must be the executable name")
	}
	parsed := &ParsedArgs{
		Executable:  argv[0].literal,
		InputFiles:  make(map[string]any),
		OutputFiles: make(map[string]string),
	}
	if len(argv) == 1 {
		return parsed, nil
	}

	// Gather positional arguments until the first non-literal element
	// reveals that the preceding literal was an I/O flag.
	previous := argv[1]
	if previous.kind != argLiteral {
		return nil, errdefs.Usagef(
			"unsupported command line syntax: positional arguments must be basic strings, " +
				"and input/output files must be preceded by a flag argument")
	}
	var flag string
	haveFlag := false
	i := 1
	for i = 2; i < len(argv); i++ {
		arg := argv[i]
		switch arg.kind {
		case argLiteral:
			parsed.Arguments = append(parsed.Arguments, previous.literal)
			previous = arg
		case argInput:
			flag = previous.literal
			haveFlag = true
			parsed.InputFiles[flag] = arg.source
		case argOutput:
			flag = previous.literal
			haveFlag = true
			parsed.OutputFiles[flag] = arg.outputPath
		}
		if haveFlag {
			break
		}
	}
	if !haveFlag {
		// No flagged arguments at all; the trailing literal is positional.
		parsed.Arguments = append(parsed.Arguments, previous.literal)
		return parsed, nil
	}

	// argv[i-1] was a flag and argv[i] its file value. Gather any
	// remaining flags and file arguments.
	previous = argv[i]
	for _, arg := range argv[i+1:] {
		switch arg.kind {
		case argLiteral:
			if previous.kind == argLiteral {
				return nil, errdefs.Usagef(
					"flags %q and %q appeared in sequence where input/output flags and file arguments are expected",
					previous.literal, arg.literal)
			}
			flag = arg.literal
			if _, dup := parsed.InputFiles[flag]; dup {
				return nil, errdefs.Usagef("duplicated input/output file flags are not supported: %s", flag)
			}
			if _, dup := parsed.OutputFiles[flag]; dup {
				return nil, errdefs.Usagef("duplicated input/output file flags are not supported: %s", flag)
			}
		case argOutput:
			if _, isInput := parsed.InputFiles[flag]; isInput {
				return nil, errdefs.Usagef("output file provided to %s, but %s is an input file flag", flag, flag)
			}
			if existing, dup := parsed.OutputFiles[flag]; dup {
				return nil, errdefs.Usagef("output file provided to %s, but %s is already set to %s", flag, flag, existing)
			}
			parsed.OutputFiles[flag] = arg.outputPath
		case argInput:
			if _, isOutput := parsed.OutputFiles[flag]; isOutput {
				return nil, errdefs.Usagef("input file provided to %s, but %s is an output file flag", flag, flag)
			}
			if _, dup := parsed.InputFiles[flag]; dup {
				return nil, errdefs.Usagef("input file provided to %s, but %s is already set", flag, flag)
			}
			parsed.InputFiles[flag] = arg.source
		}
		previous = arg
	}
	if previous.kind == argLiteral {
		return nil, errdefs.Usagef("got flag %q with no arguments", previous.literal)
	}
	return parsed, nil
}
