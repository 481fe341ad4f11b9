package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/mdflow/mdflow/internal/ctxlog"
	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/mdflow/mdflow/internal/fsutil"
	"github.com/mdflow/mdflow/internal/subgraph"
	"github.com/zclconf/go-cty/cty"
)

// defaultMaxIteration caps workflows that do not set max_iteration.
const defaultMaxIteration = 10

// Workflow is a loaded and translated workflow declaration, ready for
// the loop compiler.
type Workflow struct {
	Name         string
	Graph        *subgraph.Graph
	Condition    any
	MaxIteration int
}

// Loader parses workflow files into Workflow values.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a Loader with a fresh parser cache.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load reads one .hcl file or every .hcl file under a directory, walks
// the blocks in file order, and translates them into a frozen subgraph
// plus its loop parameters.
func (l *Loader) Load(ctx context.Context, path string) (*Workflow, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open workflow path: %w", err)
	}
	files := []string{path}
	if info.IsDir() {
		files, err = fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		return nil, errdefs.Usagef("no .hcl workflow files found under %q", path)
	}
	logger.Debug("Loading workflow files.", "count", len(files))

	bodies := make([]*hclsyntax.Body, 0, len(files))
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		parsed, diags := l.parser.ParseHCL(src, file)
		if diags.HasErrors() {
			return nil, errdefs.Usagef("parsing %s: %s", file, diags.Error())
		}
		body, ok := parsed.Body.(*hclsyntax.Body)
		if !ok {
			return nil, errdefs.Usagef("%s: only native HCL syntax is supported", file)
		}
		bodies = append(bodies, body)
	}

	t := newTranslator()
	wf := &Workflow{MaxIteration: defaultMaxIteration}
	var condExpr hclsyntax.Expression

	for _, body := range bodies {
		for _, block := range body.Blocks {
			switch block.Type {
			case "workflow":
				if condExpr != nil {
					return nil, errdefs.Usagef("duplicate workflow block (%s)", block.DefRange())
				}
				if len(block.Labels) > 0 {
					wf.Name = block.Labels[0]
				}
				attr, ok := block.Body.Attributes["condition"]
				if !ok {
					return nil, errdefs.Usagef("workflow block has no condition (%s)", block.DefRange())
				}
				condExpr = attr.Expr
				if maxAttr, ok := block.Body.Attributes["max_iteration"]; ok {
					max, err := intAttr(maxAttr.Expr)
					if err != nil {
						return nil, fmt.Errorf("max_iteration: %w", err)
					}
					wf.MaxIteration = max
				}
			case "variable":
				if len(block.Labels) != 1 {
					return nil, errdefs.Usagef("variable block needs exactly one label (%s)", block.DefRange())
				}
				if err := t.declareVariable(block); err != nil {
					return nil, err
				}
			case "step":
				if len(block.Labels) != 2 {
					return nil, errdefs.Usagef("step block needs runner type and key labels (%s)", block.DefRange())
				}
				if err := t.addStep(block); err != nil {
					return nil, err
				}
			case "set":
				if len(block.Labels) != 1 {
					return nil, errdefs.Usagef("set block needs exactly one variable label (%s)", block.DefRange())
				}
				if err := t.setVariable(block); err != nil {
					return nil, err
				}
			default:
				return nil, errdefs.Usagef("unknown block type %q (%s)", block.Type, block.DefRange())
			}
		}
	}

	if condExpr == nil {
		return nil, errdefs.Usagef("workflow block is required")
	}
	condition, err := t.translateCondition(condExpr)
	if err != nil {
		return nil, fmt.Errorf("condition: %w", err)
	}
	graph, err := t.builder.Freeze()
	if err != nil {
		return nil, err
	}

	wf.Graph = graph
	wf.Condition = condition
	logger.Debug("Workflow translated.",
		"name", wf.Name, "variables", len(graph.Variables()), "steps", len(graph.Steps()))
	return wf, nil
}

func intAttr(expr hclsyntax.Expression) (int, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return 0, errdefs.Usagef("%s", diags.Error())
	}
	if val.Type() != cty.Number {
		return 0, errdefs.Usagef("value must be a number, got %s", val.Type().FriendlyName())
	}
	bf := val.AsBigFloat()
	if !bf.IsInt() {
		return 0, errdefs.Usagef("value must be a whole number")
	}
	n, _ := bf.Int64()
	return int(n), nil
}
