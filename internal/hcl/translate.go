package hcl

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/mdflow/mdflow/internal/future"
	"github.com/mdflow/mdflow/internal/subgraph"
	"github.com/zclconf/go-cty/cty"
)

// translator accumulates a subgraph declaration while walking workflow
// blocks in file order.
type translator struct {
	builder *subgraph.Builder
	vars    map[string]*subgraph.Variable
}

func newTranslator() *translator {
	return &translator{
		builder: subgraph.NewBuilder(),
		vars:    make(map[string]*subgraph.Variable),
	}
}

func (t *translator) declareVariable(block *hclsyntax.Block) error {
	name := block.Labels[0]
	attr, ok := block.Body.Attributes["default"]
	if !ok {
		return errdefs.Usagef("variable %q has no default; variables must be seeded (%s)",
			name, block.DefRange())
	}
	def, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return errdefs.Usagef("variable %q default: %s", name, diags.Error())
	}
	v, err := t.builder.Variable(name, def)
	if err != nil {
		return err
	}
	t.vars[name] = v
	return nil
}

func (t *translator) addStep(block *hclsyntax.Block) error {
	runnerType, key := block.Labels[0], block.Labels[1]
	args := make(map[string]any)
	for _, inner := range block.Body.Blocks {
		if inner.Type != "arguments" {
			return errdefs.Usagef("step %q: unsupported block %q (%s)", key, inner.Type, inner.DefRange())
		}
		// Sort attribute names so translation is deterministic; argument
		// order carries no meaning, unlike step order.
		names := make([]string, 0, len(inner.Body.Attributes))
		for name := range inner.Body.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			val, err := t.translateExpr(inner.Body.Attributes[name].Expr)
			if err != nil {
				return fmt.Errorf("step %q argument %q: %w", key, name, err)
			}
			args[name] = val
		}
	}
	_, err := t.builder.Add(key, subgraph.Task{Runner: runnerType, Args: args})
	return err
}

func (t *translator) setVariable(block *hclsyntax.Block) error {
	name := block.Labels[0]
	v, ok := t.vars[name]
	if !ok {
		return errdefs.Usagef("set targets undeclared variable %q (%s)", name, block.DefRange())
	}
	attr, ok := block.Body.Attributes["value"]
	if !ok {
		return errdefs.Usagef("set %q has no value attribute (%s)", name, block.DefRange())
	}
	source, err := t.translateExpr(attr.Expr)
	if err != nil {
		return fmt.Errorf("set %q: %w", name, err)
	}
	return v.Set(source)
}

// translateExpr turns an HCL expression into a captured step value:
// expressions without references evaluate to literals immediately, and
// reference traversals become deferred path expressions. Computation
// (function calls, operators, templates over references) is not part of
// the declaration language.
func (t *translator) translateExpr(expr hclsyntax.Expression) (any, error) {
	if len(expr.Variables()) == 0 {
		val, diags := expr.Value(nil)
		if diags.HasErrors() {
			return nil, errdefs.Usagef("invalid literal expression: %s", diags.Error())
		}
		return val, nil
	}
	switch e := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		return t.translateTraversal(e.Traversal)
	case *hclsyntax.ObjectConsExpr:
		out := make(map[string]any, len(e.Items))
		for _, item := range e.Items {
			keyVal, diags := item.KeyExpr.Value(nil)
			if diags.HasErrors() || keyVal.Type() != cty.String {
				return nil, errdefs.Usagef("object keys must be literal strings (%s)", item.KeyExpr.Range())
			}
			val, err := t.translateExpr(item.ValueExpr)
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", keyVal.AsString(), err)
			}
			out[keyVal.AsString()] = val
		}
		return out, nil
	case *hclsyntax.TupleConsExpr:
		out := make([]any, 0, len(e.Exprs))
		for i, elem := range e.Exprs {
			val, err := t.translateExpr(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, val)
		}
		return out, nil
	case *hclsyntax.TemplateWrapExpr:
		return t.translateExpr(e.Wrapped)
	case *hclsyntax.ParenthesesExpr:
		return t.translateExpr(e.Expression)
	default:
		return nil, errdefs.NotImplementedf(
			"expression form %T is not implemented; use literals, sequences, objects, or var./step. references (%s)",
			expr, expr.Range())
	}
}

// translateTraversal maps var.* and step.*.output.* traversals onto
// deferred references. Variable reads are tagged with the substep current
// at this point of the file, which is why blocks must be walked in order.
func (t *translator) translateTraversal(trav hcl.Traversal) (future.Reference, error) {
	root := trav.RootName()
	rest := trav.SimpleSplit().Rel
	switch root {
	case "var":
		if len(rest) == 0 {
			return future.Reference{}, errdefs.Usagef("incomplete variable reference (%s)", trav.SourceRange())
		}
		name, ok := traverseName(rest[0])
		if !ok {
			return future.Reference{}, errdefs.Usagef("invalid variable reference (%s)", trav.SourceRange())
		}
		v, declared := t.vars[name]
		if !declared {
			return future.Reference{}, errdefs.Usagef("reference to undeclared variable %q (%s)", name, trav.SourceRange())
		}
		return appendTraversal(v.Get(), rest[1:])
	case "step":
		if len(rest) == 0 {
			return future.Reference{}, errdefs.Usagef("incomplete step reference (%s)", trav.SourceRange())
		}
		key, ok := traverseName(rest[0])
		if !ok {
			return future.Reference{}, errdefs.Usagef("invalid step reference (%s)", trav.SourceRange())
		}
		// The node itself is validated at compile time; a forward
		// reference surfaces there as a resolution failure.
		return appendTraversal(future.NodeOutput(key), rest[1:])
	default:
		return future.Reference{}, errdefs.Usagef(
			"unknown reference root %q; only var.* and step.* are available (%s)", root, trav.SourceRange())
	}
}

func appendTraversal(ref future.Reference, rest hcl.Traversal) (future.Reference, error) {
	for _, step := range rest {
		switch s := step.(type) {
		case hcl.TraverseAttr:
			ref = ref.Attr(s.Name)
		case hcl.TraverseIndex:
			switch s.Key.Type() {
			case cty.String:
				ref = ref.Attr(s.Key.AsString())
			case cty.Number:
				idx, _ := s.Key.AsBigFloat().Int64()
				ref = ref.Index(int(idx))
			default:
				return future.Reference{}, errdefs.Usagef("unsupported index type in reference (%s)", s.SrcRange)
			}
		default:
			return future.Reference{}, errdefs.Usagef("unsupported traversal step in reference")
		}
	}
	return ref, nil
}

func traverseName(step hcl.Traverser) (string, bool) {
	if attr, ok := step.(hcl.TraverseAttr); ok {
		return attr.Name, true
	}
	return "", false
}
