package hcl

import (
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/mdflow/mdflow/internal/subgraph"
)

// translateCondition maps the workflow condition expression onto the
// symbolic condition model. Only a variable reference and its logical
// negation are defined; richer boolean combinators are not implemented.
func (t *translator) translateCondition(expr hclsyntax.Expression) (any, error) {
	switch e := expr.(type) {
	case *hclsyntax.UnaryOpExpr:
		if e.Op != hclsyntax.OpLogicalNot {
			return nil, errdefs.NotImplementedf(
				"only logical negation is implemented for conditions (%s)", e.SrcRange)
		}
		inner, err := t.translateCondition(e.Val)
		if err != nil {
			return nil, err
		}
		return subgraph.Not(inner), nil
	case *hclsyntax.ScopeTraversalExpr:
		return t.translateTraversal(e.Traversal)
	case *hclsyntax.ParenthesesExpr:
		return t.translateCondition(e.Expression)
	default:
		return nil, errdefs.NotImplementedf(
			"condition must be a variable reference or its logical negation, got %T (%s)",
			expr, expr.Range())
	}
}
