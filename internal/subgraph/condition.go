package subgraph

// TransformLogicalNot is the only condition transformation currently
// defined. Compilation rejects any other name.
const TransformLogicalNot = "logical_not"

// Condition annotates a source expression with a named transformation.
// The annotation is symbolic; it is resolved to an executable boolean
// test only when the loop is compiled.
type Condition struct {
	// Source is the wrapped expression: a future.Reference, a *Variable,
	// or another Condition.
	Source any
	// Transform names the transformation to apply, or is empty for the
	// identity.
	Transform string
}

// Not annotates a condition source with a logical negation.
func Not(source any) Condition {
	return Condition{Source: source, Transform: TransformLogicalNot}
}
