package subgraph

// Step is one entry in a subgraph's ordered step log. Steps are totally
// ordered by declaration order; replay must preserve that order exactly,
// because later steps may reference node or variable outputs of earlier
// ones.
type Step interface {
	// Key names the node or variable the step touches.
	Key() string
}

// AddStep records "instantiate this deferred task" under a node key.
type AddStep struct {
	NodeKey string
	Task    Task
}

func (s AddStep) Key() string { return s.NodeKey }

// SetStep records "update this variable from this source expression".
// Source is captured symbolically, never as a computed value.
type SetStep struct {
	VarKey string
	Source any
}

func (s SetStep) Key() string { return s.VarKey }
