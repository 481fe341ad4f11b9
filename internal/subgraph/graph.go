package subgraph

// Graph is a frozen subgraph declaration: the variable specs and the
// ordered step log. It is immutable and may be replayed by any number of
// loop compilations concurrently; each compilation produces its own
// loop-body scope, so no mutation races are possible.
type Graph struct {
	vars  []Spec
	steps []Step
}

// Variables returns the declared variable specs in declaration order.
func (g *Graph) Variables() []Spec {
	out := make([]Spec, len(g.vars))
	copy(out, g.vars)
	return out
}

// Steps returns the recorded step log in declaration order.
func (g *Graph) Steps() []Step {
	out := make([]Step, len(g.steps))
	copy(out, g.steps)
	return out
}
