package subgraph

import "github.com/mdflow/mdflow/internal/future"

// Node is the handle returned by Builder.Add. It represents one task
// instantiation inside the subgraph body and exists so that later lines
// of the same declaration can reference the task's not-yet-computed
// outputs.
//
// A Node identifies its step-log entry by key and index; it holds no
// pointer into the log, so handles stay valid after the builder freezes.
type Node struct {
	key   string
	index int
}

// Key returns the node's step-log key.
func (n *Node) Key() string { return n.key }

// Index returns the node's position in the step log.
func (n *Node) Index() int { return n.index }

// Output builds a reference to one named output of the task, e.g.
// md.Output("checkpoint") for the value published as
// step.md.output.checkpoint.
func (n *Node) Output(field string) future.Reference {
	return future.NodeOutput(n.key, "output", field)
}
