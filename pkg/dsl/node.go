package dsl

import "github.com/aretw0/stemma/pkg/domain"

// Node is one declared step of the intended tree: a root, or a recipe
// applied to its parent's future state.
type Node struct {
	builder  *Builder
	init     domain.Initializer // set on roots only
	recipe   domain.Recipe      // set on non-roots only
	children []*Node
	handle   domain.Handle // set by Run
}

// Then declares a recipe applied to this node's state, returning the new
// child so further steps can chain off it.
func (n *Node) Then(r domain.Recipe) *Node {
	child := &Node{builder: n.builder, recipe: r}
	n.children = append(n.children, child)
	return child
}

// Handle returns the node/promise handle this step materialized into.
// It is nil before Run.
func (n *Node) Handle() domain.Handle {
	return n.handle
}

// ID returns the registry identifier of the materialized step, or the empty
// string before Run.
func (n *Node) ID() string {
	if n.handle == nil {
		return ""
	}
	return n.handle.HandleID()
}
