// Package outline provides the read-only node view that field lookups,
// formulas and rules run against, plus an in-memory outline of node records
// and the positions they occupy.
//
// Node identity and node position are separate: a cloned node is one record
// that appears at several positions, and each position knows the parent it
// was reached through.
package outline

import "iter"

// NodeView is a node at one position of an outline.
type NodeView interface {
	// ID is the identity of the node record; clones share it.
	ID() string
	// DataType names the node's data type.
	DataType() string
	// FieldValue returns the stored value of a field, false when the node
	// has no value for it.
	FieldValue(name string) (string, bool)
	// Parent returns the parent of this position, false at the root.
	Parent() (NodeView, bool)
	// Children returns the child positions in order.
	Children() []NodeView
	// Root returns the root position.
	Root() NodeView
}

// Walk yields root and every position below it in preorder.
func Walk(root NodeView) iter.Seq[NodeView] {
	return func(yield func(NodeView) bool) {
		walk(root, yield)
	}
}

func walk(n NodeView, yield func(NodeView) bool) bool {
	if !yield(n) {
		return false
	}
	for _, c := range n.Children() {
		if !walk(c, yield) {
			return false
		}
	}
	return true
}

// Depth returns the number of parents above n.
func Depth(n NodeView) int {
	d := 0
	for p, ok := n.Parent(); ok; p, ok = p.Parent() {
		d++
	}
	return d
}
