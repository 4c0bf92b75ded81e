// Package resolve maps field references to the nodes they read. References
// are resolved over positions, so a cloned node's parent is always the one
// the walk came through.
package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapnote/pkg/outline"
)

// Level is the structural direction of a reference.
type Level int

// Reference levels.
const (
	Self Level = iota
	Parent
	Root
	Ancestor
	Child
)

func (l Level) String() string {
	switch l {
	case Self:
		return "self"
	case Parent:
		return "parent"
	case Root:
		return "root"
	case Ancestor:
		return "ancestor"
	case Child:
		return "child"
	}
	return "Level(" + strconv.Itoa(int(l)) + ")"
}

// Ref is a reference anchor. Generations counts the steps up for Ancestor.
type Ref struct {
	Level       Level
	Generations int
}

// Ref shorthands.
var (
	SelfRef   = Ref{Level: Self}
	ParentRef = Ref{Level: Parent}
	RootRef   = Ref{Level: Root}
	ChildRef  = Ref{Level: Child}
)

// AncestorRef returns the reference n generations above the origin.
func AncestorRef(n int) Ref {
	return Ref{Level: Ancestor, Generations: n}
}

// ParseRef reads a reference prefix: self, parent, root, child or ancestorN.
func ParseRef(s string) (Ref, error) {
	switch strings.ToLower(s) {
	case "self":
		return SelfRef, nil
	case "parent":
		return ParentRef, nil
	case "root":
		return RootRef, nil
	case "child", "children":
		return ChildRef, nil
	}
	lower := strings.ToLower(s)
	if rest, ok := strings.CutPrefix(lower, "ancestor"); ok {
		n, err := strconv.Atoi(rest)
		if err == nil && n >= 1 && strconv.Itoa(n) == rest {
			return AncestorRef(n), nil
		}
	}
	return Ref{}, fmt.Errorf("unknown reference level %q", s)
}

func (r Ref) String() string {
	if r.Level == Ancestor {
		return "ancestor" + strconv.Itoa(r.Generations)
	}
	return r.Level.String()
}

// IsMulti reports whether the reference yields a set of nodes.
func (r Ref) IsMulti() bool {
	return r.Level == Child
}

// Resolve returns the nodes the reference reads from origin: none when the
// reference has no target (a parent of the root), one node for single
// levels, and every child for Child.
func Resolve(origin outline.NodeView, ref Ref) []outline.NodeView {
	switch ref.Level {
	case Self:
		return []outline.NodeView{origin}
	case Parent:
		return Resolve(origin, AncestorRef(1))
	case Root:
		return []outline.NodeView{origin.Root()}
	case Ancestor:
		if ref.Generations < 1 {
			return nil
		}
		n := origin
		for range ref.Generations {
			p, ok := n.Parent()
			if !ok {
				return nil
			}
			n = p
		}
		return []outline.NodeView{n}
	case Child:
		return origin.Children()
	}
	return nil
}

// ChildCount returns the number of child positions.
func ChildCount(n outline.NodeView) int {
	return len(n.Children())
}

// DescendantCount counts every position below n. A cloned node is counted
// once per position. A child whose record already appears on the current
// path is counted but not expanded, so malformed clone cycles terminate.
func DescendantCount(n outline.NodeView) int {
	onPath := map[string]bool{n.ID(): true}
	var count func(v outline.NodeView) int
	count = func(v outline.NodeView) int {
		total := 0
		for _, c := range v.Children() {
			total++
			if onPath[c.ID()] {
				continue
			}
			onPath[c.ID()] = true
			total += count(c)
			delete(onPath, c.ID())
		}
		return total
	}
	return count(n)
}
