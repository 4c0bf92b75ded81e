package outline

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapnote/internal/dag"
)

// ErrNodeNotFound is returned for an unknown node id.
var ErrNodeNotFound = errors.New("node not found")

// Node is one node record. A record listed as a child of several parents
// is a clone.
type Node struct {
	ID       string
	Type     string
	Values   map[string]string
	Children []string
}

// Tree is an arena of node records with a single root. It is not safe for
// concurrent mutation.
type Tree struct {
	nodes  map[string]*Node
	rootID string
}

// NewTree creates a tree holding only its root record. An empty id is
// replaced with a generated one.
func NewTree(rootID, rootType string) *Tree {
	if rootID == "" {
		rootID = uuid.NewString()
	}
	return &Tree{
		nodes:  map[string]*Node{rootID: {ID: rootID, Type: rootType, Values: map[string]string{}}},
		rootID: rootID,
	}
}

// RootID returns the id of the root record.
func (t *Tree) RootID() string { return t.rootID }

// Node returns a node record.
func (t *Tree) Node(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Len returns the number of node records (not positions).
func (t *Tree) Len() int { return len(t.nodes) }

// Add creates a record under parentID and returns its id. An empty id is
// replaced with a generated one.
func (t *Tree) Add(parentID, id, typeName string, values map[string]string) (string, error) {
	parent, ok := t.nodes[parentID]
	if !ok {
		return "", fmt.Errorf("parent %q: %w", parentID, ErrNodeNotFound)
	}
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := t.nodes[id]; exists {
		return "", fmt.Errorf("node %q already exists", id)
	}
	if values == nil {
		values = map[string]string{}
	}
	t.nodes[id] = &Node{ID: id, Type: typeName, Values: maps.Clone(values)}
	parent.Children = append(parent.Children, id)
	return id, nil
}

// Clone lists an existing record as another child of parentID. Clones that
// would make a record its own descendant are rejected.
func (t *Tree) Clone(parentID, id string) error {
	parent, ok := t.nodes[parentID]
	if !ok {
		return fmt.Errorf("parent %q: %w", parentID, ErrNodeNotFound)
	}
	if _, ok := t.nodes[id]; !ok {
		return fmt.Errorf("clone %q: %w", id, ErrNodeNotFound)
	}
	if id == t.rootID {
		return errors.New("the root cannot be cloned")
	}
	parent.Children = append(parent.Children, id)
	if err := t.checkAcyclic(); err != nil {
		parent.Children = parent.Children[:len(parent.Children)-1]
		return err
	}
	return nil
}

// checkAcyclic verifies that no record is its own descendant.
func (t *Tree) checkAcyclic() error {
	g := dag.NewGraph()
	for id := range t.nodes {
		g.AddNode(id, nil)
	}
	for id, n := range t.nodes {
		for _, c := range n.Children {
			if err := g.AddEdge(id, c); err != nil {
				return err
			}
		}
	}
	if hasCycle, path := g.HasCycle(); hasCycle {
		return fmt.Errorf("clone cycle: %v", path)
	}
	return nil
}

// SetValue stores a field value on a record; every clone sees it.
func (t *Tree) SetValue(id, field, value string) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
	}
	if value == "" {
		delete(n.Values, field)
		return nil
	}
	n.Values[field] = value
	return nil
}

// SetType changes the data type of a record.
func (t *Tree) SetType(id, typeName string) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
	}
	n.Type = typeName
	return nil
}

// Root returns the root position.
func (t *Tree) Root() *Position {
	return &Position{tree: t, id: t.rootID}
}

// Positions returns every position of the tree in preorder.
func (t *Tree) Positions() []*Position {
	var out []*Position
	var visit func(p *Position)
	visit = func(p *Position) {
		out = append(out, p)
		for _, c := range p.childPositions() {
			visit(c)
		}
	}
	visit(t.Root())
	return out
}

// PositionsOf returns every position at which record id appears.
func (t *Tree) PositionsOf(id string) []*Position {
	return slices.DeleteFunc(t.Positions(), func(p *Position) bool { return p.id != id })
}

// Position is a record at one place in the tree. It implements NodeView.
type Position struct {
	tree   *Tree
	id     string
	parent *Position
	index  int
}

var _ NodeView = (*Position)(nil)

// ID returns the record id.
func (p *Position) ID() string { return p.id }

// DataType returns the record's type name.
func (p *Position) DataType() string { return p.tree.nodes[p.id].Type }

// FieldValue returns a stored value. Blank values are reported as absent.
func (p *Position) FieldValue(name string) (string, bool) {
	v, ok := p.tree.nodes[p.id].Values[name]
	if v == "" {
		return "", false
	}
	return v, ok
}

// Parent returns the position this one was reached through.
func (p *Position) Parent() (NodeView, bool) {
	if p.parent == nil {
		return nil, false
	}
	return p.parent, true
}

// Children returns the child positions.
func (p *Position) Children() []NodeView {
	cps := p.childPositions()
	out := make([]NodeView, len(cps))
	for i, c := range cps {
		out[i] = c
	}
	return out
}

func (p *Position) childPositions() []*Position {
	ids := p.tree.nodes[p.id].Children
	out := make([]*Position, len(ids))
	for i, id := range ids {
		out[i] = &Position{tree: p.tree, id: id, parent: p, index: i}
	}
	return out
}

// Root returns the root position.
func (p *Position) Root() NodeView {
	return p.tree.Root()
}

// Path returns the child indexes leading from the root to this position.
func (p *Position) Path() []int {
	var path []int
	for c := p; c.parent != nil; c = c.parent {
		path = append(path, c.index)
	}
	slices.Reverse(path)
	return path
}

// String renders the position as its record id and index path.
func (p *Position) String() string {
	return fmt.Sprintf("%s%v", p.id, p.Path())
}
