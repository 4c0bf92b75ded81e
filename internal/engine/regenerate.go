package engine

// regenerate.go - Whole-tree recomputation of Math fields

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapnote/internal/dag"
	"github.com/leapstack-labs/leapnote/pkg/formula"
	"github.com/leapstack-labs/leapnote/pkg/outline"
	"github.com/leapstack-labs/leapnote/pkg/resolve"
)

// Update is a Math field whose value changed during Regenerate.
type Update struct {
	NodeID string `json:"node"`
	Type   string `json:"type"`
	Field  string `json:"field"`
	Old    string `json:"old"`
	New    string `json:"new"`
}

// cell is one Math field of one node record, evaluated at the first
// position the record occupies in preorder.
type cell struct {
	node  outline.NodeView
	typ   string
	field string
	old   string
}

func cellID(nodeID, field string) string { return nodeID + "\x1f" + field }

// Regenerate recomputes every Math field under root in dependency order.
// Runs in two phases:
// Phase 1: the type-level cycle check (abort with nothing evaluated)
// Phase 2: evaluate each field over a snapshot of the tree, so later
// dependents see the values computed earlier in the same pass
//
// The tree is never written; the returned updates are for the caller to
// apply. Fields that fail keep their old value and their errors come back
// together as a *BatchError alongside the updates that did succeed.
func (e *Engine) Regenerate(ctx context.Context, root outline.NodeView) ([]Update, error) {
	e.logger.Info("regenerating formulas", "root", root.ID())

	if err := e.prog.CheckCycles(); err != nil {
		e.logger.Error("regenerate aborted", "error", err)
		return nil, &BatchError{Op: "regenerate", Errors: unjoin(err)}
	}

	snap := newSnapshot()
	g := e.cellGraph(snap.wrap(root))
	sorted, err := g.TopologicalSort()
	if err != nil {
		var ce *dag.CycleError
		if !errors.As(err, &ce) {
			return nil, err
		}
		e.logger.Error("regenerate aborted", "error", err)
		return nil, &BatchError{Op: "regenerate", Errors: []error{cellCycle(g, ce.Path)}}
	}

	e.logger.Debug("evaluating fields", "count", len(sorted))

	var updates []Update
	var errs []error
	for _, n := range sorted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := n.Data.(*cell)
		got, err := e.prog.EvaluateField(c.node, c.field, e.opts)
		if err != nil {
			e.logger.Debug("field evaluation failed", "node", c.node.ID(), "field", c.field, "error", err)
			errs = append(errs, fmt.Errorf("node %s: %w", c.node.ID(), err))
			continue
		}
		snap.set(c.node.ID(), c.field, got)
		if got != c.old {
			updates = append(updates, Update{NodeID: c.node.ID(), Type: c.typ, Field: c.field, Old: c.old, New: got})
		}
	}

	e.logger.Info("regenerate completed", "fields", len(sorted), "updated", len(updates), "errors", len(errs))
	if len(errs) > 0 {
		return updates, &BatchError{Op: "regenerate", Errors: errs}
	}
	return updates, nil
}

// cellGraph builds the position-level dependency graph: an edge runs from
// each field value a formula reads to the cell holding the formula.
func (e *Engine) cellGraph(root outline.NodeView) *dag.Graph {
	g := dag.NewGraph()
	var cells []*cell
	for n := range outline.Walk(root) {
		dt, ok := e.reg.Type(n.DataType())
		if !ok {
			continue
		}
		for _, f := range dt.MathFields() {
			id := cellID(n.ID(), f.Name)
			if _, seen := g.GetNode(id); seen {
				continue
			}
			old, _ := n.FieldValue(f.Name)
			c := &cell{node: n, typ: dt.Name(), field: f.Name, old: old}
			g.AddNode(id, c)
			cells = append(cells, c)
		}
	}

	for _, c := range cells {
		f, err := e.prog.Formula(c.typ, c.field)
		if err != nil {
			continue
		}
		for _, ref := range f.Refs() {
			for _, target := range resolve.Resolve(c.node, ref.Ref) {
				from := cellID(target.ID(), ref.Field)
				if _, ok := g.GetNode(from); ok {
					_ = g.AddEdge(from, cellID(c.node.ID(), c.field))
				}
			}
		}
	}
	return g
}

func cellCycle(g *dag.Graph, path []string) error {
	names := make([]string, len(path))
	for i, id := range path {
		if n, ok := g.GetNode(id); ok {
			c := n.Data.(*cell)
			names[i] = c.node.ID() + "." + c.field
		}
	}
	return &formula.Error{
		Kind:   formula.CircularReference,
		Field:  names[0],
		Detail: strings.Join(names, " -> "),
		Pos:    -1,
	}
}

// Apply writes updates back to a tree.
func Apply(tree *outline.Tree, updates []Update) error {
	for _, u := range updates {
		if err := tree.SetValue(u.NodeID, u.Field, u.New); err != nil {
			return fmt.Errorf("apply %s.%s: %w", u.NodeID, u.Field, err)
		}
	}
	return nil
}
