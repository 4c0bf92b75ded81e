package testutil

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/leapnote/pkg/outline"
)

// Outline loads an outline fixture written in the YAML outline format.
func Outline(t testing.TB, doc string) *outline.Tree {
	t.Helper()
	tree, err := outline.Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("load outline fixture: %v", err)
	}
	return tree
}

// At returns the first position of a node record in preorder.
func At(t testing.TB, tree *outline.Tree, id string) *outline.Position {
	t.Helper()
	positions := tree.PositionsOf(id)
	if len(positions) == 0 {
		t.Fatalf("outline fixture has no node %q", id)
	}
	return positions[0]
}

// Value returns a stored field value, "" when absent.
func Value(t testing.TB, tree *outline.Tree, id, field string) string {
	t.Helper()
	n, ok := tree.Node(id)
	if !ok {
		t.Fatalf("outline fixture has no node %q", id)
	}
	return n.Values[field]
}
