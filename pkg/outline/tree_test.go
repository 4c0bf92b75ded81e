package outline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cloneOutline = `
id: root
type: Project
fields:
  Name: Plan
children:
  - id: a
    type: Folder
    fields:
      Name: A
    children:
      - id: shared
        type: Task
        fields:
          Amount: 10
  - id: b
    type: Folder
    children:
      - clone: shared
      - id: leaf
        type: Task
        fields:
          Amount: ""
`

func TestLoad_Clones(t *testing.T) {
	tree, err := Load(strings.NewReader(cloneOutline))
	require.NoError(t, err)

	assert.Equal(t, "root", tree.RootID())
	assert.Equal(t, 5, tree.Len())

	positions := tree.PositionsOf("shared")
	require.Len(t, positions, 2)

	p0, ok := positions[0].Parent()
	require.True(t, ok)
	p1, ok := positions[1].Parent()
	require.True(t, ok)
	assert.Equal(t, "a", p0.ID())
	assert.Equal(t, "b", p1.ID(), "each clone position keeps the parent it was reached through")

	v, ok := positions[1].FieldValue("Amount")
	assert.True(t, ok)
	assert.Equal(t, "10", v)

	leaf := tree.PositionsOf("leaf")[0]
	_, ok = leaf.FieldValue("Amount")
	assert.False(t, ok, "blank values are absent")
	assert.Equal(t, []int{1, 1}, leaf.Path())
	assert.Equal(t, 2, Depth(leaf))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "empty", doc: "", want: "empty"},
		{name: "duplicate id", doc: "id: r\nchildren:\n  - id: x\n  - id: x\n", want: "duplicate node id"},
		{name: "unknown clone", doc: "id: r\nchildren:\n  - clone: nope\n", want: "unknown node"},
		{name: "root clone", doc: "id: r\nchildren:\n  - clone: r\n", want: "root cannot be cloned"},
		{name: "clone with data", doc: "id: r\nchildren:\n  - id: x\n  - clone: x\n    type: T\n", want: "must not carry"},
		{name: "clone cycle", doc: "id: r\nchildren:\n  - id: x\n    children:\n      - id: y\n        children:\n          - clone: x\n", want: "clone cycle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_GeneratesIDs(t *testing.T) {
	tree, err := Load(strings.NewReader("type: Root\nchildren:\n  - type: Task\n"))
	require.NoError(t, err)
	assert.NotEmpty(t, tree.RootID())

	children := tree.Root().Children()
	require.Len(t, children, 1)
	assert.Len(t, children[0].ID(), 36)
}

func TestEncode_RoundTrip(t *testing.T) {
	tree, err := Load(strings.NewReader(cloneOutline))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tree.Encode(&buf))
	assert.Contains(t, buf.String(), "clone: shared")

	again, err := Load(&buf)
	require.NoError(t, err)

	var before, after []string
	for _, p := range tree.Positions() {
		before = append(before, p.String())
	}
	for _, p := range again.Positions() {
		after = append(after, p.String())
	}
	assert.Equal(t, before, after)
}

func TestTree_AddAndClone(t *testing.T) {
	tree := NewTree("root", "Project")
	a, err := tree.Add("root", "a", "Task", map[string]string{"Amount": "1"})
	require.NoError(t, err)
	b, err := tree.Add("root", "", "Task", nil)
	require.NoError(t, err)

	require.NoError(t, tree.Clone(b, a))
	assert.Len(t, tree.PositionsOf(a), 2)

	err = tree.Clone(a, b)
	assert.ErrorContains(t, err, "clone cycle")
	assert.Len(t, tree.PositionsOf(b), 1, "rejected clone leaves the tree unchanged")

	_, err = tree.Add("missing", "", "Task", nil)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	require.NoError(t, tree.SetValue(a, "Amount", "7"))
	for _, p := range tree.PositionsOf(a) {
		v, _ := p.FieldValue("Amount")
		assert.Equal(t, "7", v)
	}
	require.NoError(t, tree.SetValue(a, "Amount", ""))
	_, ok := tree.PositionsOf(a)[0].FieldValue("Amount")
	assert.False(t, ok)
}

func TestWalk(t *testing.T) {
	tree, err := Load(strings.NewReader(cloneOutline))
	require.NoError(t, err)

	var ids []string
	for n := range Walk(tree.Root()) {
		ids = append(ids, n.ID())
	}
	assert.Equal(t, []string{"root", "a", "shared", "b", "shared", "leaf"}, ids)

	count := 0
	for range Walk(tree.Root()) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}
