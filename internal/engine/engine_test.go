package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapnote/internal/testutil"
	"github.com/leapstack-labs/leapnote/pkg/fieldformat"
	"github.com/leapstack-labs/leapnote/pkg/formula"
	"github.com/leapstack-labs/leapnote/pkg/outline"
	"github.com/leapstack-labs/leapnote/pkg/rules"
	"github.com/leapstack-labs/leapnote/pkg/schema"
)

func projectTypes() []schema.TypeDefinition {
	return []schema.TypeDefinition{
		{
			Name: "Folder",
			Fields: []fieldformat.Definition{
				{Name: "Name", Kind: fieldformat.Text},
				{Name: "Amount", Kind: fieldformat.Number},
				{Name: "Total", Kind: fieldformat.Math, Equation: "sum(child.Total) + self.Amount"},
			},
			ChildType: "Task",
		},
		{
			Name: "Task",
			Fields: []fieldformat.Definition{
				{Name: "Name", Kind: fieldformat.Text},
				{Name: "Amount", Kind: fieldformat.Number},
				{Name: "Qty", Kind: fieldformat.Number},
				{Name: "Due", Kind: fieldformat.Date},
				{Name: "Total", Kind: fieldformat.Math, Equation: "self.Amount * self.Qty"},
				{Name: "Share", Kind: fieldformat.Math, Equation: "round(self.Total * 100 / parent.Total)"},
				{Name: "Ratio", Kind: fieldformat.Math, Equation: "self.Amount / self.Qty"},
			},
			Rules: []schema.Rule{
				{Target: "Folder", Clauses: []schema.Clause{{Field: "Qty", Operator: schema.OpEmpty}}},
			},
		},
	}
}

const projectOutline = `
id: root
type: Folder
fields:
  Amount: 1
children:
  - id: a
    type: Folder
    fields:
      Amount: 2
    children:
      - id: t1
        type: Task
        fields:
          Amount: 10
          Qty: 2
          Total: 0
      - id: t2
        type: Task
        fields:
          Amount: 5
  - id: t3
    type: Task
    fields:
      Amount: 3
      Qty: 3
      Total: 9
`

func newTestEngine(t *testing.T, blankAsZero bool, defs ...schema.TypeDefinition) *Engine {
	t.Helper()
	if len(defs) == 0 {
		defs = projectTypes()
	}
	reg, err := schema.NewRegistry(defs...)
	require.NoError(t, err)
	e, err := New(Config{Registry: reg, BlankAsZero: blankAsZero, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return e
}

func TestNew_RequiresRegistry(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestEngine_ValidateField(t *testing.T) {
	e := newTestEngine(t, false)

	got, err := e.ValidateField("Task", "Amount", "12.50")
	require.NoError(t, err)
	assert.Equal(t, "12.5", got)

	_, err = e.ValidateField("Task", "Amount", "twelve")
	var ve *fieldformat.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = e.ValidateField("Task", "Color", "red")
	assert.Error(t, err)
	_, err = e.ValidateField("Nope", "Amount", "1")
	assert.Error(t, err)
}

func TestEngine_ValidateFieldAt(t *testing.T) {
	e := newTestEngine(t, false, schema.TypeDefinition{
		Name: "Section",
		Fields: []fieldformat.Definition{
			{Name: "Step", Kind: fieldformat.Numbering, Format: "I../A../1../a)/i)"},
			{Name: "Amount", Kind: fieldformat.Number},
		},
	})

	got, err := e.ValidateFieldAt("Section", "Step", "ii)", 4)
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1.2", got)
	display, err := e.FormatFieldForDisplay("Section", "Step", got)
	require.NoError(t, err)
	assert.Equal(t, "ii)", display)

	_, err = e.ValidateField("Section", "Step", "ii)")
	var ve *fieldformat.ValidationError
	assert.ErrorAs(t, err, &ve, "letter and roman levels both read ii)")

	got, err = e.ValidateFieldAt("Section", "Amount", "7", 3)
	require.NoError(t, err)
	assert.Equal(t, "7", got)
}

func TestEngine_FormatFieldForDisplay(t *testing.T) {
	e := newTestEngine(t, false)

	got, err := e.FormatFieldForDisplay("Task", "Due", "2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, "March 5, 2024", got)

	_, err = e.FormatFieldForDisplay("Task", "Missing", "x")
	assert.Error(t, err)
}

func TestEngine_EvaluateFormula(t *testing.T) {
	e := newTestEngine(t, true)
	tree := testutil.Outline(t, projectOutline)

	got, err := e.EvaluateFormula(testutil.At(t, tree, "t1"), "Total")
	require.NoError(t, err)
	assert.Equal(t, "20", got)

	_, err = e.EvaluateFormula(testutil.At(t, tree, "t2"), "Ratio")
	assert.True(t, errors.Is(err, &formula.Error{Kind: formula.DivisionByZero}))

	v, err := e.EvaluateExpression(tree.Root(), "count(child.Amount) & ' children'")
	require.NoError(t, err)
	assert.Equal(t, "2 children", v.String())
}

func TestEngine_CheckForCycles(t *testing.T) {
	e := newTestEngine(t, false)
	assert.NoError(t, e.CheckForCycles())
	assert.NoError(t, e.CheckForCycles("Task"))
	assert.Error(t, e.CheckForCycles("Nope"))

	cyclic := newTestEngine(t, false, schema.TypeDefinition{Name: "Item", Fields: []fieldformat.Definition{
		{Name: "A", Kind: fieldformat.Math, Equation: "self.B + 1"},
		{Name: "B", Kind: fieldformat.Math, Equation: "self.A + 1"},
	}})
	err := cyclic.CheckForCycles("Item")
	var batch *BatchError
	require.ErrorAs(t, err, &batch)
	assert.Len(t, batch.Errors, 1)
	assert.True(t, errors.Is(err, &formula.Error{Kind: formula.CircularReference}))
}

func TestEngine_InstallFormula(t *testing.T) {
	e := newTestEngine(t, false)
	tree := testutil.Outline(t, projectOutline)

	t.Run("closing a cycle is rejected", func(t *testing.T) {
		next, err := e.InstallFormula("Task", "Total", "self.Share")
		assert.Nil(t, next)
		assert.True(t, errors.Is(err, &formula.Error{Kind: formula.CircularReference}), "error: %v", err)

		f, err := e.Program().Formula("Task", "Total")
		require.NoError(t, err)
		assert.Equal(t, "self.Amount * self.Qty", f.Source)
	})

	t.Run("legal formula returns a new engine", func(t *testing.T) {
		next, err := e.InstallFormula("Task", "Share", "self.Total * 2")
		require.NoError(t, err)

		got, err := next.EvaluateFormula(testutil.At(t, tree, "t3"), "Share")
		require.NoError(t, err)
		assert.Equal(t, "18", got)

		f, err := e.Program().Formula("Task", "Share")
		require.NoError(t, err)
		assert.NotEqual(t, "self.Total * 2", f.Source, "receiver unchanged")
	})
}

func TestEngine_Rules(t *testing.T) {
	e := newTestEngine(t, false)
	tree := testutil.Outline(t, projectOutline)

	dt, ok := e.AssignTypeByRules(testutil.At(t, tree, "t2"), "")
	require.True(t, ok)
	assert.Equal(t, "Folder", dt.Name())

	_, ok = e.AssignTypeByRules(testutil.At(t, tree, "t1"), "Task")
	assert.False(t, ok)

	cond := rules.Condition{Clauses: []schema.Clause{{Field: "Amount", Operator: schema.OpGreaterEqual, Value: "5"}}}
	require.NoError(t, e.CheckCondition("Task", cond))

	var found []string
	for n := range e.FindMatching(outline.Walk(tree.Root()), cond) {
		found = append(found, n.ID())
	}
	assert.Equal(t, []string{"t1", "t2"}, found)
	assert.True(t, e.Matches(testutil.At(t, tree, "t1"), cond))
	assert.False(t, e.Matches(testutil.At(t, tree, "t3"), cond))
}

func TestEngine_Regenerate(t *testing.T) {
	e := newTestEngine(t, true)
	tree := testutil.Outline(t, projectOutline)

	updates, err := e.Regenerate(context.Background(), tree.Root())

	var batch *BatchError
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Errors, 1)
	assert.True(t, errors.Is(err, &formula.Error{Kind: formula.DivisionByZero}), "t2 has no quantity")

	got := make(map[string]string)
	for _, u := range updates {
		got[u.NodeID+"."+u.Field] = u.Old + " -> " + u.New
	}
	assert.Equal(t, map[string]string{
		"t1.Total":   "0 -> 20",
		"t2.Total":   " -> 0",
		"a.Total":    " -> 22",
		"root.Total": " -> 32",
		"t1.Share":   " -> 91",
		"t2.Share":   " -> 0",
		"t3.Share":   " -> 28",
		"t1.Ratio":   " -> 5",
		"t3.Ratio":   " -> 1",
	}, got)

	assert.Equal(t, "0", testutil.Value(t, tree, "t1", "Total"), "the tree is not written")

	require.NoError(t, Apply(tree, updates))
	assert.Equal(t, "32", testutil.Value(t, tree, "root", "Total"))

	again, err := e.Regenerate(context.Background(), tree.Root())
	require.Error(t, err)
	assert.Empty(t, again, "a second pass changes nothing")
}

func TestEngine_Regenerate_Clones(t *testing.T) {
	e := newTestEngine(t, true)
	tree := testutil.Outline(t, projectOutline+"  - clone: t1\n")

	updates, _ := e.Regenerate(context.Background(), tree.Root())
	got := make(map[string]string)
	for _, u := range updates {
		got[u.NodeID+"."+u.Field] = u.New
	}
	assert.Equal(t, "52", got["root.Total"], "the clone counts at both positions")
	assert.Equal(t, "91", got["t1.Share"], "a cloned record is evaluated at its first position")

	count := 0
	for _, u := range updates {
		if u.NodeID == "t1" && u.Field == "Total" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestEngine_Regenerate_AbortsOnCycle(t *testing.T) {
	e := newTestEngine(t, false, schema.TypeDefinition{Name: "Item", Fields: []fieldformat.Definition{
		{Name: "A", Kind: fieldformat.Math, Equation: "self.B + 1"},
		{Name: "B", Kind: fieldformat.Math, Equation: "self.A + 1"},
	}})
	tree := outline.NewTree("n", "Item")

	updates, err := e.Regenerate(context.Background(), tree.Root())
	assert.Nil(t, updates)
	assert.True(t, errors.Is(err, &formula.Error{Kind: formula.CircularReference}))
}

func TestEngine_Regenerate_Canceled(t *testing.T) {
	e := newTestEngine(t, true)
	tree := testutil.Outline(t, projectOutline)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	updates, err := e.Regenerate(ctx, tree.Root())
	assert.Nil(t, updates)
	assert.ErrorIs(t, err, context.Canceled)
}
