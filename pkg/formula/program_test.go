package formula

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapnote/pkg/fieldformat"
	"github.com/leapstack-labs/leapnote/pkg/schema"
)

func mathField(name, equation string) fieldformat.Definition {
	return fieldformat.Definition{Name: name, Kind: fieldformat.Math, Equation: equation}
}

func TestProgram_EvaluateField(t *testing.T) {
	reg := testRegistry(t,
		mathField("Total", "sum(child.Amount) + self.Amount"),
		fieldformat.Definition{Name: "Label", Kind: fieldformat.Math, Equation: "upper(self.Name)", ResultType: fieldformat.ResultText},
		mathField("Broken", "'x' & 1"),
		mathField("Bad", "self.Amount +"),
	)
	prog := NewProgram(reg)
	root := testTree(t).Root()

	got, err := prog.EvaluateField(root, "Total", Options{})
	require.NoError(t, err)
	assert.Equal(t, "35", got)

	got, err = prog.EvaluateField(root, "Label", Options{})
	require.NoError(t, err)
	assert.Equal(t, "ROOT", got)

	_, err = prog.EvaluateField(root, "Broken", Options{})
	assertKind(t, err, IllegalOperandType)
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Item.Broken", fe.Field)

	_, err = prog.EvaluateField(root, "Bad", Options{})
	assertKind(t, err, IllegalSyntax)
	require.Len(t, prog.CompileErrors(), 1)

	_, err = prog.EvaluateField(root, "Amount", Options{})
	assert.Error(t, err, "Amount is not a Math field")
}

func TestCheckCycles(t *testing.T) {
	tests := []struct {
		name   string
		fields []fieldformat.Definition
		cyclic bool
	}{
		{name: "mutual self references", fields: []fieldformat.Definition{
			mathField("A", "self.B + 1"), mathField("B", "self.A + 1"),
		}, cyclic: true},
		{name: "self loop", fields: []fieldformat.Definition{mathField("A", "self.A")}, cyclic: true},
		{name: "root loop", fields: []fieldformat.Definition{mathField("A", "root.A + 1")}, cyclic: true},
		{name: "down and up", fields: []fieldformat.Definition{
			mathField("A", "parent.A + sum(child.A)"),
		}, cyclic: true},
		{name: "down through a second field and up", fields: []fieldformat.Definition{
			mathField("A", "sum(child.B)"), mathField("B", "parent.A"),
		}, cyclic: true},
		{name: "roll up", fields: []fieldformat.Definition{
			mathField("Total", "sum(child.Total) + self.Amount"),
		}},
		{name: "up chain", fields: []fieldformat.Definition{
			mathField("Depth", "parent.Depth + 1"),
		}},
		{name: "self after roll up", fields: []fieldformat.Definition{
			mathField("A", "sum(child.B)"), mathField("B", "self.A * 2"),
		}},
		{name: "chain", fields: []fieldformat.Definition{
			mathField("A", "self.Amount"), mathField("B", "self.A + root.A"), mathField("C", "self.B + parent.C"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := NewProgram(testRegistry(t, tt.fields...))
			err := prog.CheckCycles()
			if !tt.cyclic {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, &Error{Kind: CircularReference}))
			var fe *Error
			require.ErrorAs(t, err, &fe)
			require.GreaterOrEqual(t, len(fe.Cycle), 2)
			assert.Equal(t, fe.Cycle[0], fe.Cycle[len(fe.Cycle)-1], "cycle is closed")
		})
	}
}

func TestCheckCycles_NamesTheCycle(t *testing.T) {
	prog := NewProgram(testRegistry(t, mathField("A", "self.B + 1"), mathField("B", "self.A + 1")))
	err := prog.CheckCycles("Item")
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []FieldKey{{"Item", "A"}, {"Item", "B"}, {"Item", "A"}}, fe.Cycle)
	assert.Contains(t, err.Error(), "Item.A -> Item.B -> Item.A")

	assert.NoError(t, prog.CheckCycles("Other"), "no cycle involves Other")
}

func TestCheckCycles_AcrossTypes(t *testing.T) {
	reg, err := schema.NewRegistry(
		schema.TypeDefinition{Name: "Folder", Fields: []fieldformat.Definition{
			mathField("Total", "sum(child.Total)"),
			mathField("Share", "parent.Total"),
		}},
		schema.TypeDefinition{Name: "Doc", Fields: []fieldformat.Definition{
			mathField("Total", "parent.Share"),
		}},
	)
	require.NoError(t, err)

	err = NewProgram(reg).CheckCycles()
	assertKind(t, err, CircularReference)
}

func TestInstall(t *testing.T) {
	reg := testRegistry(t, mathField("A", "self.B + 1"), mathField("B", "1"))

	t.Run("cycle leaves the registry unchanged", func(t *testing.T) {
		next, prog, err := Install(reg, "Item", "B", "self.A + 1")
		assertKind(t, err, CircularReference)
		assert.Nil(t, next)
		assert.Nil(t, prog)

		item, _ := reg.Type("Item")
		b, _ := item.Field("B")
		assert.Equal(t, "1", b.Equation)
	})

	t.Run("syntax error is rejected before install", func(t *testing.T) {
		_, _, err := Install(reg, "Item", "B", "child.A")
		assertKind(t, err, UnaggregatedChildReference)
	})

	t.Run("legal equation installs", func(t *testing.T) {
		next, prog, err := Install(reg, "Item", "B", "self.Amount * 2")
		require.NoError(t, err)
		item, _ := next.Type("Item")
		b, _ := item.Field("B")
		assert.Equal(t, "self.Amount * 2", b.Equation)

		got, err := prog.EvaluateField(testTree(t).Root(), "A", Options{})
		require.NoError(t, err)
		assert.Equal(t, "", got, "A reads the stored B, which is blank")
	})

	t.Run("non-math field", func(t *testing.T) {
		_, _, err := Install(reg, "Item", "Amount", "1")
		assert.Error(t, err)
	})
}

func TestDependencies(t *testing.T) {
	reg := testRegistry(t,
		mathField("Total", "sum(child.Total) + self.Amount"),
		mathField("Share", "self.Total / parent.Total + root.Total"),
	)
	deps := NewProgram(reg).Dependencies()

	total := FieldKey{Type: "Item", Field: "Total"}
	share := FieldKey{Type: "Item", Field: "Share"}
	assert.Equal(t, []Dependency{
		{From: total, To: share, Via: "self+up+root"},
		{From: total, To: total, Via: "down"},
	}, deps)
}

func TestUpstream(t *testing.T) {
	reg := testRegistry(t,
		mathField("A", "self.B + 1"),
		mathField("B", "self.C * 2"),
		mathField("C", "self.Amount"),
	)
	prog := NewProgram(reg)

	key := func(f string) FieldKey { return FieldKey{Type: "Item", Field: f} }
	assert.Equal(t, []FieldKey{key("B"), key("C")}, prog.Upstream(key("A")))
	assert.Equal(t, []FieldKey{key("C")}, prog.Upstream(key("B")))
	assert.Empty(t, prog.Upstream(key("C")))
}
