package formula

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapnote/pkg/fieldformat"
	"github.com/leapstack-labs/leapnote/pkg/outline"
	"github.com/leapstack-labs/leapnote/pkg/schema"
)

func itemType(math ...fieldformat.Definition) schema.TypeDefinition {
	fields := []fieldformat.Definition{
		{Name: "Name", Kind: fieldformat.Text},
		{Name: "Amount", Kind: fieldformat.Number},
		{Name: "Count", Kind: fieldformat.Number},
		{Name: "Done", Kind: fieldformat.Boolean},
		{Name: "Due", Kind: fieldformat.Date},
		{Name: "Start", Kind: fieldformat.Time},
		{Name: "Notes", Kind: fieldformat.HTMLText},
	}
	return schema.TypeDefinition{Name: "Item", Fields: append(fields, math...)}
}

func testRegistry(t *testing.T, math ...fieldformat.Definition) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry(itemType(math...))
	require.NoError(t, err)
	return reg
}

// testTree builds:
//
//	root  Amount 5, Due 2024-03-01, Start 23:30
//	├── c1  Amount 10
//	│   └── g1  Amount 7
//	├── c2  Amount 20
//	└── c3  (no Amount)
func testTree(t *testing.T) *outline.Tree {
	t.Helper()
	tree := outline.NewTree("root", "Item")
	for field, v := range map[string]string{
		"Name": "root", "Amount": "5", "Due": "2024-03-01", "Start": "23:30:00.000000",
		"Done": "true", "Notes": "<p>Hello <b>there</b></p>",
	} {
		require.NoError(t, tree.SetValue("root", field, v))
	}
	add := func(parent, id string, values map[string]string) {
		_, err := tree.Add(parent, id, "Item", values)
		require.NoError(t, err)
	}
	add("root", "c1", map[string]string{"Name": "one", "Amount": "10"})
	add("c1", "g1", map[string]string{"Name": "grand", "Amount": "7"})
	add("root", "c2", map[string]string{"Name": "two", "Amount": "20"})
	add("root", "c3", map[string]string{"Name": "three"})
	return tree
}

var fixedNow = func() time.Time { return time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC) }

func evalAt(t *testing.T, node outline.NodeView, src string, opts Options) (Value, error) {
	t.Helper()
	f, err := Compile(src)
	require.NoError(t, err, "compile %q", src)
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	return Evaluate(f, node, testRegistry(t), opts)
}

func TestEvaluate_Values(t *testing.T) {
	root := testTree(t).Root()

	tests := []struct {
		in   string
		want string
	}{
		// arithmetic
		{in: "1 + 2", want: "3"},
		{in: "7 / 2", want: "3.5"},
		{in: "6 / 3", want: "2"},
		{in: "7 // 2", want: "3"},
		{in: "-7 // 2", want: "-4"},
		{in: "7.5 // 2", want: "3"},
		{in: "-7 % 3", want: "2"},
		{in: "7 % -3", want: "-2"},
		{in: "2 ** 10", want: "1024"},
		{in: "2 ** -1", want: "0.5"},
		{in: "2 ^ 3 ^ 2", want: "512"},
		{in: "-2 ** 2", want: "-4"},
		{in: "9223372036854775807 + 1", want: "9.223372036854776e+18"},
		{in: "pi", want: "3.141592653589793"},

		// text and comparison
		{in: "'a' & 1", want: "a1"},
		{in: "'a' + 'b'", want: "ab"},
		{in: "1 == 1.0", want: "true"},
		{in: "1 = '1'", want: "false"},
		{in: "1 <> '1'", want: "true"},
		{in: "'abc' < 'abd'", want: "true"},
		{in: "not (2 >= 3)", want: "true"},

		// logic short circuits
		{in: "false and 1", want: "false"},
		{in: "true or 1 / 0", want: "true"},
		{in: "if(1 > 2, 'yes', 'no')", want: "no"},
		{in: "if(true, 1, 1 / 0)", want: "1"},
		{in: "if(self.Missing > 0, 1, 2)", want: "2"},

		// numeric functions
		{in: "abs(-3)", want: "3"},
		{in: "factorial(5)", want: "120"},
		{in: "round(2.5)", want: "3"},
		{in: "round(-2.5)", want: "-3"},
		{in: "round(3.14159, 2)", want: "3.14"},
		{in: "round(1234, -2)", want: "1200"},
		{in: "floor(-1.5)", want: "-2"},
		{in: "ceil(1.2)", want: "2"},
		{in: "trunc(-1.7)", want: "-1"},
		{in: "sqrt(16)", want: "4"},
		{in: "ln(1)", want: "0"},
		{in: "round(degrees(pi), 6)", want: "180"},

		// text functions
		{in: "upper('abc')", want: "ABC"},
		{in: "title('hello world')", want: "Hello World"},
		{in: "length('héllo')", want: "5"},
		{in: "replace('a-b-c', '-', '+')", want: "a+b+c"},
		{in: "contains('abc', 'b')", want: "true"},
		{in: "startswith('abc', 'b')", want: "false"},
		{in: "trim('  x ')", want: "x"},
		{in: "str(1.5) & 'x'", want: "1.5x"},
		{in: "self.Notes", want: "Hello there"},

		// aggregates
		{in: "join(', ', 'a', 'b')", want: "a, b"},
		{in: "join('-')", want: ""},
		{in: "join('/', child.Name)", want: "one/two/three"},
		{in: "max(1, 5, 3)", want: "5"},
		{in: "min('b', 'a')", want: "a"},
		{in: "average(1, 2)", want: "1.5"},
		{in: "sum()", want: "0"},
		{in: "count()", want: "0"},
		{in: "sum(child.Amount)", want: "30"},
		{in: "count(child.Amount)", want: "2"},
		{in: "max(child.Amount) + self.Amount", want: "25"},

		// tree
		{in: "childcount()", want: "3"},
		{in: "descendantcount()", want: "4"},

		// dates and times
		{in: "self.Due + 30", want: "2024-03-31"},
		{in: "self.Due - 1", want: "2024-02-29"},
		{in: "adddays(self.Due, -1)", want: "2024-02-29"},
		{in: "self.Due - (self.Due - 7)", want: "7"},
		{in: "daysbetween(self.Due, self.Due + 10)", want: "10"},
		{in: "weekday(self.Due)", want: "5"},
		{in: "year(self.Due) * 100 + month(self.Due)", want: "202403"},
		{in: "self.Start + 3600", want: "00:30:00.000000"},
		{in: "hour(self.Start)", want: "23"},
		{in: "today()", want: "2025-01-02"},
		{in: "now()", want: "2025-01-02 10:00:00.000000"},
		{in: "today() - self.Due", want: "307"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := evalAt(t, root, tt.in, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	root := testTree(t).Root()

	tests := []struct {
		in   string
		want ErrorKind
	}{
		{in: "'a' + 1", want: IllegalOperandType},
		{in: "1 < 'a'", want: IllegalOperandType},
		{in: "-'a'", want: IllegalOperandType},
		{in: "true and 1", want: IllegalOperandType},
		{in: "not 1", want: IllegalOperandType},
		{in: "if(1, 2, 3)", want: IllegalOperandType},
		{in: "upper(1)", want: IllegalOperandType},
		{in: "year(self.Start)", want: IllegalOperandType},
		{in: "max(1, 'a')", want: IllegalOperandType},
		{in: "average()", want: IllegalOperandType},
		{in: "self.Due + self.Start", want: IllegalOperandType},
		{in: "1 / 0", want: DivisionByZero},
		{in: "1 // 0", want: DivisionByZero},
		{in: "1 % 0", want: DivisionByZero},
		{in: "0 ** -1", want: DivisionByZero},
		{in: "sqrt(-1)", want: DomainError},
		{in: "ln(0)", want: DomainError},
		{in: "asin(2)", want: DomainError},
		{in: "factorial(2.5)", want: DomainError},
		{in: "10 ** 400.0", want: DomainError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := evalAt(t, root, tt.in, Options{})
			assertKind(t, err, tt.want)
		})
	}
}

func TestEvaluate_ErrorCarriesPosition(t *testing.T) {
	_, err := evalAt(t, testTree(t).Root(), "1 + 2 / 0", Options{})
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 6, fe.Pos)
}

func TestEvaluate_Blanks(t *testing.T) {
	tree := testTree(t)
	root := tree.Root()
	c3 := tree.PositionsOf("c3")[0]

	t.Run("blank propagates through operators", func(t *testing.T) {
		v, err := evalAt(t, c3, "self.Amount * 2", Options{})
		require.NoError(t, err)
		assert.True(t, v.IsBlank())
	})

	t.Run("blank as zero", func(t *testing.T) {
		v, err := evalAt(t, c3, "self.Amount * 2", Options{BlankAsZero: true})
		require.NoError(t, err)
		assert.Equal(t, "0", v.String())
	})

	t.Run("sum of children with a blank", func(t *testing.T) {
		for _, opts := range []Options{{}, {BlankAsZero: true}} {
			v, err := evalAt(t, root, "sum(child.Amount)", opts)
			require.NoError(t, err)
			assert.Equal(t, "30", v.String())
		}
	})

	t.Run("blank as zero counts the blank child", func(t *testing.T) {
		v, err := evalAt(t, root, "count(child.Amount)", Options{BlankAsZero: true})
		require.NoError(t, err)
		assert.Equal(t, "3", v.String())
	})

	t.Run("parent of root has no value", func(t *testing.T) {
		v, err := evalAt(t, root, "parent.Count", Options{BlankAsZero: true})
		require.NoError(t, err)
		assert.True(t, v.IsBlank())

		v, err = evalAt(t, root, "sum(parent.Count)", Options{})
		require.NoError(t, err)
		assert.Equal(t, "0", v.String())

		_, err = evalAt(t, root, "max(parent.Count)", Options{})
		assertKind(t, err, IllegalOperandType)
	})

	t.Run("unknown field reads blank", func(t *testing.T) {
		v, err := evalAt(t, root, "self.Nope + 1", Options{BlankAsZero: true})
		require.NoError(t, err)
		assert.True(t, v.IsBlank())
	})
}

func TestEvaluate_ClonedParentFollowsPosition(t *testing.T) {
	tree := testTree(t)
	require.NoError(t, tree.Clone("c2", "g1"))

	viaC1 := tree.PositionsOf("g1")[0]
	viaC2 := tree.PositionsOf("g1")[1]

	v, err := evalAt(t, viaC1, "parent.Amount", Options{})
	require.NoError(t, err)
	assert.Equal(t, "10", v.String())

	v, err = evalAt(t, viaC2, "parent.Amount", Options{})
	require.NoError(t, err)
	assert.Equal(t, "20", v.String())
}

func TestEvaluate_Idempotent(t *testing.T) {
	root := testTree(t).Root()
	src := "sum(child.Amount) * 2 + descendantcount() & '' & today()"
	first, err := evalAt(t, root, src, Options{})
	require.NoError(t, err)
	second, err := evalAt(t, root, src, Options{})
	require.NoError(t, err)
	assert.Equal(t, first.String(), second.String())
}

func TestToStored(t *testing.T) {
	tests := []struct {
		name    string
		v       Value
		rt      fieldformat.ResultType
		want    string
		wantErr bool
	}{
		{name: "blank", v: Blank(), rt: fieldformat.ResultNumber, want: ""},
		{name: "number", v: Float(2.5), rt: fieldformat.ResultNumber, want: "2.5"},
		{name: "number as text", v: Int(3), rt: fieldformat.ResultText, want: "3"},
		{name: "text as number", v: Text("x"), rt: fieldformat.ResultNumber, wantErr: true},
		{name: "boolean", v: Bool(true), rt: fieldformat.ResultBoolean, want: "true"},
		{name: "datetime as date", v: DateTime(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)), rt: fieldformat.ResultDate, want: "2024-05-06"},
		{name: "date as datetime", v: Date(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)), rt: fieldformat.ResultDateTime, want: "2024-05-06 00:00:00.000000"},
		{name: "date as time", v: Date(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)), rt: fieldformat.ResultTime, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToStored(tt.v, tt.rt)
			if tt.wantErr {
				assertKind(t, err, IllegalOperandType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFunctionArity(t *testing.T) {
	tests := []struct {
		name      string
		arity     string
		aggregate bool
	}{
		{name: "sum", arity: "any number of arguments", aggregate: true},
		{name: "join", arity: "at least 1 arguments", aggregate: true},
		{name: "if", arity: "3 arguments"},
		{name: "round", arity: "1 to 2 arguments"},
		{name: "abs", arity: "1 argument"},
		{name: "today", arity: "no arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arity, aggregate, ok := FunctionArity(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.arity, arity)
			assert.Equal(t, tt.aggregate, aggregate)
		})
	}

	_, _, ok := FunctionArity("nope")
	assert.False(t, ok)
	assert.Contains(t, Functions(), "daysbetween")
}

func TestValue_Numbers(t *testing.T) {
	assert.True(t, Int(3).IsInt())
	assert.False(t, Float(3).IsInt())
	assert.False(t, Text("3").IsInt())
	assert.Equal(t, NumberType, Float(2.5).Type())
}
