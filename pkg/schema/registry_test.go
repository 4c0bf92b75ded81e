package schema

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/leapnote/pkg/fieldformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskTypes() []TypeDefinition {
	return []TypeDefinition{
		{
			Name: "Item",
			Fields: []fieldformat.Definition{
				{Name: "Name", Kind: fieldformat.Text},
				{Name: "Type", Kind: fieldformat.Text},
				{Name: "Priority", Kind: fieldformat.Number},
			},
			ChildType: "Task",
			Rules: []Rule{
				{Target: "Task", Combine: And, Clauses: []Clause{
					{Field: "Type", Operator: OpEqual, Value: "Task"},
					{Field: "Priority", Operator: OpGreater, Value: "3"},
				}},
			},
		},
		{
			Name:    "Task",
			Generic: "Item",
			Fields: []fieldformat.Definition{
				{Name: "Priority", Kind: fieldformat.Number, Format: "0", SortKey: 1, SortDescending: true},
				{Name: "Done", Kind: fieldformat.Boolean},
				{Name: "Total", Kind: fieldformat.Math, Equation: "self.Priority * 2"},
			},
		},
	}
}

func TestNewRegistry_Inheritance(t *testing.T) {
	r, err := NewRegistry(taskTypes()...)
	require.NoError(t, err)

	task, ok := r.Type("Task")
	require.True(t, ok)

	var names []string
	for _, f := range task.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Name", "Type", "Priority", "Done", "Total"}, names)

	priority, ok := task.Field("Priority")
	require.True(t, ok)
	assert.Equal(t, "0", priority.Format, "derived type overrides the inherited field")

	item, _ := r.Type("Item")
	itemPriority, _ := item.Field("Priority")
	assert.Equal(t, "", itemPriority.Format)

	assert.Equal(t, []string{"Task"}, r.DerivedTypes("Item"))
	assert.Equal(t, []string{"Item", "Task"}, r.Names())
	assert.Len(t, task.MathFields(), 1)

	src, ok := r.RuleSource("Task")
	require.True(t, ok)
	assert.Equal(t, "Item", src.Name())
}

func TestNewRegistry_DefinitionErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(defs []TypeDefinition) []TypeDefinition
		want   string
	}{
		{
			name: "duplicate type",
			mutate: func(defs []TypeDefinition) []TypeDefinition {
				return append(defs, TypeDefinition{Name: "Item"})
			},
			want: "duplicate data type name",
		},
		{
			name: "missing generic",
			mutate: func(defs []TypeDefinition) []TypeDefinition {
				defs[1].Generic = "Nope"
				return defs
			},
			want: `generic type "Nope" does not exist`,
		},
		{
			name: "generic cycle",
			mutate: func(defs []TypeDefinition) []TypeDefinition {
				defs[0].Generic = "Task"
				return defs
			},
			want: "generic types form a cycle",
		},
		{
			name: "missing child type",
			mutate: func(defs []TypeDefinition) []TypeDefinition {
				defs[0].ChildType = "Ghost"
				return defs
			},
			want: `default child type "Ghost" does not exist`,
		},
		{
			name: "unknown rule field",
			mutate: func(defs []TypeDefinition) []TypeDefinition {
				defs[0].Rules[0].Clauses[0].Field = "Missing"
				return defs
			},
			want: "reads an unknown field",
		},
		{
			name: "rule value does not validate",
			mutate: func(defs []TypeDefinition) []TypeDefinition {
				defs[0].Rules[0].Clauses[1].Value = "high"
				return defs
			},
			want: "not a valid number",
		},
		{
			name: "true operator on text",
			mutate: func(defs []TypeDefinition) []TypeDefinition {
				defs[0].Rules[0].Clauses[0].Operator = OpTrue
				return defs
			},
			want: "requires a boolean field",
		},
		{
			name: "unknown rule target",
			mutate: func(defs []TypeDefinition) []TypeDefinition {
				defs[0].Rules[0].Target = "Ghost"
				return defs
			},
			want: `unknown type "Ghost"`,
		},
		{
			name: "duplicate field",
			mutate: func(defs []TypeDefinition) []TypeDefinition {
				defs[0].Fields = append(defs[0].Fields, fieldformat.Definition{Name: "Name", Kind: fieldformat.Text})
				return defs
			},
			want: "duplicate field name",
		},
		{
			name: "bad field format",
			mutate: func(defs []TypeDefinition) []TypeDefinition {
				defs[1].Fields[0].Format = "abc"
				return defs
			},
			want: "Priority",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.mutate(taskTypes())...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var de *DefinitionError
			assert.True(t, errors.As(err, &de))
		})
	}
}

func TestNewRegistry_FieldErrorUnwraps(t *testing.T) {
	defs := taskTypes()
	defs[1].Fields[0].Format = "abc"

	_, err := NewRegistry(defs...)
	var fe *fieldformat.DefinitionError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "Priority", fe.Field)
}

func TestWithEquation(t *testing.T) {
	r, err := NewRegistry(taskTypes()...)
	require.NoError(t, err)

	updated, err := r.WithEquation("Task", "Total", "self.Priority + 1")
	require.NoError(t, err)

	task, _ := updated.Type("Task")
	total, _ := task.Field("Total")
	assert.Equal(t, "self.Priority + 1", total.Equation)

	orig, _ := r.Type("Task")
	origTotal, _ := orig.Field("Total")
	assert.Equal(t, "self.Priority * 2", origTotal.Equation, "original registry is unchanged")

	_, err = r.WithEquation("Task", "Done", "1")
	assert.Error(t, err)
	_, err = r.WithEquation("Task", "Nope", "1")
	assert.Error(t, err)
}

func TestCompareNodes(t *testing.T) {
	r, err := NewRegistry(taskTypes()...)
	require.NoError(t, err)
	task, _ := r.Type("Task")

	lookup := func(vals map[string]string) ValueLookup {
		return func(field string) (string, bool) {
			v, ok := vals[field]
			return v, ok
		}
	}
	high := lookup(map[string]string{"Priority": "9"})
	low := lookup(map[string]string{"Priority": "2"})

	assert.Equal(t, -1, task.CompareNodes(high, low), "descending sort puts higher priority first")
	assert.Equal(t, 0, task.CompareNodes(low, low))

	item, _ := r.Type("Item")
	require.Len(t, item.SortFields(), 1)
	assert.Equal(t, "Name", item.SortFields()[0].Name)
}

func TestParseOperator(t *testing.T) {
	tests := map[string]Operator{
		"=":           OpEqual,
		"<>":          OpNotEqual,
		"less-than":   OpLess,
		"starts-with": OpStartsWith,
		"IS-TRUE":     OpTrue,
		"not-empty":   OpNotEmpty,
	}
	for in, want := range tests {
		got, err := ParseOperator(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseOperator("~")
	assert.Error(t, err)

	var c Combine
	require.NoError(t, c.UnmarshalText([]byte("OR")))
	assert.Equal(t, Or, c)
}

func TestOperatorAliases(t *testing.T) {
	assert.Len(t, Operators(), 13)
	assert.Equal(t, []string{"<>", "ne", "not-equal"}, OpNotEqual.Aliases())
	assert.Equal(t, []string{"is-empty"}, OpEmpty.Aliases())
	assert.Empty(t, OpContains.Aliases())
	for _, op := range Operators() {
		for _, alias := range op.Aliases() {
			got, err := ParseOperator(alias)
			require.NoError(t, err)
			assert.Equal(t, op, got)
		}
	}
}

func TestCheckClause(t *testing.T) {
	boolField := fieldformat.MustNew(fieldformat.Definition{Name: "Done", Kind: fieldformat.Boolean})
	numField := fieldformat.MustNew(fieldformat.Definition{Name: "N", Kind: fieldformat.Number})
	mathBool := fieldformat.MustNew(fieldformat.Definition{Name: "M", Kind: fieldformat.Math, ResultType: fieldformat.ResultBoolean})

	assert.NoError(t, CheckClause(boolField, Clause{Field: "Done", Operator: OpTrue}))
	assert.NoError(t, CheckClause(boolField, Clause{Field: "Done", Operator: OpEqual, Value: "yes"}))
	assert.Error(t, CheckClause(boolField, Clause{Field: "Done", Operator: OpLess, Value: "yes"}))
	assert.Error(t, CheckClause(boolField, Clause{Field: "Done", Operator: OpContains, Value: "y"}))
	assert.NoError(t, CheckClause(mathBool, Clause{Field: "M", Operator: OpFalse}))
	assert.NoError(t, CheckClause(numField, Clause{Field: "N", Operator: OpContains, Value: "x"}))
	assert.NoError(t, CheckClause(numField, Clause{Field: "N", Operator: OpEqual, Value: ""}))
	assert.Error(t, CheckClause(numField, Clause{Field: "N", Operator: "~~"}))
}
