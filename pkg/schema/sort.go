package schema

import (
	"cmp"
	"slices"

	"github.com/leapstack-labs/leapnote/pkg/fieldformat"
)

// SortFields returns the fields that order nodes of the type, by sort key.
// A type without sort keys sorts on its first field.
func (t *DataType) SortFields() []*fieldformat.FieldFormat {
	var keyed []*fieldformat.FieldFormat
	for _, f := range t.fields {
		if f.SortKey > 0 {
			keyed = append(keyed, f)
		}
	}
	if len(keyed) == 0 {
		if len(t.fields) == 0 {
			return nil
		}
		return t.fields[:1]
	}
	slices.SortStableFunc(keyed, func(a, b *fieldformat.FieldFormat) int {
		return cmp.Compare(a.SortKey, b.SortKey)
	})
	return keyed
}

// ValueLookup returns a node's stored value for a field.
type ValueLookup func(field string) (string, bool)

// CompareNodes orders two nodes of the type by its sort fields and their
// directions.
func (t *DataType) CompareNodes(a, b ValueLookup) int {
	for _, f := range t.SortFields() {
		va, _ := a(f.Name)
		vb, _ := b(f.Name)
		c := f.Compare(va, vb)
		if f.SortDescending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}
