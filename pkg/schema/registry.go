// Package schema holds the data type definitions of an outline: the ordered
// fields of each type, generic/derived relationships, default child types and
// the conditional rules that assign types.
//
// A Registry is immutable after NewRegistry returns and is safe for concurrent
// readers. Configuration changes build a new Registry.
package schema

import (
	"errors"
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapnote/internal/dag"
	"github.com/leapstack-labs/leapnote/pkg/fieldformat"
)

// TypeDefinition is the configured form of a data type.
type TypeDefinition struct {
	Name      string                   `koanf:"name"`
	Fields    []fieldformat.Definition `koanf:"fields"`
	Generic   string                   `koanf:"generic"`
	ChildType string                   `koanf:"child_type"`
	Rules     []Rule                   `koanf:"rules"`
}

// DataType is a validated data type with its inherited fields resolved.
type DataType struct {
	def    TypeDefinition
	fields []*fieldformat.FieldFormat
	byName map[string]*fieldformat.FieldFormat
}

// Name returns the type name.
func (t *DataType) Name() string { return t.def.Name }

// Generic returns the generic parent type name, or "".
func (t *DataType) Generic() string { return t.def.Generic }

// ChildType returns the default type for new children, or "".
func (t *DataType) ChildType() string { return t.def.ChildType }

// Rules returns the type's conditional rules in evaluation order.
func (t *DataType) Rules() []Rule { return t.def.Rules }

// Fields returns the fields in display order, inherited fields first.
func (t *DataType) Fields() []*fieldformat.FieldFormat { return t.fields }

// Field looks up a field by name.
func (t *DataType) Field(name string) (*fieldformat.FieldFormat, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// MathFields returns the type's Math fields in display order.
func (t *DataType) MathFields() []*fieldformat.FieldFormat {
	var out []*fieldformat.FieldFormat
	for _, f := range t.fields {
		if f.Kind == fieldformat.Math {
			out = append(out, f)
		}
	}
	return out
}

// Definition returns the type as configured, without inherited fields.
func (t *DataType) Definition() TypeDefinition { return t.def }

// Registry maps type names to data types.
type Registry struct {
	defs  []TypeDefinition
	types map[string]*DataType
	order []string
}

// NewRegistry validates the definitions and resolves inheritance. All
// problems found are returned together; each is a *DefinitionError.
func NewRegistry(defs ...TypeDefinition) (*Registry, error) {
	r := &Registry{
		defs:  slices.Clone(defs),
		types: make(map[string]*DataType, len(defs)),
	}
	var errs []error
	addErr := func(typeName, field, reason string, err error) {
		errs = append(errs, &DefinitionError{Type: typeName, Field: field, Reason: reason, Err: err})
	}

	byName := make(map[string]TypeDefinition, len(defs))
	g := dag.NewGraph()
	for _, def := range defs {
		if err := fieldformat.ValidateName(def.Name); err != nil {
			addErr(def.Name, "", err.Error(), err)
			continue
		}
		if _, dup := byName[def.Name]; dup {
			addErr(def.Name, "", "duplicate data type name", nil)
			continue
		}
		byName[def.Name] = def
		r.order = append(r.order, def.Name)
		g.AddNode(def.Name, nil)
	}

	for _, name := range r.order {
		def := byName[name]
		if def.Generic == "" {
			continue
		}
		if _, ok := byName[def.Generic]; !ok {
			addErr(name, "", fmt.Sprintf("generic type %q does not exist", def.Generic), nil)
			continue
		}
		_ = g.AddEdge(def.Generic, name)
	}
	if hasCycle, path := g.HasCycle(); hasCycle {
		addErr(path[0], "", fmt.Sprintf("generic types form a cycle: %v", path), nil)
		return nil, errors.Join(errs...)
	}

	sorted, _ := g.TopologicalSort()
	for _, node := range sorted {
		def := byName[node.ID]
		var inherited []*fieldformat.FieldFormat
		if parent, ok := r.types[def.Generic]; ok {
			inherited = parent.fields
		}
		dt, typeErrs := buildType(def, inherited)
		errs = append(errs, typeErrs...)
		r.types[def.Name] = dt
	}

	for _, name := range r.order {
		dt := r.types[name]
		if c := dt.def.ChildType; c != "" {
			if _, ok := r.types[c]; !ok {
				addErr(name, "", fmt.Sprintf("default child type %q does not exist", c), nil)
			}
		}
		for i, rule := range dt.def.Rules {
			if _, ok := r.types[rule.Target]; !ok {
				addErr(name, "", fmt.Sprintf("rule %d targets unknown type %q", i+1, rule.Target), nil)
			}
			for _, c := range rule.Clauses {
				f, ok := dt.Field(c.Field)
				if !ok {
					addErr(name, c.Field, fmt.Sprintf("rule %d reads an unknown field", i+1), nil)
					continue
				}
				if err := CheckClause(f, c); err != nil {
					addErr(name, c.Field, fmt.Sprintf("rule %d: %v", i+1, err), err)
				}
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

func buildType(def TypeDefinition, inherited []*fieldformat.FieldFormat) (*DataType, []error) {
	dt := &DataType{def: def, byName: make(map[string]*fieldformat.FieldFormat)}
	var errs []error

	own := make(map[string]*fieldformat.FieldFormat, len(def.Fields))
	var added []*fieldformat.FieldFormat
	for _, fd := range def.Fields {
		f, err := fieldformat.New(fd)
		if err != nil {
			errs = append(errs, &DefinitionError{Type: def.Name, Field: fd.Name, Reason: err.Error(), Err: err})
			continue
		}
		if _, dup := own[fd.Name]; dup {
			errs = append(errs, &DefinitionError{Type: def.Name, Field: fd.Name, Reason: "duplicate field name"})
			continue
		}
		own[fd.Name] = f
		added = append(added, f)
	}

	for _, f := range inherited {
		if override, ok := own[f.Name]; ok {
			dt.fields = append(dt.fields, override)
		} else {
			dt.fields = append(dt.fields, f)
		}
	}
	for _, f := range added {
		if !slices.ContainsFunc(inherited, func(p *fieldformat.FieldFormat) bool { return p.Name == f.Name }) {
			dt.fields = append(dt.fields, f)
		}
	}
	for _, f := range dt.fields {
		dt.byName[f.Name] = f
	}
	return dt, errs
}

// Type looks up a data type by name.
func (r *Registry) Type(name string) (*DataType, bool) {
	dt, ok := r.types[name]
	return dt, ok
}

// Types returns all data types in definition order.
func (r *Registry) Types() []*DataType {
	out := make([]*DataType, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.types[name])
	}
	return out
}

// Names returns the type names in definition order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// DerivedTypes lists the types whose generic parent is name.
func (r *Registry) DerivedTypes(name string) []string {
	var out []string
	for _, n := range r.order {
		if r.types[n].Generic() == name {
			out = append(out, n)
		}
	}
	return out
}

// RuleSource returns the type whose rules decide the type of a node of the
// given type: the type itself, or its generic parent when it is derived.
func (r *Registry) RuleSource(name string) (*DataType, bool) {
	dt, ok := r.types[name]
	if !ok {
		return nil, false
	}
	if g := dt.Generic(); g != "" {
		return r.Type(g)
	}
	return dt, true
}

// WithEquation returns a copy of the registry in which the Math field
// typeName.fieldName has the given equation. Types deriving the field
// from typeName see the new equation too.
func (r *Registry) WithEquation(typeName, fieldName, equation string) (*Registry, error) {
	defs := make([]TypeDefinition, len(r.defs))
	found := false
	for i, def := range r.defs {
		defs[i] = def
		if def.Name != typeName {
			continue
		}
		defs[i].Fields = slices.Clone(def.Fields)
		for j := range defs[i].Fields {
			if defs[i].Fields[j].Name == fieldName {
				if defs[i].Fields[j].Kind != fieldformat.Math {
					return nil, fmt.Errorf("field %s.%s is not a Math field", typeName, fieldName)
				}
				defs[i].Fields[j].Equation = equation
				found = true
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("type %q has no own field %q", typeName, fieldName)
	}
	return NewRegistry(defs...)
}

// DefinitionError reports an invalid data type definition.
type DefinitionError struct {
	Type   string
	Field  string
	Reason string
	Err    error
}

func (e *DefinitionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("data type %q field %q: %s", e.Type, e.Field, e.Reason)
	}
	return fmt.Sprintf("data type %q: %s", e.Type, e.Reason)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}
