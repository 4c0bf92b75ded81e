package formula

import (
	"errors"
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapnote/pkg/fieldformat"
	"github.com/leapstack-labs/leapnote/pkg/outline"
	"github.com/leapstack-labs/leapnote/pkg/schema"
)

// FieldKey names a field of a data type.
type FieldKey struct {
	Type  string
	Field string
}

func (k FieldKey) String() string { return k.Type + "." + k.Field }

// Program holds the compiled Math fields of a registry. It is immutable.
type Program struct {
	reg      *schema.Registry
	keys     []FieldKey // declaration order
	formulas map[FieldKey]*Formula
	errs     map[FieldKey]error
}

// NewProgram compiles every Math field of reg. Fields whose equation does
// not compile are recorded; CompileErrors lists them.
func NewProgram(reg *schema.Registry) *Program {
	p := &Program{
		reg:      reg,
		formulas: make(map[FieldKey]*Formula),
		errs:     make(map[FieldKey]error),
	}
	for _, dt := range reg.Types() {
		for _, f := range dt.MathFields() {
			key := FieldKey{Type: dt.Name(), Field: f.Name}
			p.keys = append(p.keys, key)
			formula, err := Compile(f.Equation)
			if err != nil {
				p.errs[key] = withField(err, key)
				continue
			}
			p.formulas[key] = formula
		}
	}
	return p
}

// Registry returns the registry the program was compiled from.
func (p *Program) Registry() *schema.Registry { return p.reg }

// Keys returns every Math field in declaration order.
func (p *Program) Keys() []FieldKey { return slices.Clone(p.keys) }

// Formula returns the compiled formula of a Math field.
func (p *Program) Formula(typeName, field string) (*Formula, error) {
	key := FieldKey{Type: typeName, Field: field}
	if f, ok := p.formulas[key]; ok {
		return f, nil
	}
	if err, ok := p.errs[key]; ok {
		return nil, err
	}
	return nil, fmt.Errorf("%s is not a Math field", key)
}

// CompileErrors returns the errors of Math fields that failed to compile,
// in declaration order.
func (p *Program) CompileErrors() []error {
	var out []error
	for _, key := range p.keys {
		if err, ok := p.errs[key]; ok {
			out = append(out, err)
		}
	}
	return out
}

// EvaluateField computes the stored value of a Math field at node. The
// node's own type supplies the formula and result type.
func (p *Program) EvaluateField(node outline.NodeView, field string, opts Options) (string, error) {
	dt, ok := p.reg.Type(node.DataType())
	if !ok {
		return "", fmt.Errorf("node %s: unknown data type %q", node.ID(), node.DataType())
	}
	f, ok := dt.Field(field)
	if !ok || f.Kind != fieldformat.Math {
		return "", fmt.Errorf("%s.%s is not a Math field", dt.Name(), field)
	}
	key := FieldKey{Type: dt.Name(), Field: field}
	formula, err := p.Formula(key.Type, key.Field)
	if err != nil {
		return "", err
	}
	v, err := Evaluate(formula, node, p.reg, opts)
	if err != nil {
		return "", withField(err, key)
	}
	s, err := ToStored(v, f.ResultType)
	if err != nil {
		return "", withField(err, key)
	}
	return s, nil
}

// CheckCycles reports circular references among Math fields that involve
// the named types, or all types when none are named. Every cycle found is
// returned, joined.
func (p *Program) CheckCycles(types ...string) error {
	cycles := p.dependencies().cycles()
	var errs []error
	for _, cycle := range cycles {
		if len(types) > 0 && !slices.ContainsFunc(cycle, func(k FieldKey) bool { return slices.Contains(types, k.Type) }) {
			continue
		}
		errs = append(errs, &Error{
			Kind:   CircularReference,
			Field:  cycle[0].String(),
			Detail: describeCycle(cycle),
			Pos:    -1,
			Cycle:  cycle,
		})
	}
	return errors.Join(errs...)
}

func describeCycle(cycle []FieldKey) string {
	s := ""
	for i, k := range cycle {
		if i > 0 {
			s += " -> "
		}
		s += k.String()
	}
	return s
}

// Install compiles equation for a Math field and returns a registry and
// program with it in place. The equation is rejected, and reg left as it
// was, when it does not compile or it closes a circular reference.
func Install(reg *schema.Registry, typeName, field, equation string) (*schema.Registry, *Program, error) {
	key := FieldKey{Type: typeName, Field: field}
	if _, err := Compile(equation); err != nil {
		return nil, nil, withField(err, key)
	}
	next, err := reg.WithEquation(typeName, field, equation)
	if err != nil {
		return nil, nil, err
	}
	prog := NewProgram(next)
	if err := prog.CheckCycles(typeName); err != nil {
		return nil, nil, err
	}
	return next, prog, nil
}

// withField attaches the field to a formula error.
func withField(err error, key FieldKey) error {
	var fe *Error
	if !errors.As(err, &fe) {
		return fmt.Errorf("%s: %w", key, err)
	}
	cp := *fe
	cp.Field = key.String()
	return &cp
}
