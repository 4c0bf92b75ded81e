package formula

import (
	"errors"
	"time"

	"github.com/leapstack-labs/leapnote/pkg/outline"
	"github.com/leapstack-labs/leapnote/pkg/resolve"
	"github.com/leapstack-labs/leapnote/pkg/schema"
)

// Options controls evaluation.
type Options struct {
	// BlankAsZero reads a blank numeric field as 0. A reference with no
	// target node stays blank.
	BlankAsZero bool
	// Now supplies the clock for today() and now(). Defaults to time.Now.
	Now func() time.Time
}

// Formula is a compiled equation.
type Formula struct {
	Source string
	Root   Expr
	refs   []*FieldRef
}

// Compile parses src and checks that every function exists with a legal
// number of arguments and that child references are aggregated.
func Compile(src string) (*Formula, error) {
	root, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if err := check(root); err != nil {
		return nil, err
	}
	f := &Formula{Source: src, Root: root}
	Inspect(root, func(e Expr) bool {
		if ref, ok := e.(*FieldRef); ok {
			f.refs = append(f.refs, ref)
		}
		return true
	})
	return f, nil
}

// Refs returns the field references in source order.
func (f *Formula) Refs() []*FieldRef { return f.refs }

func (f *Formula) String() string { return f.Source }

// check runs the compile-time checks over a parsed expression.
func check(root Expr) error {
	var first error
	var walk func(e Expr, aggregated bool)
	walk = func(e Expr, aggregated bool) {
		if first != nil {
			return
		}
		switch n := e.(type) {
		case *Ident:
			first = newError(IllegalFunction, n.Offset, "unknown function or constant %q", n.Name)
		case *FieldRef:
			if n.Ref.IsMulti() && !aggregated {
				first = newError(UnaggregatedChildReference, n.Offset, "%s must be the argument of an aggregating function", n)
			}
		case *UnaryExpr:
			walk(n.X, false)
		case *BinaryExpr:
			walk(n.Left, false)
			walk(n.Right, false)
		case *CallExpr:
			fn, ok := functions[n.Name]
			if !ok {
				first = newError(IllegalFunction, n.Offset, "unknown function %q", n.Name)
				return
			}
			if len(n.Args) < fn.minArgs || (fn.maxArgs >= 0 && len(n.Args) > fn.maxArgs) {
				first = newError(IllegalSyntax, n.Offset, "%s takes %s, got %d", n.Name, fn.arity(), len(n.Args))
				return
			}
			for i, a := range n.Args {
				walk(a, fn.aggregate && i >= fn.leading)
			}
		}
	}
	walk(root, false)
	return first
}

// Evaluate computes f at node. Field values are read through the formats
// the registry assigns to each referenced node's type.
func Evaluate(f *Formula, node outline.NodeView, reg *schema.Registry, opts Options) (Value, error) {
	e := &evaluator{reg: reg, opts: opts, node: node}
	return e.eval(f.Root)
}

type evaluator struct {
	reg  *schema.Registry
	opts Options
	node outline.NodeView
}

func (e *evaluator) now() time.Time {
	if e.opts.Now != nil {
		return e.opts.Now()
	}
	return time.Now()
}

func (e *evaluator) eval(x Expr) (Value, error) {
	switch n := x.(type) {
	case *Literal:
		return n.Value, nil

	case *FieldRef:
		vals := e.read(n)
		if len(vals) == 0 {
			return Blank(), nil
		}
		return vals[0], nil

	case *UnaryExpr:
		v, err := e.eval(n.X)
		if err != nil {
			return Value{}, err
		}
		v, err = unary(n.Op, v)
		return v, at(err, n.Offset)

	case *BinaryExpr:
		if n.Op == TOKEN_AND || n.Op == TOKEN_OR {
			return e.logical(n)
		}
		l, err := e.eval(n.Left)
		if err != nil {
			return Value{}, err
		}
		r, err := e.eval(n.Right)
		if err != nil {
			return Value{}, err
		}
		v, err := binary(n.Op, l, r)
		return v, at(err, n.Offset)

	case *CallExpr:
		v, err := e.call(n)
		return v, at(err, n.Offset)

	case *Ident:
		return Value{}, newError(IllegalFunction, n.Offset, "unknown function or constant %q", n.Name)
	}
	return Value{}, newError(IllegalSyntax, x.Pos(), "unsupported expression %s", x)
}

// logical evaluates and/or with short circuit. A blank operand makes the
// result blank.
func (e *evaluator) logical(n *BinaryExpr) (Value, error) {
	name := n.Op.String()
	l, err := e.eval(n.Left)
	if err != nil {
		return Value{}, err
	}
	if l.IsBlank() {
		return Blank(), nil
	}
	if l.typ != BooleanType {
		return Value{}, at(operandError(name, l), n.Offset)
	}
	if (n.Op == TOKEN_AND && !l.b) || (n.Op == TOKEN_OR && l.b) {
		return l, nil
	}
	r, err := e.eval(n.Right)
	if err != nil {
		return Value{}, err
	}
	if r.IsBlank() {
		return Blank(), nil
	}
	if r.typ != BooleanType {
		return Value{}, at(operandError(name, r), n.Offset)
	}
	return r, nil
}

func (e *evaluator) call(c *CallExpr) (Value, error) {
	fn, ok := functions[c.Name]
	if !ok {
		return Value{}, newError(IllegalFunction, c.Offset, "unknown function %q", c.Name)
	}

	if c.Name == "if" {
		cond, err := e.eval(c.Args[0])
		if err != nil {
			return Value{}, err
		}
		if !cond.IsBlank() && cond.typ != BooleanType {
			return Value{}, operandError("if", cond)
		}
		if cond.typ == BooleanType && cond.b {
			return e.eval(c.Args[1])
		}
		return e.eval(c.Args[2])
	}

	if fn.aggregate {
		args := make([]Value, 0, len(c.Args))
		for i, a := range c.Args {
			if i < fn.leading {
				v, err := e.eval(a)
				if err != nil {
					return Value{}, err
				}
				args = append(args, v)
				continue
			}
			vals, err := e.values(a)
			if err != nil {
				return Value{}, err
			}
			for _, v := range vals {
				if !v.IsBlank() {
					args = append(args, v)
				}
			}
		}
		return fn.call(e, args)
	}

	args := make([]Value, len(c.Args))
	for i, a := range c.Args {
		v, err := e.eval(a)
		if err != nil {
			return Value{}, err
		}
		if v.IsBlank() {
			return Blank(), nil
		}
		args[i] = v
	}
	return fn.call(e, args)
}

// values evaluates an aggregate argument. A child reference yields one
// value per child position.
func (e *evaluator) values(a Expr) ([]Value, error) {
	if ref, ok := a.(*FieldRef); ok {
		return e.read(ref), nil
	}
	v, err := e.eval(a)
	if err != nil {
		return nil, err
	}
	return []Value{v}, nil
}

// read returns the referenced field of every node the reference resolves to.
func (e *evaluator) read(ref *FieldRef) []Value {
	nodes := resolve.Resolve(e.node, ref.Ref)
	vals := make([]Value, 0, len(nodes))
	for _, n := range nodes {
		vals = append(vals, e.fieldValue(n, ref.Field))
	}
	return vals
}

func (e *evaluator) fieldValue(n outline.NodeView, name string) Value {
	dt, ok := e.reg.Type(n.DataType())
	if !ok {
		return Blank()
	}
	f, ok := dt.Field(name)
	if !ok {
		return Blank()
	}
	raw, _ := n.FieldValue(name)
	v := FromStored(f, raw)
	if v.IsBlank() && e.opts.BlankAsZero && f.IsNumeric() {
		return Int(0)
	}
	return v
}

// at sets the position of a formula error that has none.
func at(err error, pos int) error {
	var fe *Error
	if err == nil || !errors.As(err, &fe) || fe.Pos >= 0 {
		return err
	}
	cp := *fe
	cp.Pos = pos
	return &cp
}
