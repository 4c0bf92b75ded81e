package formula

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapnote/pkg/resolve"
)

// Expr is a node of a parsed formula.
type Expr interface {
	Pos() int
	String() string
	exprNode()
}

// Literal is a constant value.
type Literal struct {
	Value  Value
	Offset int
}

// FieldRef reads a field from the node(s) a reference resolves to.
type FieldRef struct {
	Ref    resolve.Ref
	Field  string
	Offset int
}

// Ident is a bare identifier. It is never valid in a compiled formula; the
// checker reports it as an unknown function or constant.
type Ident struct {
	Name   string
	Offset int
}

// UnaryExpr is a prefix operation: -x, +x, not x.
type UnaryExpr struct {
	Op     TokenType
	X      Expr
	Offset int
}

// BinaryExpr is an infix operation.
type BinaryExpr struct {
	Op     TokenType
	Left   Expr
	Right  Expr
	Offset int
}

// CallExpr is a function call. Name is lower case.
type CallExpr struct {
	Name   string
	Args   []Expr
	Offset int
}

func (*Literal) exprNode()    {}
func (*FieldRef) exprNode()   {}
func (*Ident) exprNode()      {}
func (*UnaryExpr) exprNode()  {}
func (*BinaryExpr) exprNode() {}
func (*CallExpr) exprNode()   {}

func (e *Literal) Pos() int    { return e.Offset }
func (e *FieldRef) Pos() int   { return e.Offset }
func (e *Ident) Pos() int      { return e.Offset }
func (e *UnaryExpr) Pos() int  { return e.Offset }
func (e *BinaryExpr) Pos() int { return e.Offset }
func (e *CallExpr) Pos() int   { return e.Offset }

func (e *Literal) String() string {
	if e.Value.Type() == TextType {
		return "'" + strings.ReplaceAll(e.Value.String(), "'", "''") + "'"
	}
	return e.Value.String()
}

func (e *FieldRef) String() string {
	return e.Ref.String() + "." + quoteField(e.Field)
}

func (e *Ident) String() string { return e.Name }

func (e *UnaryExpr) String() string {
	if e.Op == TOKEN_NOT {
		return "(not " + e.X.String() + ")"
	}
	return "(" + e.Op.String() + e.X.String() + ")"
}

func (e *BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Name + "(" + strings.Join(args, ", ") + ")"
}

// quoteField wraps names that are not plain identifiers in braces.
func quoteField(name string) string {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !(isLetter(c) || c == '_' || (i > 0 && isDigit(c))) {
			return "{" + name + "}"
		}
	}
	if name == "" {
		return "{}"
	}
	return name
}

// Inspect walks the expression depth first, calling fn for each node. The
// walk skips the children of a node when fn returns false.
func Inspect(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *UnaryExpr:
		Inspect(n.X, fn)
	case *BinaryExpr:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *CallExpr:
		for _, a := range n.Args {
			Inspect(a, fn)
		}
	}
}

func numberLiteral(lit string) (Value, bool) {
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Int(i), true
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, false
	}
	return Float(f), true
}
