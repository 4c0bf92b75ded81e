package formula

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies formula failures.
type ErrorKind int

// Formula error kinds.
const (
	IllegalCharacters ErrorKind = iota + 1
	IllegalSyntax
	IllegalFunction
	IllegalOperandType
	UnaggregatedChildReference
	DivisionByZero
	CircularReference
	DomainError
)

var errorKindNames = map[ErrorKind]string{
	IllegalCharacters:          "IllegalCharacters",
	IllegalSyntax:              "IllegalSyntax",
	IllegalFunction:            "IllegalFunction",
	IllegalOperandType:         "IllegalOperandType",
	UnaggregatedChildReference: "UnaggregatedChildReference",
	DivisionByZero:             "DivisionByZero",
	CircularReference:          "CircularReference",
	DomainError:                "DomainError",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a formula failure. Field names the Math field ("Type.Field")
// when known; Cycle lists the fields of a circular reference in order.
type Error struct {
	Kind   ErrorKind
	Field  string
	Detail string
	Pos    int
	Cycle  []FieldKey
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Field != "" {
		fmt.Fprintf(&b, "%s: ", e.Field)
	}
	b.WriteString(e.Kind.String())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Pos >= 0 && e.Kind <= IllegalSyntax && e.Detail != "" {
		fmt.Fprintf(&b, " (at offset %d)", e.Pos)
	}
	return b.String()
}

// Is matches another *Error of the same kind, so errors.Is(err,
// &Error{Kind: CircularReference}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Detail == "" && t.Field == ""
}

// KindOf returns the kind of the first *Error in err's tree.
func KindOf(err error) (ErrorKind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

func newError(kind ErrorKind, pos int, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Detail: fmt.Sprintf(format, args...)}
}

func operandError(op string, v Value) *Error {
	return &Error{Kind: IllegalOperandType, Pos: -1, Detail: fmt.Sprintf("%s cannot take a %s value", op, v.Type())}
}
