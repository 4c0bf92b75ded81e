package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapnote/pkg/fieldformat"
)

// Operator is a clause comparison.
type Operator string

// Clause operators.
const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpContains     Operator = "contains"
	OpStartsWith   Operator = "startswith"
	OpEndsWith     Operator = "endswith"
	OpTrue         Operator = "true"
	OpFalse        Operator = "false"
	OpEmpty        Operator = "empty"
	OpNotEmpty     Operator = "notempty"
)

var operatorAliases = map[string]Operator{
	"==": OpEqual, "=": OpEqual, "equal": OpEqual, "eq": OpEqual,
	"!=": OpNotEqual, "<>": OpNotEqual, "not-equal": OpNotEqual, "ne": OpNotEqual,
	"<": OpLess, "less-than": OpLess, "lt": OpLess,
	"<=": OpLessEqual, "less-or-equal": OpLessEqual, "le": OpLessEqual,
	">": OpGreater, "greater-than": OpGreater, "gt": OpGreater,
	">=": OpGreaterEqual, "greater-or-equal": OpGreaterEqual, "ge": OpGreaterEqual,
	"contains": OpContains,
	"startswith": OpStartsWith, "starts-with": OpStartsWith,
	"endswith": OpEndsWith, "ends-with": OpEndsWith,
	"true": OpTrue, "is-true": OpTrue,
	"false": OpFalse, "is-false": OpFalse,
	"empty": OpEmpty, "is-empty": OpEmpty,
	"notempty": OpNotEmpty, "not-empty": OpNotEmpty,
}

// ParseOperator accepts the symbolic form and the spelled-out names.
func ParseOperator(s string) (Operator, error) {
	if op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return op, nil
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

// Operators returns every clause operator in its canonical spelling.
func Operators() []Operator {
	return []Operator{
		OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual,
		OpContains, OpStartsWith, OpEndsWith,
		OpTrue, OpFalse, OpEmpty, OpNotEmpty,
	}
}

// Aliases returns the other spellings ParseOperator accepts for o, sorted.
func (o Operator) Aliases() []string {
	var names []string
	for name, op := range operatorAliases {
		if op == o && name != string(o) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operator) UnmarshalText(b []byte) error {
	op, err := ParseOperator(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// TakesValue reports whether the operator compares against a clause value.
func (o Operator) TakesValue() bool {
	switch o {
	case OpTrue, OpFalse, OpEmpty, OpNotEmpty:
		return false
	}
	return true
}

// IsStringPredicate reports whether the operator matches against display text.
func (o Operator) IsStringPredicate() bool {
	return o == OpContains || o == OpStartsWith || o == OpEndsWith
}

// Combine joins the clauses of one rule.
type Combine int

// Clause combinators.
const (
	And Combine = iota
	Or
)

func (c Combine) String() string {
	if c == Or {
		return "or"
	}
	return "and"
}

// ParseCombine reads "and" or "or".
func ParseCombine(s string) (Combine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "and", "all":
		return And, nil
	case "or", "any":
		return Or, nil
	}
	return And, fmt.Errorf("unknown combinator %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Combine) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Combine) UnmarshalText(b []byte) error {
	parsed, err := ParseCombine(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Clause is one field comparison, e.g. {Priority > 3}.
type Clause struct {
	Field    string   `koanf:"field"`
	Operator Operator `koanf:"op"`
	Value    string   `koanf:"value"`
}

func (c Clause) String() string {
	if !c.Operator.TakesValue() {
		return c.Field + " " + string(c.Operator)
	}
	return fmt.Sprintf("%s %s %q", c.Field, c.Operator, c.Value)
}

// Rule assigns Target to nodes whose fields satisfy the clauses.
// An empty clause list matches every node.
type Rule struct {
	Target  string   `koanf:"target"`
	Combine Combine  `koanf:"combine"`
	Clauses []Clause `koanf:"clauses"`
}

// CheckClause verifies a clause against the format of the field it reads:
// the operator must suit the kind and the value must validate.
func CheckClause(f *fieldformat.FieldFormat, c Clause) error {
	if _, ok := operatorAliases[string(c.Operator)]; !ok {
		return fmt.Errorf("clause %s: unknown operator %q", c.Field, c.Operator)
	}
	boolean := IsBooleanField(f)
	switch {
	case boolean && !booleanOperator(c.Operator):
		return fmt.Errorf("clause %s: operator %s is not allowed on a boolean field", c.Field, c.Operator)
	case !boolean && (c.Operator == OpTrue || c.Operator == OpFalse):
		return fmt.Errorf("clause %s: operator %s requires a boolean field", c.Field, c.Operator)
	}
	if c.Operator.TakesValue() && !c.Operator.IsStringPredicate() {
		if _, err := f.Validate(c.Value); err != nil {
			return fmt.Errorf("clause %s: %w", c.Field, err)
		}
	}
	return nil
}

// IsBooleanField reports whether the field stores true/false values.
func IsBooleanField(f *fieldformat.FieldFormat) bool {
	if f.Kind == fieldformat.Math {
		return f.ResultType == fieldformat.ResultBoolean
	}
	return f.Kind == fieldformat.Boolean
}

func booleanOperator(op Operator) bool {
	switch op {
	case OpEqual, OpNotEqual, OpTrue, OpFalse, OpEmpty, OpNotEmpty:
		return true
	}
	return false
}
