// Package rules evaluates conditional rules against outline nodes. The same
// clause matcher backs automatic type assignment, conditional find and
// conditional filter.
package rules

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/leapstack-labs/leapnote/pkg/fieldformat"
	"github.com/leapstack-labs/leapnote/pkg/outline"
	"github.com/leapstack-labs/leapnote/pkg/schema"
)

// Condition is a clause list joined by a single combinator.
type Condition struct {
	Combine schema.Combine
	Clauses []schema.Clause
}

func (c Condition) String() string {
	parts := make([]string, len(c.Clauses))
	for i, cl := range c.Clauses {
		parts[i] = cl.String()
	}
	return strings.Join(parts, " "+c.Combine.String()+" ")
}

// Evaluator matches nodes against clauses using the field formats of a
// registry. It holds no mutable state.
type Evaluator struct {
	reg *schema.Registry
}

// NewEvaluator creates an evaluator over reg.
func NewEvaluator(reg *schema.Registry) *Evaluator {
	return &Evaluator{reg: reg}
}

// Matches reports whether node satisfies the clauses under combine. An empty
// clause list matches every node.
func (e *Evaluator) Matches(node outline.NodeView, clauses []schema.Clause, combine schema.Combine) bool {
	if len(clauses) == 0 {
		return true
	}
	for _, c := range clauses {
		ok := e.MatchClause(node, c)
		if combine == schema.Or && ok {
			return true
		}
		if combine == schema.And && !ok {
			return false
		}
	}
	return combine == schema.And
}

// MatchClause reports whether one clause holds for node. The field is looked
// up on the node's own data type; a node whose type lacks the field only
// matches an empty check.
func (e *Evaluator) MatchClause(node outline.NodeView, c schema.Clause) bool {
	f, ok := e.field(node, c.Field)
	if !ok {
		return c.Operator == schema.OpEmpty
	}
	raw, _ := node.FieldValue(c.Field)
	if raw == "" {
		// a blank value only matches an empty check or == ""
		switch c.Operator {
		case schema.OpEmpty:
			return true
		case schema.OpEqual:
			want, err := f.Validate(c.Value)
			return err == nil && want == ""
		}
		return false
	}

	switch c.Operator {
	case schema.OpEmpty:
		return false
	case schema.OpNotEmpty:
		return true
	case schema.OpTrue, schema.OpFalse:
		b, ok := fieldformat.ParseCanonicalBool(raw)
		return ok && b == (c.Operator == schema.OpTrue)
	case schema.OpContains, schema.OpStartsWith, schema.OpEndsWith:
		return stringPredicate(c.Operator, f.DisplayText(raw), c.Value)
	}

	want, err := f.Validate(c.Value)
	if err != nil {
		return false
	}
	cmp := f.Compare(raw, want)
	switch c.Operator {
	case schema.OpEqual:
		return cmp == 0
	case schema.OpNotEqual:
		return cmp != 0
	case schema.OpLess:
		return cmp < 0
	case schema.OpLessEqual:
		return cmp <= 0
	case schema.OpGreater:
		return cmp > 0
	case schema.OpGreaterEqual:
		return cmp >= 0
	}
	return false
}

func stringPredicate(op schema.Operator, text, needle string) bool {
	text, needle = strings.ToLower(text), strings.ToLower(needle)
	switch op {
	case schema.OpContains:
		return strings.Contains(text, needle)
	case schema.OpStartsWith:
		return strings.HasPrefix(text, needle)
	case schema.OpEndsWith:
		return strings.HasSuffix(text, needle)
	}
	return false
}

func (e *Evaluator) field(node outline.NodeView, name string) (*fieldformat.FieldFormat, bool) {
	dt, ok := e.reg.Type(node.DataType())
	if !ok {
		return nil, false
	}
	return dt.Field(name)
}

// Evaluate tries rules in order and returns the target of the first one
// node matches.
func (e *Evaluator) Evaluate(node outline.NodeView, rules []schema.Rule) (string, bool) {
	for _, r := range rules {
		if e.Matches(node, r.Clauses, r.Combine) {
			return r.Target, true
		}
	}
	return "", false
}

// AssignType returns the type the rules of typeName assign to node. The
// rules come from typeName's generic parent when it has one. An empty
// typeName means the node's current type. A rule target missing from the
// registry assigns nothing.
func (e *Evaluator) AssignType(node outline.NodeView, typeName string) (*schema.DataType, bool) {
	if typeName == "" {
		typeName = node.DataType()
	}
	src, ok := e.reg.RuleSource(typeName)
	if !ok {
		return nil, false
	}
	target, ok := e.Evaluate(node, src.Rules())
	if !ok {
		return nil, false
	}
	return e.reg.Type(target)
}

// FindMatching yields the nodes of seq that satisfy cond. Nothing is read
// until the result is ranged over, and ranging again restarts seq.
func (e *Evaluator) FindMatching(seq iter.Seq[outline.NodeView], cond Condition) iter.Seq[outline.NodeView] {
	return func(yield func(outline.NodeView) bool) {
		for n := range seq {
			if e.Matches(n, cond.Clauses, cond.Combine) && !yield(n) {
				return
			}
		}
	}
}

// Filter yields the matching nodes of the tree under root in preorder, each
// node record once even when it is cloned at several positions.
func (e *Evaluator) Filter(root outline.NodeView, cond Condition) iter.Seq[outline.NodeView] {
	return func(yield func(outline.NodeView) bool) {
		seen := make(map[string]bool)
		for n := range e.FindMatching(outline.Walk(root), cond) {
			if seen[n.ID()] {
				continue
			}
			seen[n.ID()] = true
			if !yield(n) {
				return
			}
		}
	}
}

// Check verifies cond against the fields of typeName: every clause field
// must exist and every operator and value must suit the field's kind.
func (e *Evaluator) Check(typeName string, cond Condition) error {
	dt, ok := e.reg.Type(typeName)
	if !ok {
		return fmt.Errorf("unknown data type %q", typeName)
	}
	var errs []error
	for _, c := range cond.Clauses {
		f, ok := dt.Field(c.Field)
		if !ok {
			errs = append(errs, fmt.Errorf("clause %s: type %s has no field %q", c.Field, typeName, c.Field))
			continue
		}
		if err := schema.CheckClause(f, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ParseClause reads a clause written as "Field op value", e.g.
// "Priority > 3" or "Done true". Field names with spaces are braced:
// "{Due Date} <= 2024-01-01".
func ParseClause(s string) (schema.Clause, error) {
	s = strings.TrimSpace(s)
	var field, rest string
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return schema.Clause{}, fmt.Errorf("clause %q: unterminated field name", s)
		}
		field, rest = s[1:end], s[end+1:]
	} else {
		var ok bool
		field, rest, ok = strings.Cut(s, " ")
		if !ok {
			return schema.Clause{}, fmt.Errorf("clause %q: missing operator", s)
		}
	}
	rest = strings.TrimSpace(rest)
	opText, value, _ := strings.Cut(rest, " ")
	op, err := schema.ParseOperator(opText)
	if err != nil {
		return schema.Clause{}, fmt.Errorf("clause %q: %w", s, err)
	}
	value = strings.TrimSpace(value)
	if op.TakesValue() {
		value = unquote(value)
	} else if value != "" {
		return schema.Clause{}, fmt.Errorf("clause %q: operator %s takes no value", s, op)
	}
	return schema.Clause{Field: strings.TrimSpace(field), Operator: op, Value: value}, nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
