// Package engine is the facade callers use to validate, format, evaluate and
// match field values against a schema registry.
// It owns the compiled formulas and decides the order of whole-tree
// recomputation.
package engine

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapnote/pkg/fieldformat"
	"github.com/leapstack-labs/leapnote/pkg/formula"
	"github.com/leapstack-labs/leapnote/pkg/outline"
	"github.com/leapstack-labs/leapnote/pkg/rules"
	"github.com/leapstack-labs/leapnote/pkg/schema"
)

// Engine evaluates fields, formulas and rules for one registry. It is
// immutable; InstallFormula returns a new engine.
type Engine struct {
	reg    *schema.Registry
	prog   *formula.Program
	rules  *rules.Evaluator
	opts   formula.Options
	logger *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// Registry holds the data types; required.
	Registry *schema.Registry
	// BlankAsZero makes blank numeric references evaluate as 0.
	BlankAsZero bool
	// Now overrides the clock used by today() and now().
	Now func() time.Time
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New compiles the Math fields of cfg.Registry. Equations that fail to
// compile are logged and reported by CompileErrors; they do not stop the
// engine from serving the other fields.
func New(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, errors.New("engine: registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts := formula.Options{BlankAsZero: cfg.BlankAsZero, Now: cfg.Now}
	return newEngine(cfg.Registry, formula.NewProgram(cfg.Registry), opts, logger), nil
}

func newEngine(reg *schema.Registry, prog *formula.Program, opts formula.Options, logger *slog.Logger) *Engine {
	e := &Engine{
		reg:    reg,
		prog:   prog,
		rules:  rules.NewEvaluator(reg),
		opts:   opts,
		logger: logger,
	}
	for _, err := range prog.CompileErrors() {
		logger.Warn("formula does not compile", "error", err)
	}
	logger.Debug("engine ready", "types", len(reg.Names()), "formulas", len(prog.Keys()))
	return e
}

// Registry returns the registry the engine serves.
func (e *Engine) Registry() *schema.Registry { return e.reg }

// Program returns the compiled formulas.
func (e *Engine) Program() *formula.Program { return e.prog }

// CompileErrors lists the Math fields whose equations do not compile.
func (e *Engine) CompileErrors() []error { return e.prog.CompileErrors() }

// Field looks up a field format of a data type.
func (e *Engine) Field(typeName, fieldName string) (*fieldformat.FieldFormat, error) {
	dt, ok := e.reg.Type(typeName)
	if !ok {
		return nil, fmt.Errorf("unknown data type %q", typeName)
	}
	f, ok := dt.Field(fieldName)
	if !ok {
		return nil, fmt.Errorf("data type %s has no field %q", typeName, fieldName)
	}
	return f, nil
}

// ValidateField converts raw input for a field into its canonical stored
// value. Invalid input yields a *fieldformat.ValidationError.
func (e *Engine) ValidateField(typeName, fieldName, raw string) (string, error) {
	f, err := e.Field(typeName, fieldName)
	if err != nil {
		return "", err
	}
	return f.Validate(raw)
}

// ValidateFieldAt is ValidateField for a node at the given outline depth,
// which decides the level of level-style Numbering input.
func (e *Engine) ValidateFieldAt(typeName, fieldName, raw string, depth int) (string, error) {
	f, err := e.Field(typeName, fieldName)
	if err != nil {
		return "", err
	}
	return f.ValidateAt(raw, depth)
}

// FormatFieldForDisplay renders a stored value for display.
func (e *Engine) FormatFieldForDisplay(typeName, fieldName, value string) (string, error) {
	f, err := e.Field(typeName, fieldName)
	if err != nil {
		return "", err
	}
	return f.ToDisplay(value), nil
}

// EvaluateFormula computes the stored value of the Math field at node.
// Failures are *formula.Error values.
func (e *Engine) EvaluateFormula(node outline.NodeView, fieldName string) (string, error) {
	return e.prog.EvaluateField(node, fieldName, e.opts)
}

// EvaluateExpression compiles src and evaluates it at node without
// installing it anywhere.
func (e *Engine) EvaluateExpression(node outline.NodeView, src string) (formula.Value, error) {
	f, err := formula.Compile(src)
	if err != nil {
		return formula.Blank(), err
	}
	return formula.Evaluate(f, node, e.reg, e.opts)
}

// CheckForCycles reports every circular reference involving the named
// types, or any type when none are named.
func (e *Engine) CheckForCycles(types ...string) error {
	for _, name := range types {
		if _, ok := e.reg.Type(name); !ok {
			return fmt.Errorf("unknown data type %q", name)
		}
	}
	if err := e.prog.CheckCycles(types...); err != nil {
		return &BatchError{Op: "cycle check", Errors: unjoin(err)}
	}
	return nil
}

// InstallFormula returns an engine in which typeName.fieldName has the given
// equation. The receiver is unchanged; on error no formula is installed.
func (e *Engine) InstallFormula(typeName, fieldName, equation string) (*Engine, error) {
	reg, prog, err := formula.Install(e.reg, typeName, fieldName, equation)
	if err != nil {
		e.logger.Debug("formula rejected", "type", typeName, "field", fieldName, "error", err)
		return nil, err
	}
	e.logger.Info("formula installed", "type", typeName, "field", fieldName)
	return newEngine(reg, prog, e.opts, e.logger), nil
}

// AssignTypeByRules returns the type the rules of typeName assign to node,
// or false when no rule matches. An empty typeName uses the node's type.
func (e *Engine) AssignTypeByRules(node outline.NodeView, typeName string) (*schema.DataType, bool) {
	return e.rules.AssignType(node, typeName)
}

// Matches reports whether node satisfies cond.
func (e *Engine) Matches(node outline.NodeView, cond rules.Condition) bool {
	return e.rules.Matches(node, cond.Clauses, cond.Combine)
}

// FindMatching lazily yields the nodes of seq that satisfy cond.
func (e *Engine) FindMatching(nodes iter.Seq[outline.NodeView], cond rules.Condition) iter.Seq[outline.NodeView] {
	return e.rules.FindMatching(nodes, cond)
}

// Filter lazily yields each matching node record under root once.
func (e *Engine) Filter(root outline.NodeView, cond rules.Condition) iter.Seq[outline.NodeView] {
	return e.rules.Filter(root, cond)
}

// CheckCondition verifies the clauses of cond against a data type.
func (e *Engine) CheckCondition(typeName string, cond rules.Condition) error {
	return e.rules.Check(typeName, cond)
}
