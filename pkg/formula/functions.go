package formula

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapnote/pkg/resolve"
)

// builtin describes one function of the formula language.
type builtin struct {
	minArgs int
	maxArgs int // -1 for any number
	// aggregate functions take every value their arguments produce,
	// including all nodes of a child reference, and skip blanks.
	aggregate bool
	// leading counts the arguments of an aggregate that are scalars, like
	// the separator of join.
	leading int
	call    func(e *evaluator, args []Value) (Value, error)
}

var functions = map[string]*builtin{
	// aggregates
	"sum":     {maxArgs: -1, aggregate: true, call: fnSum},
	"max":     {maxArgs: -1, aggregate: true, call: extreme("max", 1)},
	"min":     {maxArgs: -1, aggregate: true, call: extreme("min", -1)},
	"average": {maxArgs: -1, aggregate: true, call: fnAverage},
	"count":   {maxArgs: -1, aggregate: true, call: fnCount},
	"join":    {minArgs: 1, maxArgs: -1, aggregate: true, leading: 1, call: fnJoin},

	// conditional; evaluated lazily by the evaluator
	"if": {minArgs: 3, maxArgs: 3},

	// numeric
	"abs":       {minArgs: 1, maxArgs: 1, call: fnAbs},
	"sqrt":      {minArgs: 1, maxArgs: 1, call: math1("sqrt", math.Sqrt, func(x float64) bool { return x >= 0 })},
	"exp":       {minArgs: 1, maxArgs: 1, call: math1("exp", math.Exp, nil)},
	"ln":        {minArgs: 1, maxArgs: 1, call: math1("ln", math.Log, positive)},
	"log10":     {minArgs: 1, maxArgs: 1, call: math1("log10", math.Log10, positive)},
	"factorial": {minArgs: 1, maxArgs: 1, call: fnFactorial},
	"round":     {minArgs: 1, maxArgs: 2, call: fnRound},
	"floor":     {minArgs: 1, maxArgs: 1, call: rounding("floor", math.Floor)},
	"ceil":      {minArgs: 1, maxArgs: 1, call: rounding("ceil", math.Ceil)},
	"trunc":     {minArgs: 1, maxArgs: 1, call: rounding("trunc", math.Trunc)},
	"sin":       {minArgs: 1, maxArgs: 1, call: math1("sin", math.Sin, nil)},
	"cos":       {minArgs: 1, maxArgs: 1, call: math1("cos", math.Cos, nil)},
	"tan":       {minArgs: 1, maxArgs: 1, call: math1("tan", math.Tan, nil)},
	"asin":      {minArgs: 1, maxArgs: 1, call: math1("asin", math.Asin, unitRange)},
	"acos":      {minArgs: 1, maxArgs: 1, call: math1("acos", math.Acos, unitRange)},
	"atan":      {minArgs: 1, maxArgs: 1, call: math1("atan", math.Atan, nil)},
	"degrees":   {minArgs: 1, maxArgs: 1, call: math1("degrees", func(x float64) float64 { return x * 180 / math.Pi }, nil)},
	"radians":   {minArgs: 1, maxArgs: 1, call: math1("radians", func(x float64) float64 { return x * math.Pi / 180 }, nil)},

	// text
	"upper":      {minArgs: 1, maxArgs: 1, call: caser("upper", func() cases.Caser { return cases.Upper(language.Und) })},
	"lower":      {minArgs: 1, maxArgs: 1, call: caser("lower", func() cases.Caser { return cases.Lower(language.Und) })},
	"title":      {minArgs: 1, maxArgs: 1, call: caser("title", func() cases.Caser { return cases.Title(language.Und) })},
	"replace":    {minArgs: 3, maxArgs: 3, call: fnReplace},
	"startswith": {minArgs: 2, maxArgs: 2, call: textPredicate("startswith", strings.HasPrefix)},
	"endswith":   {minArgs: 2, maxArgs: 2, call: textPredicate("endswith", strings.HasSuffix)},
	"contains":   {minArgs: 2, maxArgs: 2, call: textPredicate("contains", strings.Contains)},
	"length":     {minArgs: 1, maxArgs: 1, call: fnLength},
	"trim":       {minArgs: 1, maxArgs: 1, call: fnTrim},
	"str":        {minArgs: 1, maxArgs: 1, call: fnStr},

	// tree
	"childcount":      {call: fnChildCount},
	"descendantcount": {call: fnDescendantCount},

	// dates and times
	"today":       {call: fnToday},
	"now":         {call: fnNow},
	"year":        {minArgs: 1, maxArgs: 1, call: datePart("year", func(v Value) int { return v.t.Year() })},
	"month":       {minArgs: 1, maxArgs: 1, call: datePart("month", func(v Value) int { return int(v.t.Month()) })},
	"day":         {minArgs: 1, maxArgs: 1, call: datePart("day", func(v Value) int { return v.t.Day() })},
	"weekday":     {minArgs: 1, maxArgs: 1, call: datePart("weekday", isoWeekday)},
	"hour":        {minArgs: 1, maxArgs: 1, call: timePart("hour", func(v Value) int { return v.t.Hour() })},
	"minute":      {minArgs: 1, maxArgs: 1, call: timePart("minute", func(v Value) int { return v.t.Minute() })},
	"second":      {minArgs: 1, maxArgs: 1, call: timePart("second", func(v Value) int { return v.t.Second() })},
	"adddays":     {minArgs: 2, maxArgs: 2, call: fnAddDays},
	"daysbetween": {minArgs: 2, maxArgs: 2, call: fnDaysBetween},
}

// Functions returns the names of all formula functions.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	return names
}

// FunctionArity describes how many arguments the named function takes, and
// whether it is an aggregate that accepts field references spanning nodes.
func FunctionArity(name string) (arity string, aggregate, ok bool) {
	fn, ok := functions[name]
	if !ok {
		return "", false, false
	}
	return fn.arity(), fn.aggregate, true
}

func (b *builtin) arity() string {
	switch {
	case b.maxArgs < 0 && b.minArgs == 0:
		return "any number of arguments"
	case b.maxArgs < 0:
		return fmt.Sprintf("at least %d arguments", b.minArgs)
	case b.maxArgs == 0:
		return "no arguments"
	case b.minArgs == b.maxArgs && b.minArgs == 1:
		return "1 argument"
	case b.minArgs == b.maxArgs:
		return fmt.Sprintf("%d arguments", b.minArgs)
	}
	return fmt.Sprintf("%d to %d arguments", b.minArgs, b.maxArgs)
}

// ---------- Aggregates ----------

func numbers(name string, args []Value) error {
	for _, v := range args {
		if v.typ != NumberType {
			return operandError(name, v)
		}
	}
	return nil
}

func fnSum(_ *evaluator, args []Value) (Value, error) {
	if err := numbers("sum", args); err != nil {
		return Value{}, err
	}
	total := Int(0)
	for _, v := range args {
		var err error
		if total, err = arithmetic(TOKEN_PLUS, total, v); err != nil {
			return Value{}, err
		}
	}
	return total, nil
}

func fnCount(_ *evaluator, args []Value) (Value, error) {
	return Int(int64(len(args))), nil
}

func fnAverage(_ *evaluator, args []Value) (Value, error) {
	if len(args) == 0 {
		return Value{}, &Error{Kind: IllegalOperandType, Pos: -1, Detail: "average of no values"}
	}
	if err := numbers("average", args); err != nil {
		return Value{}, err
	}
	total := 0.0
	for _, v := range args {
		total += v.f
	}
	return numberResult("average", total/float64(len(args)))
}

// extreme returns max (sign 1) or min (sign -1) over values of one type.
func extreme(name string, sign int) func(*evaluator, []Value) (Value, error) {
	return func(_ *evaluator, args []Value) (Value, error) {
		if len(args) == 0 {
			return Value{}, &Error{Kind: IllegalOperandType, Pos: -1, Detail: name + " of no values"}
		}
		best := args[0]
		for _, v := range args[1:] {
			c, err := compareValues(v, best)
			if err != nil {
				return Value{}, &Error{Kind: IllegalOperandType, Pos: -1, Detail: fmt.Sprintf("%s cannot compare %s with %s", name, v.typ, best.typ)}
			}
			if c*sign > 0 {
				best = v
			}
		}
		return best, nil
	}
}

func fnJoin(_ *evaluator, args []Value) (Value, error) {
	sep := args[0].String()
	parts := make([]string, 0, len(args)-1)
	for _, v := range args[1:] {
		parts = append(parts, v.String())
	}
	return Text(strings.Join(parts, sep)), nil
}

// ---------- Numeric ----------

func positive(x float64) bool  { return x > 0 }
func unitRange(x float64) bool { return x >= -1 && x <= 1 }

// math1 wraps a one-argument float function. domain, when set, rejects
// arguments outside the function's domain.
func math1(name string, fn func(float64) float64, domain func(float64) bool) func(*evaluator, []Value) (Value, error) {
	return func(_ *evaluator, args []Value) (Value, error) {
		x := args[0]
		if x.typ != NumberType {
			return Value{}, operandError(name, x)
		}
		if domain != nil && !domain(x.f) {
			return Value{}, &Error{Kind: DomainError, Pos: -1, Detail: fmt.Sprintf("%s(%s) is undefined", name, x)}
		}
		return numberResult(name, fn(x.f))
	}
}

func fnAbs(_ *evaluator, args []Value) (Value, error) {
	x := args[0]
	if x.typ != NumberType {
		return Value{}, operandError("abs", x)
	}
	if x.isInt && x.i < 0 {
		return unary(TOKEN_MINUS, x)
	}
	if !x.isInt {
		return Float(math.Abs(x.f)), nil
	}
	return x, nil
}

func fnFactorial(_ *evaluator, args []Value) (Value, error) {
	x := args[0]
	if x.typ != NumberType {
		return Value{}, operandError("factorial", x)
	}
	if x.f < 0 || x.f != math.Trunc(x.f) || x.f > 170 {
		return Value{}, &Error{Kind: DomainError, Pos: -1, Detail: fmt.Sprintf("factorial(%s) is undefined", x)}
	}
	n := int64(x.f)
	result := Int(1)
	for i := int64(2); i <= n; i++ {
		var err error
		if result, err = arithmetic(TOKEN_STAR, result, Int(i)); err != nil {
			return Value{}, err
		}
	}
	return result, nil
}

// fnRound rounds half away from zero to n decimal places (default 0).
func fnRound(_ *evaluator, args []Value) (Value, error) {
	x := args[0]
	if x.typ != NumberType {
		return Value{}, operandError("round", x)
	}
	places := 0
	if len(args) == 2 {
		n := args[1]
		if n.typ != NumberType || n.f != math.Trunc(n.f) {
			return Value{}, operandError("round", n)
		}
		places = int(max(min(n.f, 15), -15))
	}
	if x.isInt && places >= 0 {
		return x, nil
	}
	p := math.Pow(10, float64(places))
	r := math.Round(x.f*p) / p
	if places <= 0 {
		return integral(r), nil
	}
	return numberResult("round", r)
}

func rounding(name string, fn func(float64) float64) func(*evaluator, []Value) (Value, error) {
	return func(_ *evaluator, args []Value) (Value, error) {
		x := args[0]
		if x.typ != NumberType {
			return Value{}, operandError(name, x)
		}
		if x.isInt {
			return x, nil
		}
		if math.IsInf(x.f, 0) || math.IsNaN(x.f) {
			return numberResult(name, x.f)
		}
		return integral(fn(x.f)), nil
	}
}

// ---------- Text ----------

func texts(name string, args []Value) ([]string, error) {
	out := make([]string, len(args))
	for i, v := range args {
		if v.typ != TextType {
			return nil, operandError(name, v)
		}
		out[i] = v.s
	}
	return out, nil
}

func caser(name string, newCaser func() cases.Caser) func(*evaluator, []Value) (Value, error) {
	return func(_ *evaluator, args []Value) (Value, error) {
		s, err := texts(name, args)
		if err != nil {
			return Value{}, err
		}
		c := newCaser()
		return Text(c.String(s[0])), nil
	}
}

func textPredicate(name string, fn func(s, sub string) bool) func(*evaluator, []Value) (Value, error) {
	return func(_ *evaluator, args []Value) (Value, error) {
		s, err := texts(name, args)
		if err != nil {
			return Value{}, err
		}
		return Bool(fn(s[0], s[1])), nil
	}
}

func fnReplace(_ *evaluator, args []Value) (Value, error) {
	s, err := texts("replace", args)
	if err != nil {
		return Value{}, err
	}
	return Text(strings.ReplaceAll(s[0], s[1], s[2])), nil
}

func fnLength(_ *evaluator, args []Value) (Value, error) {
	s, err := texts("length", args)
	if err != nil {
		return Value{}, err
	}
	return Int(int64(utf8.RuneCountInString(s[0]))), nil
}

func fnTrim(_ *evaluator, args []Value) (Value, error) {
	s, err := texts("trim", args)
	if err != nil {
		return Value{}, err
	}
	return Text(strings.TrimSpace(s[0])), nil
}

func fnStr(_ *evaluator, args []Value) (Value, error) {
	return Text(args[0].String()), nil
}

// ---------- Tree ----------

func fnChildCount(e *evaluator, _ []Value) (Value, error) {
	return Int(int64(resolve.ChildCount(e.node))), nil
}

func fnDescendantCount(e *evaluator, _ []Value) (Value, error) {
	return Int(int64(resolve.DescendantCount(e.node))), nil
}

// ---------- Dates and times ----------

func fnToday(e *evaluator, _ []Value) (Value, error) {
	return Date(e.now()), nil
}

func fnNow(e *evaluator, _ []Value) (Value, error) {
	return DateTime(e.now()), nil
}

func isoWeekday(v Value) int {
	if wd := int(v.t.Weekday()); wd != 0 {
		return wd
	}
	return 7
}

func datePart(name string, part func(Value) int) func(*evaluator, []Value) (Value, error) {
	return func(_ *evaluator, args []Value) (Value, error) {
		v := args[0]
		if v.typ != DateType && v.typ != DateTimeType {
			return Value{}, operandError(name, v)
		}
		return Int(int64(part(v))), nil
	}
}

func timePart(name string, part func(Value) int) func(*evaluator, []Value) (Value, error) {
	return func(_ *evaluator, args []Value) (Value, error) {
		v := args[0]
		if v.typ != TimeType && v.typ != DateTimeType {
			return Value{}, operandError(name, v)
		}
		return Int(int64(part(v))), nil
	}
}

func fnAddDays(_ *evaluator, args []Value) (Value, error) {
	d, n := args[0], args[1]
	if d.typ != DateType && d.typ != DateTimeType {
		return Value{}, operandError("adddays", d)
	}
	if n.typ != NumberType {
		return Value{}, operandError("adddays", n)
	}
	if d.typ == DateType {
		return shift(d, n.f)
	}
	return shift(d, n.f*86400)
}

func fnDaysBetween(_ *evaluator, args []Value) (Value, error) {
	for _, v := range args {
		if v.typ != DateType && v.typ != DateTimeType {
			return Value{}, operandError("daysbetween", v)
		}
	}
	return Int(dayNumber(args[1].t) - dayNumber(args[0].t)), nil
}
