// Package fieldformat implements typed field definitions for outline nodes.
//
// A FieldFormat converts between the canonical stored form of a value, its
// display string and its edit string, validates user input and compares
// values for sorting. Each Kind owns a format spec grammar:
//
//	Number      "#,##0.00", "+0.###e00", "#.##0\,00"
//	Date/Time   strftime directives ("%B %-d, %Y", "%-I:%M %p")
//	Numbering   level style "I../A../1../a)/i)" or section style "1.1"
//	Choice      "low/medium/high" ("//" is a literal slash)
//	Boolean     "yes/no"
//
// A FieldFormat is immutable once built by New.
package fieldformat

import (
	"cmp"
	"errors"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Definition is the configured form of a field.
type Definition struct {
	Name   string `koanf:"name"`
	Kind   Kind   `koanf:"kind"`
	Format string `koanf:"format"`
	Prefix string `koanf:"prefix"`
	Suffix string `koanf:"suffix"`
	// DefaultValue is the initial value of new nodes. Temporal kinds accept "now".
	DefaultValue string `koanf:"default"`
	// SortKey orders fields used for sorting; zero means the field is not a sort key.
	SortKey int `koanf:"sort_key"`
	// SortDescending reverses the sort direction of the field.
	SortDescending bool   `koanf:"sort_descending"`
	NumLines       int    `koanf:"lines"`
	EvalHTML       bool   `koanf:"eval_html"`
	Equation       string `koanf:"equation"`
	// ResultType is the stored type of a Math field.
	ResultType ResultType `koanf:"result_type"`
	// Separator joins Combination values for display.
	Separator string `koanf:"separator"`
}

// FieldFormat is a compiled, validated field definition.
type FieldFormat struct {
	Definition

	number    *numberFormat
	temporal  *dateTimeFormat
	numbering *numberingFormat
	choices   []string
	words     boolWords
	pattern   *regexp.Regexp
	schemes   []string
	result    *FieldFormat
}

// New compiles def. A malformed name, format spec or default value is
// reported as a *DefinitionError.
func New(def Definition) (*FieldFormat, error) {
	f := &FieldFormat{Definition: def}
	fail := func(reason string) error {
		return &DefinitionError{Field: def.Name, Kind: def.Kind, Reason: reason}
	}

	if err := ValidateName(def.Name); err != nil {
		return nil, fail(err.Error())
	}
	if f.NumLines < 1 {
		f.NumLines = 1
	}
	if def.Kind != Math && def.Equation != "" {
		return nil, fail("only Math fields take an equation")
	}

	var err error
	switch def.Kind {
	case Number:
		f.number, err = parseNumberFormat(def.Format)
	case Math:
		inner := Definition{Name: def.Name, Kind: def.ResultType.Kind(), Format: def.Format}
		f.result, err = New(inner)
		if err != nil {
			var de *DefinitionError
			if errors.As(err, &de) {
				return nil, fail(de.Reason)
			}
			return nil, err
		}
	case Numbering:
		f.numbering, err = parseNumberingFormat(def.Format)
	case Boolean:
		f.words, err = parseBoolFormat(def.Format)
	case Date:
		f.temporal, err = parseDateTimeFormat(cmp.Or(def.Format, defaultDateFormat), true, false)
	case Time:
		f.temporal, err = parseDateTimeFormat(cmp.Or(def.Format, defaultTimeFormat), false, true)
	case DateTime:
		f.temporal, err = parseDateTimeFormat(cmp.Or(def.Format, defaultDateTimeFormat), true, true)
	case Choice, Combination:
		f.choices, err = parseChoices(def.Format)
	case RegularExpression:
		f.pattern, err = compilePattern(def.Format)
	case ExternalLink:
		f.schemes = parseSchemes(def.Format)
	case Text, HTMLText, OneLineText, SpacedText, AutoChoice, AutoCombination, InternalLink, Picture:
		if def.Format != "" {
			err = errors.New("format must be empty")
		}
	default:
		err = errors.New("unknown field kind")
	}
	if err != nil {
		return nil, fail(err.Error())
	}

	if def.Kind == Combination || def.Kind == AutoCombination {
		if f.Separator == "" {
			f.Separator = DefaultSeparator
		}
	} else if def.Separator != "" {
		return nil, fail("only Combination fields take a separator")
	}

	if def.DefaultValue != "" && !(f.isTemporal() && isNowKeyword(def.DefaultValue)) {
		if _, err := f.Validate(def.DefaultValue); err != nil {
			return nil, fail("default value: " + err.Error())
		}
	}
	return f, nil
}

// MustNew is New for statically known definitions; it panics on error.
func MustNew(def Definition) *FieldFormat {
	f, err := New(def)
	if err != nil {
		panic(err)
	}
	return f
}

// Choices returns the allowed values of a Choice or Combination field.
func (f *FieldFormat) Choices() []string {
	return slices.Clone(f.choices)
}

// IsNumeric reports whether values compare and compute as numbers.
func (f *FieldFormat) IsNumeric() bool {
	return f.Kind == Number || (f.Kind == Math && f.result.Kind == Number)
}

func (f *FieldFormat) isTemporal() bool {
	switch f.Kind {
	case Date, Time, DateTime:
		return true
	case Math:
		return f.result.isTemporal()
	}
	return false
}

func (f *FieldFormat) invalid(input string, cat Category) error {
	return &ValidationError{Field: f.Name, Kind: f.Kind, Input: input, Category: cat}
}

// Validate converts raw input into the canonical stored value. Blank input
// yields the blank value for every kind.
func (f *FieldFormat) Validate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", nil
	}

	switch f.Kind {
	case Text, SpacedText, HTMLText:
		return raw, nil
	case OneLineText, AutoChoice, Picture:
		if hasLineBreak(raw) {
			return "", f.invalid(raw, CategoryLineBreak)
		}
		return s, nil
	case Number:
		v, ok := f.number.canonical(s)
		if !ok {
			return "", f.invalid(raw, CategoryNumber)
		}
		return v, nil
	case Math:
		v, err := f.result.Validate(raw)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return "", f.invalid(raw, ve.Category)
			}
			return "", err
		}
		return v, nil
	case Numbering:
		return f.validateNumbering(raw, s, anyLevel)
	case Boolean:
		b, ok := f.words.parse(s)
		if !ok {
			return "", f.invalid(raw, CategoryBoolean)
		}
		return CanonicalBool(b), nil
	case Date:
		return f.validateTemporal(raw, DateLayout, fallbackDateLayouts, CategoryDate)
	case Time:
		return f.validateTemporal(raw, TimeLayout, fallbackTimeLayouts, CategoryTime)
	case DateTime:
		return f.validateTemporal(raw, DateTimeLayout, fallbackDTLayouts, CategoryDateTime)
	case Choice:
		if c, ok := f.matchChoice(s); ok {
			return c, nil
		}
		return "", f.invalid(raw, CategoryChoice)
	case Combination:
		if c, ok := f.matchChoice(s); ok {
			return joinEscaped([]string{c}), nil
		}
		picked := make(map[string]bool)
		for _, item := range splitCombinationInput(s, f.Separator) {
			c, ok := f.matchChoice(item)
			if !ok {
				return "", f.invalid(raw, CategoryChoice)
			}
			picked[c] = true
		}
		var ordered []string
		for _, c := range f.choices {
			if picked[c] {
				ordered = append(ordered, c)
			}
		}
		return joinEscaped(ordered), nil
	case AutoCombination:
		if hasLineBreak(raw) {
			return "", f.invalid(raw, CategoryLineBreak)
		}
		return joinEscaped(splitCombinationInput(s, f.Separator)), nil
	case ExternalLink:
		if !validLink(s, f.schemes) {
			return "", f.invalid(raw, CategoryLink)
		}
		return s, nil
	case InternalLink:
		if strings.ContainsFunc(s, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }) {
			return "", f.invalid(raw, CategoryLink)
		}
		return s, nil
	case RegularExpression:
		if hasLineBreak(raw) {
			return "", f.invalid(raw, CategoryLineBreak)
		}
		if !f.pattern.MatchString(s) {
			return "", f.invalid(raw, CategoryPattern)
		}
		return s, nil
	}
	return raw, nil
}

func (f *FieldFormat) validateTemporal(raw, layout string, fallbacks []string, cat Category) (string, error) {
	s := strings.TrimSpace(raw)
	if isNowKeyword(s) {
		return wallNow().Format(layout), nil
	}
	if t, err := time.Parse(layout, s); err == nil {
		return normalizeTemporal(t).Format(layout), nil
	}
	t, ok := parseTemporal(f.temporal, s, fallbacks)
	if !ok {
		return "", f.invalid(raw, cat)
	}
	return t.Format(layout), nil
}

func (f *FieldFormat) matchChoice(s string) (string, bool) {
	for _, c := range f.choices {
		if c == s {
			return c, true
		}
	}
	for _, c := range f.choices {
		if strings.EqualFold(c, s) {
			return c, true
		}
	}
	return "", false
}

func isNowKeyword(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "now" || s == "today"
}

func wallNow() time.Time {
	n := time.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), n.Hour(), n.Minute(), n.Second(), n.Nanosecond()/1000*1000, time.UTC)
}

// ValidateAt is Validate for a value on a node at the given outline depth
// (0 for top-level nodes). Level-style Numbering input is read with that
// level's numeral only. Other kinds ignore depth.
func (f *FieldFormat) ValidateAt(raw string, depth int) (string, error) {
	s := strings.TrimSpace(raw)
	if f.Kind != Numbering || depth < 0 || s == "" {
		return f.Validate(raw)
	}
	return f.validateNumbering(raw, s, depth)
}

func (f *FieldFormat) validateNumbering(raw, s string, depth int) (string, error) {
	if depth >= 0 {
		if nums, ok := f.numbering.parseFormatted(s, depth); ok {
			return CanonicalNumbering(nums), nil
		}
	}
	if nums, ok := ParseNumbering(s); ok {
		return CanonicalNumbering(nums), nil
	}
	if nums, ok := f.numbering.parseFormatted(s, anyLevel); ok {
		return CanonicalNumbering(nums), nil
	}
	return "", f.invalid(raw, CategoryNumbering)
}

// ToDisplay renders a canonical value with the format spec, prefix and
// suffix applied. Blank values render as "". Values that do not parse as
// the field's canonical form are shown unchanged.
func (f *FieldFormat) ToDisplay(v string) string {
	if v == "" {
		return ""
	}
	return f.Prefix + f.formatValue(v) + f.Suffix
}

func (f *FieldFormat) formatValue(v string) string {
	switch f.Kind {
	case Number:
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return f.number.format(n)
		}
	case Math:
		return f.result.formatValue(v)
	case Numbering:
		if nums, ok := ParseNumbering(v); ok {
			return f.numbering.format(nums)
		}
	case Boolean:
		if b, ok := ParseCanonicalBool(v); ok {
			if b {
				return f.words.yes
			}
			return f.words.no
		}
	case Date:
		if t, ok := ParseCanonicalDate(v); ok {
			return f.temporal.format(t)
		}
	case Time:
		if t, ok := ParseCanonicalTime(v); ok {
			return f.temporal.format(t)
		}
	case DateTime:
		if t, ok := ParseCanonicalDateTime(v); ok {
			return f.temporal.format(t)
		}
	case Combination, AutoCombination:
		return strings.Join(SplitCombination(v), f.Separator)
	}
	return v
}

// DisplayText is ToDisplay reduced to plain text for HtmlText fields and
// fields that evaluate HTML. String predicates match against it.
func (f *FieldFormat) DisplayText(v string) string {
	d := f.ToDisplay(v)
	if f.Kind == HTMLText || f.EvalHTML {
		return PlainText(d)
	}
	return d
}

// ToEdit returns a string that Validate maps back to v.
func (f *FieldFormat) ToEdit(v string) string {
	switch f.Kind {
	case Number:
		return f.number.editString(v)
	case Math:
		return f.result.ToEdit(v)
	}
	return v
}

// InitialValue is the value a new node starts with.
func (f *FieldFormat) InitialValue() string {
	if f.DefaultValue == "" {
		return ""
	}
	v, err := f.Validate(f.DefaultValue)
	if err != nil {
		return ""
	}
	return v
}

// Increment returns the Numbering value that follows prev, formatted with
// the field's format spec. A formatted level-style prev must name its level
// unambiguously; use IncrementAt when the node's depth is known.
func (f *FieldFormat) Increment(prev string) (string, error) {
	return f.IncrementAt(prev, anyLevel)
}

// IncrementAt is Increment for a value on a node at the given outline depth.
func (f *FieldFormat) IncrementAt(prev string, depth int) (string, error) {
	if f.Kind != Numbering {
		return "", errors.New("increment requires a Numbering field, got " + f.Kind.String())
	}
	next, err := f.numbering.increment(prev, depth)
	if err != nil {
		return "", f.invalid(prev, CategoryNumbering)
	}
	return next, nil
}

// Compare orders two canonical values of the field. Blank sorts first;
// values that do not parse sort after those that do.
func (f *FieldFormat) Compare(a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}

	switch f.Kind {
	case Number:
		return compareParsed(a, b, parseFloat, cmp.Compare[float64])
	case Math:
		return f.result.Compare(a, b)
	case Date:
		return compareParsed(a, b, ParseCanonicalDate, time.Time.Compare)
	case Time:
		return compareParsed(a, b, ParseCanonicalTime, time.Time.Compare)
	case DateTime:
		return compareParsed(a, b, ParseCanonicalDateTime, time.Time.Compare)
	case Boolean:
		return compareParsed(a, b, ParseCanonicalBool, compareBool)
	case Numbering:
		return compareParsed(a, b, ParseNumbering, slices.Compare[[]int])
	case Choice:
		index := func(v string) (int, bool) {
			i := slices.Index(f.choices, v)
			return i, i >= 0
		}
		return compareParsed(a, b, index, cmp.Compare[int])
	case HTMLText:
		return strings.Compare(PlainText(a), PlainText(b))
	}
	return strings.Compare(a, b)
}

func compareParsed[T any](a, b string, parse func(string) (T, bool), compare func(T, T) int) int {
	va, okA := parse(a)
	vb, okB := parse(b)
	switch {
	case okA && okB:
		return compare(va, vb)
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(a, b)
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}
