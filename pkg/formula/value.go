package formula

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapnote/pkg/fieldformat"
)

// ValueType is the dynamic type of a formula value.
type ValueType int

// Value types.
const (
	BlankType ValueType = iota
	NumberType
	TextType
	BooleanType
	DateType
	TimeType
	DateTimeType
)

func (t ValueType) String() string {
	switch t {
	case BlankType:
		return "blank"
	case NumberType:
		return "number"
	case TextType:
		return "text"
	case BooleanType:
		return "boolean"
	case DateType:
		return "date"
	case TimeType:
		return "time"
	case DateTimeType:
		return "datetime"
	}
	return "ValueType(" + strconv.Itoa(int(t)) + ")"
}

// Value is a formula value. The zero Value is Blank.
type Value struct {
	typ   ValueType
	isInt bool
	i     int64
	f     float64
	s     string
	b     bool
	t     time.Time
}

// Blank returns the blank value.
func Blank() Value { return Value{} }

// Int returns an integer number.
func Int(i int64) Value { return Value{typ: NumberType, isInt: true, i: i, f: float64(i)} }

// Float returns a floating point number.
func Float(f float64) Value { return Value{typ: NumberType, f: f} }

// Text returns a text value.
func Text(s string) Value { return Value{typ: TextType, s: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{typ: BooleanType, b: b} }

// Date returns the calendar date of t.
func Date(t time.Time) Value {
	return Value{typ: DateType, t: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// TimeOfDay returns the clock time of t, to the microsecond.
func TimeOfDay(t time.Time) Value {
	return Value{typ: TimeType, t: time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1000*1000, time.UTC)}
}

// DateTime returns t to the microsecond.
func DateTime(t time.Time) Value {
	return Value{typ: DateTimeType, t: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1000*1000, time.UTC)}
}

// Type returns the value's type.
func (v Value) Type() ValueType { return v.typ }

// IsBlank reports whether v is blank.
func (v Value) IsBlank() bool { return v.typ == BlankType }

// IsInt reports whether v is an integer number.
func (v Value) IsInt() bool { return v.typ == NumberType && v.isInt }

// Float returns the numeric value of a number.
func (v Value) Float() float64 { return v.f }

// Bool returns the truth value of a boolean.
func (v Value) Bool() bool { return v.b }

// Time returns the time of a date, time or datetime.
func (v Value) Time() time.Time { return v.t }

// String returns the canonical stored form of v. Blank is "".
func (v Value) String() string {
	switch v.typ {
	case NumberType:
		if v.isInt {
			return strconv.FormatInt(v.i, 10)
		}
		return fieldformat.CanonicalNumber(v.f)
	case TextType:
		return v.s
	case BooleanType:
		return fieldformat.CanonicalBool(v.b)
	case DateType:
		return v.t.Format(fieldformat.DateLayout)
	case TimeType:
		return v.t.Format(fieldformat.TimeLayout)
	case DateTimeType:
		return v.t.Format(fieldformat.DateTimeLayout)
	}
	return ""
}

// GoString is used by %#v in test failures.
func (v Value) GoString() string {
	return fmt.Sprintf("%s(%q)", v.typ, v.String())
}

func (v Value) isTemporal() bool {
	return v.typ == DateType || v.typ == TimeType || v.typ == DateTimeType
}

// Equal reports whether a and b have the same type and value. Integer and
// float numbers compare by numeric value.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	c, err := compareValues(v, o)
	return err == nil && c == 0
}

// compareValues orders two values of one comparable type.
func compareValues(a, b Value) (int, error) {
	if a.typ != b.typ {
		return 0, &Error{Kind: IllegalOperandType, Pos: -1, Detail: fmt.Sprintf("cannot compare %s with %s", a.typ, b.typ)}
	}
	switch a.typ {
	case NumberType:
		if a.isInt && b.isInt {
			return cmp.Compare(a.i, b.i), nil
		}
		return cmp.Compare(a.f, b.f), nil
	case TextType:
		return strings.Compare(a.s, b.s), nil
	case BooleanType:
		switch {
		case a.b == b.b:
			return 0, nil
		case b.b:
			return -1, nil
		}
		return 1, nil
	case DateType, TimeType, DateTimeType:
		return a.t.Compare(b.t), nil
	}
	return 0, nil
}

// numberResult returns f as a number; NaN and infinities are domain errors.
func numberResult(op string, f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, &Error{Kind: DomainError, Pos: -1, Detail: op + " result is not a finite number"}
	}
	return Float(f), nil
}

// integral returns f as an integer number when it is whole and in range.
func integral(f float64) Value {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return Int(int64(f))
	}
	return Float(f)
}

// FromStored reads a stored canonical value through the field that holds it.
// Values that do not parse as the field's kind read as text.
func FromStored(f *fieldformat.FieldFormat, stored string) Value {
	if stored == "" {
		return Blank()
	}
	kind := f.Kind
	if kind == fieldformat.Math {
		kind = f.ResultType.Kind()
	}
	switch kind {
	case fieldformat.Number:
		if i, err := strconv.ParseInt(stored, 10, 64); err == nil {
			return Int(i)
		}
		if x, err := strconv.ParseFloat(stored, 64); err == nil {
			return Float(x)
		}
	case fieldformat.Boolean:
		if b, ok := fieldformat.ParseCanonicalBool(stored); ok {
			return Bool(b)
		}
	case fieldformat.Date:
		if t, ok := fieldformat.ParseCanonicalDate(stored); ok {
			return Date(t)
		}
	case fieldformat.Time:
		if t, ok := fieldformat.ParseCanonicalTime(stored); ok {
			return TimeOfDay(t)
		}
	case fieldformat.DateTime:
		if t, ok := fieldformat.ParseCanonicalDateTime(stored); ok {
			return DateTime(t)
		}
	case fieldformat.HTMLText:
		return Text(fieldformat.PlainText(stored))
	}
	return Text(stored)
}

// ToStored converts a result to the canonical value of a Math field with
// result type rt. Blank stores as "".
func ToStored(v Value, rt fieldformat.ResultType) (string, error) {
	if v.IsBlank() {
		return "", nil
	}
	wrong := func() (string, error) {
		return "", &Error{Kind: IllegalOperandType, Pos: -1, Detail: fmt.Sprintf("%s result cannot be stored as %s", v.typ, rt)}
	}
	switch rt {
	case fieldformat.ResultText:
		return v.String(), nil
	case fieldformat.ResultNumber:
		if v.typ != NumberType {
			return wrong()
		}
	case fieldformat.ResultBoolean:
		if v.typ != BooleanType {
			return wrong()
		}
	case fieldformat.ResultDate:
		switch v.typ {
		case DateType:
		case DateTimeType:
			return Date(v.t).String(), nil
		default:
			return wrong()
		}
	case fieldformat.ResultTime:
		switch v.typ {
		case TimeType:
		case DateTimeType:
			return TimeOfDay(v.t).String(), nil
		default:
			return wrong()
		}
	case fieldformat.ResultDateTime:
		switch v.typ {
		case DateTimeType:
		case DateType:
			return DateTime(v.t).String(), nil
		default:
			return wrong()
		}
	}
	return v.String(), nil
}
