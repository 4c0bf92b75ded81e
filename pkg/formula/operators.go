package formula

import (
	"fmt"
	"math"
	"time"
)

// maxDayShift bounds date arithmetic to roughly +-8000 years.
const maxDayShift = 3_000_000

func binary(op TokenType, a, b Value) (Value, error) {
	if a.IsBlank() || b.IsBlank() {
		return Blank(), nil
	}

	switch op {
	case TOKEN_CONCAT:
		return Text(a.String() + b.String()), nil
	case TOKEN_EQ:
		return Bool(a.Equal(b)), nil
	case TOKEN_NE:
		return Bool(!a.Equal(b)), nil
	case TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE:
		c, err := compareValues(a, b)
		if err != nil {
			return Value{}, mismatch(op, a, b)
		}
		switch op {
		case TOKEN_LT:
			return Bool(c < 0), nil
		case TOKEN_LE:
			return Bool(c <= 0), nil
		case TOKEN_GT:
			return Bool(c > 0), nil
		}
		return Bool(c >= 0), nil
	}

	if a.typ == NumberType && b.typ == NumberType {
		return arithmetic(op, a, b)
	}
	if op == TOKEN_PLUS && a.typ == TextType && b.typ == TextType {
		return Text(a.s + b.s), nil
	}
	if a.isTemporal() || b.isTemporal() {
		return temporal(op, a, b)
	}
	return Value{}, mismatch(op, a, b)
}

func mismatch(op TokenType, a, b Value) *Error {
	return &Error{Kind: IllegalOperandType, Pos: -1, Detail: fmt.Sprintf("%s cannot combine %s and %s", op, a.typ, b.typ)}
}

func divisionByZero(op TokenType) *Error {
	return &Error{Kind: DivisionByZero, Pos: -1, Detail: fmt.Sprintf("%s by zero", op)}
}

func arithmetic(op TokenType, a, b Value) (Value, error) {
	ints := a.isInt && b.isInt
	switch op {
	case TOKEN_PLUS:
		if ints {
			if s, ok := addInt(a.i, b.i); ok {
				return Int(s), nil
			}
		}
		return numberResult("+", a.f+b.f)
	case TOKEN_MINUS:
		if ints {
			if s, ok := subInt(a.i, b.i); ok {
				return Int(s), nil
			}
		}
		return numberResult("-", a.f-b.f)
	case TOKEN_STAR:
		if ints {
			if s, ok := mulInt(a.i, b.i); ok {
				return Int(s), nil
			}
		}
		return numberResult("*", a.f*b.f)
	case TOKEN_SLASH:
		if b.f == 0 {
			return Value{}, divisionByZero(op)
		}
		return numberResult("/", a.f/b.f)
	case TOKEN_DSLASH:
		if b.f == 0 {
			return Value{}, divisionByZero(op)
		}
		if ints && !(a.i == math.MinInt64 && b.i == -1) {
			q := a.i / b.i
			if (a.i%b.i != 0) && ((a.i < 0) != (b.i < 0)) {
				q--
			}
			return Int(q), nil
		}
		return numberResult("//", math.Floor(a.f/b.f))
	case TOKEN_MOD:
		if b.f == 0 {
			return Value{}, divisionByZero(op)
		}
		if ints {
			if b.i == -1 {
				return Int(0), nil
			}
			r := a.i % b.i
			if r != 0 && (r < 0) != (b.i < 0) {
				r += b.i
			}
			return Int(r), nil
		}
		r := math.Mod(a.f, b.f)
		if r != 0 && (r < 0) != (b.f < 0) {
			r += b.f
		}
		return numberResult("%", r)
	case TOKEN_POW:
		if ints && b.i >= 0 {
			if p, ok := powInt(a.i, b.i); ok {
				return Int(p), nil
			}
		}
		if a.f == 0 && b.f < 0 {
			return Value{}, divisionByZero(op)
		}
		return numberResult("**", math.Pow(a.f, b.f))
	}
	return Value{}, mismatch(op, a, b)
}

func addInt(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

func subInt(a, b int64) (int64, bool) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, false
	}
	return a - b, true
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}

func powInt(base, exp int64) (int64, bool) {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			var ok bool
			if result, ok = mulInt(result, base); !ok {
				return 0, false
			}
		}
		exp >>= 1
		if exp > 0 {
			var ok bool
			if base, ok = mulInt(base, base); !ok {
				return 0, false
			}
		}
	}
	return result, true
}

// temporal implements date and time arithmetic. Dates shift by days, times
// and datetimes by seconds.
func temporal(op TokenType, a, b Value) (Value, error) {
	switch op {
	case TOKEN_PLUS:
		if b.isTemporal() && a.typ == NumberType {
			a, b = b, a
		}
		if a.isTemporal() && b.typ == NumberType {
			return shift(a, b.f)
		}
	case TOKEN_MINUS:
		if a.isTemporal() && b.typ == NumberType {
			return shift(a, -b.f)
		}
		if a.typ == b.typ {
			if a.typ == DateType {
				return Int(dayNumber(a.t) - dayNumber(b.t)), nil
			}
			return secondsBetween(b.t, a.t), nil
		}
	}
	return Value{}, mismatch(op, a, b)
}

// shift moves a temporal value by n days (dates) or n seconds.
func shift(v Value, n float64) (Value, error) {
	if v.typ == DateType {
		days := math.Trunc(n)
		if math.Abs(days) > maxDayShift {
			return Value{}, &Error{Kind: DomainError, Pos: -1, Detail: "date out of range"}
		}
		return Date(v.t.AddDate(0, 0, int(days))), nil
	}
	days := math.Floor(n / 86400)
	if math.IsNaN(days) || math.Abs(days) > maxDayShift {
		return Value{}, &Error{Kind: DomainError, Pos: -1, Detail: "time out of range"}
	}
	rest := n - days*86400
	t := v.t.AddDate(0, 0, int(days)).Add(time.Duration(math.Round(rest * 1e6)) * time.Microsecond)
	if v.typ == TimeType {
		return TimeOfDay(t), nil
	}
	return DateTime(t), nil
}

func dayNumber(t time.Time) int64 {
	return Date(t).t.Unix() / 86400
}

func secondsBetween(from, to time.Time) Value {
	secs := to.Unix() - from.Unix()
	micros := int64(to.Nanosecond()/1000 - from.Nanosecond()/1000)
	if micros == 0 {
		return Int(secs)
	}
	return Float(float64(secs) + float64(micros)/1e6)
}

func unary(op TokenType, v Value) (Value, error) {
	if v.IsBlank() {
		return Blank(), nil
	}
	switch op {
	case TOKEN_NOT:
		if v.typ != BooleanType {
			return Value{}, operandError("not", v)
		}
		return Bool(!v.b), nil
	case TOKEN_MINUS:
		if v.typ != NumberType {
			return Value{}, operandError("-", v)
		}
		if v.isInt && v.i != math.MinInt64 {
			return Int(-v.i), nil
		}
		return Float(-v.f), nil
	case TOKEN_PLUS:
		if v.typ != NumberType {
			return Value{}, operandError("+", v)
		}
		return v, nil
	}
	return Value{}, operandError(op.String(), v)
}
