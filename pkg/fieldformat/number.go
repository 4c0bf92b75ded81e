package fieldformat

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// numberFormat is a compiled Number format spec such as "#,##0.00" or "+0.###e00".
type numberFormat struct {
	forceSign    bool
	intZeros     int
	groupSep     rune
	groupSize    int
	radix        rune
	fracZeros    int
	fracDigits   int
	hasExp       bool
	expChar      byte
	expForceSign bool
	expZeros     int
}

const defaultNumberFormat = "#.##########"

func parseNumberFormat(spec string) (*numberFormat, error) {
	if spec == "" {
		spec = defaultNumberFormat
	}
	nf := &numberFormat{radix: '.'}
	if strings.Contains(spec, `\,`) {
		nf.radix = ','
		spec = strings.Replace(spec, `\,`, "\x00", 1)
	}

	runes := []rune(spec)
	i := 0
	if i < len(runes) && (runes[i] == '+' || runes[i] == '-') {
		nf.forceSign = runes[i] == '+'
		i++
	}

	placeholders := 0
	sinceGroup := 0
	sawGroup := false

	// integer part
	for ; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '#' || r == '0':
			if r == '0' {
				nf.intZeros++
			}
			placeholders++
			sinceGroup++
		case nf.isGroupRune(r):
			if nf.groupSep != 0 && nf.groupSep != r {
				return nil, errors.New("mixed digit grouping separators")
			}
			nf.groupSep = r
			sawGroup = true
			sinceGroup = 0
		default:
			goto fraction
		}
	}

fraction:
	if sawGroup {
		if sinceGroup == 0 {
			return nil, errors.New("digit grouping separator without following digits")
		}
		nf.groupSize = sinceGroup
	}
	if i < len(runes) && runes[i] == nf.radixMarker() {
		i++
		for ; i < len(runes) && (runes[i] == '#' || runes[i] == '0'); i++ {
			if runes[i] == '0' {
				nf.fracZeros++
			}
			nf.fracDigits++
			placeholders++
		}
	}

	if i < len(runes) && (runes[i] == 'e' || runes[i] == 'E') {
		nf.hasExp = true
		nf.expChar = byte(runes[i])
		i++
		if i < len(runes) && (runes[i] == '+' || runes[i] == '-') {
			nf.expForceSign = runes[i] == '+'
			i++
		}
		digits := 0
		for ; i < len(runes) && (runes[i] == '#' || runes[i] == '0'); i++ {
			if runes[i] == '0' {
				nf.expZeros++
			}
			digits++
		}
		if digits == 0 {
			return nil, errors.New("exponent without digit placeholders")
		}
	}

	if i < len(runes) {
		return nil, errors.New("unexpected character " + strconv.QuoteRune(runes[i]))
	}
	if placeholders == 0 {
		return nil, errors.New("no digit placeholders")
	}
	return nf, nil
}

// radixMarker is the rune standing for the radix inside a format spec.
func (nf *numberFormat) radixMarker() rune {
	if nf.radix == ',' {
		return 0
	}
	return '.'
}

func (nf *numberFormat) isGroupRune(r rune) bool {
	switch r {
	case ' ', '\'':
		return true
	case ',':
		return nf.radix == '.'
	case '.':
		return nf.radix == ','
	}
	return false
}

// format renders v with grouping, rounding and exponent applied.
func (nf *numberFormat) format(v float64) string {
	neg := v < 0
	a := math.Abs(v)

	exp := 0
	if nf.hasExp && a != 0 {
		exp = int(math.Floor(math.Log10(a)))
		a /= math.Pow(10, float64(exp))
	}

	rounded := roundHalfAway(a, nf.fracDigits)
	if nf.hasExp && rounded >= 10 {
		exp++
		rounded = roundHalfAway(a/10, nf.fracDigits)
	}

	s := strconv.FormatFloat(rounded, 'f', nf.fracDigits, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	for len(frac) > nf.fracZeros && strings.HasSuffix(frac, "0") {
		frac = frac[:len(frac)-1]
	}

	if rounded == 0 {
		neg = false
	}

	for len(intPart) < nf.intZeros {
		intPart = "0" + intPart
	}
	intPart = nf.group(intPart)

	var b strings.Builder
	switch {
	case neg:
		b.WriteByte('-')
	case nf.forceSign:
		b.WriteByte('+')
	}
	b.WriteString(intPart)
	if frac != "" {
		b.WriteRune(nf.radix)
		b.WriteString(frac)
	}
	if nf.hasExp {
		b.WriteByte(nf.expChar)
		if exp < 0 {
			b.WriteByte('-')
			exp = -exp
		} else if nf.expForceSign {
			b.WriteByte('+')
		}
		digits := strconv.Itoa(exp)
		for len(digits) < nf.expZeros {
			digits = "0" + digits
		}
		b.WriteString(digits)
	}
	return b.String()
}

func (nf *numberFormat) group(digits string) string {
	if nf.groupSep == 0 || len(digits) <= nf.groupSize {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % nf.groupSize
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += nf.groupSize {
		if b.Len() > 0 {
			b.WriteRune(nf.groupSep)
		}
		b.WriteString(digits[i : i+nf.groupSize])
	}
	return b.String()
}

// parse reads a user-entered number, tolerating grouping separators and the
// format's radix character.
func (nf *numberFormat) parse(input string) (float64, bool) {
	clean, ok := nf.clean(input)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// canonical parses input into the stored form. Integers that fit in an
// int64 are kept exact instead of passing through float64.
func (nf *numberFormat) canonical(input string) (string, bool) {
	clean, ok := nf.clean(input)
	if !ok {
		return "", false
	}
	if i, err := strconv.ParseInt(clean, 10, 64); err == nil {
		return strconv.FormatInt(i, 10), true
	}
	v, ok := nf.parse(input)
	if !ok {
		return "", false
	}
	return CanonicalNumber(v), true
}

// clean strips grouping characters and maps the radix to '.'.
func (nf *numberFormat) clean(input string) (string, bool) {
	s := strings.TrimSpace(input)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == ' ' || r == '\'' || r == '\u00a0':
		case nf.radix == ',' && r == '.':
		case nf.radix == ',' && r == ',':
			b.WriteByte('.')
		case nf.radix == '.' && r == ',':
		default:
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" || strings.ContainsAny(clean, "xXpP_") {
		return "", false
	}
	return clean, true
}

// editString renders a canonical number with the format's radix character.
func (nf *numberFormat) editString(canonical string) string {
	if nf.radix == ',' {
		return strings.Replace(canonical, ".", ",", 1)
	}
	return canonical
}

// CanonicalNumber renders v in the stored form: integers without a fraction,
// other values in the shortest form that parses back to v.
func CanonicalNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func roundHalfAway(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
