package fieldformat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// numeral is one compiled level or section format: a literal prefix, a
// numeral token and a literal suffix, e.g. "(" "a" ")".
type numeral struct {
	prefix, suffix string
	style          byte // '1', 'A', 'a', 'I' or 'i'
}

// numberingFormat is a compiled Numbering format spec.
//
// Level style ("I../A../1../a)/i)") holds one numeral per outline level and
// displays only the deepest number. Section style ("1.A.1") displays every
// number joined by dots.
type numberingFormat struct {
	levels  []numeral
	section bool
}

const defaultNumberingFormat = "1"

func parseNumberingFormat(spec string) (*numberingFormat, error) {
	if spec == "" {
		spec = defaultNumberingFormat
	}
	nf := &numberingFormat{}
	parts := splitEscaped(spec, '/')
	if len(parts) > 1 {
		for _, part := range parts {
			n, err := parseNumeral(strings.ReplaceAll(part, "..", "."))
			if err != nil {
				return nil, err
			}
			nf.levels = append(nf.levels, n)
		}
		return nf, nil
	}

	nf.section = true
	for _, part := range splitEscaped(parts[0], '.') {
		n, err := parseNumeral(part)
		if err != nil {
			return nil, err
		}
		nf.levels = append(nf.levels, n)
	}
	return nf, nil
}

// splitEscaped splits s on sep; a doubled sep is a literal sep.
func splitEscaped(s string, sep byte) []string {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != sep {
			cur.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == sep {
			cur.WriteByte(sep)
			i++
			continue
		}
		parts = append(parts, cur.String())
		cur.Reset()
	}
	return append(parts, cur.String())
}

// parseNumeral finds the numeral token: the first of 1, A, a, I or i that
// is not part of a word, so "Item 1" numbers with 1.
func parseNumeral(s string) (numeral, error) {
	idx := -1
	for i := 0; i < len(s); i++ {
		if strings.IndexByte("1AaIi", s[i]) >= 0 && !isLetterAt(s, i-1) && !isLetterAt(s, i+1) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return numeral{}, fmt.Errorf("numbering format %q has no numeral (1, A, a, I or i)", s)
	}
	if strings.ContainsAny(s[:idx], "0123456789") {
		return numeral{}, fmt.Errorf("numbering format %q has digits before its numeral", s)
	}
	return numeral{prefix: s[:idx], suffix: s[idx+1:], style: s[idx]}, nil
}

func isLetterAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i] | 0x20
	return c >= 'a' && c <= 'z'
}

func (nf *numberingFormat) level(depth int) numeral {
	if depth >= len(nf.levels) {
		return nf.levels[len(nf.levels)-1]
	}
	return nf.levels[depth]
}

// format renders canonical dotted numbers ("1.2.3").
func (nf *numberingFormat) format(nums []int) string {
	if len(nums) == 0 {
		return ""
	}
	if !nf.section {
		depth := len(nums) - 1
		return nf.level(depth).format(nums[depth])
	}
	out := make([]string, len(nums))
	for i, n := range nums {
		out[i] = nf.level(i).format(n)
	}
	return strings.Join(out, ".")
}

// anyLevel asks parseFormatted to find the level of a level-style value.
const anyLevel = -1

// parseFormatted reads a display string back into numbers. Level style
// reads s with the numeral of depth only; with anyLevel, s must be accepted
// by exactly one level, since letter and Roman levels share characters.
func (nf *numberingFormat) parseFormatted(s string, depth int) ([]int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if nf.section {
		parts := strings.Split(s, ".")
		nums := make([]int, 0, len(parts))
		for i, p := range parts {
			n, ok := nf.level(i).parse(p)
			if !ok {
				return nil, false
			}
			nums = append(nums, n)
		}
		return nums, true
	}
	if depth >= 0 {
		n, ok := nf.level(depth).parse(s)
		if !ok {
			return nil, false
		}
		return levelPath(depth, n), true
	}
	found, value := anyLevel, 0
	for d, lvl := range nf.levels {
		n, ok := lvl.parse(s)
		if !ok {
			continue
		}
		if found != anyLevel {
			return nil, false
		}
		found, value = d, n
	}
	if found == anyLevel {
		return nil, false
	}
	return levelPath(found, value), true
}

// levelPath is the stored path of number n at depth. Level style shows
// only the deepest number, so ancestors are stored as 1 and the path length
// keeps the level.
func levelPath(depth, n int) []int {
	path := make([]int, depth+1)
	for i := range path {
		path[i] = 1
	}
	path[depth] = n
	return path
}

// ParseNumbering reads a canonical Numbering value such as "1.2.3".
func ParseNumbering(v string) ([]int, bool) {
	if v == "" {
		return nil, false
	}
	parts := strings.Split(v, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || strings.HasPrefix(p, "+") {
			return nil, false
		}
		nums[i] = n
	}
	return nums, true
}

// CanonicalNumbering renders numbers as the stored dotted form.
func CanonicalNumbering(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

func (n numeral) format(v int) string {
	var body string
	switch n.style {
	case 'A':
		body = toLetters(v)
	case 'a':
		body = strings.ToLower(toLetters(v))
	case 'I':
		body = toRoman(v)
	case 'i':
		body = strings.ToLower(toRoman(v))
	default:
		body = strconv.Itoa(v)
	}
	return n.prefix + body + n.suffix
}

func (n numeral) parse(s string) (int, bool) {
	if !strings.HasPrefix(s, n.prefix) || !strings.HasSuffix(s, n.suffix) || len(s) <= len(n.prefix)+len(n.suffix) {
		return 0, false
	}
	body := s[len(n.prefix) : len(s)-len(n.suffix)]
	switch n.style {
	case 'A', 'a':
		if (n.style == 'A') != (strings.ToUpper(body) == body) {
			return 0, false
		}
		return fromLetters(body)
	case 'I', 'i':
		if (n.style == 'I') != (strings.ToUpper(body) == body) {
			return 0, false
		}
		return fromRoman(body)
	default:
		v, err := strconv.Atoi(body)
		if err != nil || v < 1 {
			return 0, false
		}
		return v, true
	}
}

// toLetters renders 1..26 as A..Z, then AA..ZZ, AAA...
func toLetters(v int) string {
	if v < 1 {
		return ""
	}
	letter := byte('A' + (v-1)%26)
	return strings.Repeat(string(letter), (v-1)/26+1)
}

func fromLetters(s string) (int, bool) {
	u := strings.ToUpper(s)
	if u == "" || u[0] < 'A' || u[0] > 'Z' || strings.Count(u, u[:1]) != len(u) {
		return 0, false
	}
	return (len(u)-1)*26 + int(u[0]-'A') + 1, true
}

var romanTable = []struct {
	value int
	text  string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"}, {100, "C"}, {90, "XC"},
	{50, "L"}, {40, "XL"}, {10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func toRoman(v int) string {
	if v < 1 || v > 3999 {
		return strconv.Itoa(v)
	}
	var b strings.Builder
	for _, r := range romanTable {
		for v >= r.value {
			b.WriteString(r.text)
			v -= r.value
		}
	}
	return b.String()
}

// fromRoman accepts only the strict form toRoman produces.
func fromRoman(s string) (int, bool) {
	u := strings.ToUpper(s)
	v, rest := 0, u
	for _, r := range romanTable {
		for strings.HasPrefix(rest, r.text) {
			v += r.value
			rest = rest[len(r.text):]
		}
	}
	if rest != "" || v == 0 || toRoman(v) != u {
		return 0, false
	}
	return v, true
}

var errNumbering = errors.New("not a numbering value")

// increment parses prev (formatted or canonical) and returns the formatted
// value with its deepest number advanced by one. depth selects the level of
// a level-style value; anyLevel reads it from prev.
func (nf *numberingFormat) increment(prev string, depth int) (string, error) {
	prev = strings.TrimSpace(prev)
	if prev == "" {
		if nf.section || depth < 0 {
			depth = 0
		}
		return nf.format(levelPath(depth, 1)), nil
	}
	nums, ok := nf.parseFormatted(prev, depth)
	if !ok {
		nums, ok = ParseNumbering(prev)
	}
	if !ok {
		return "", errNumbering
	}
	nums[len(nums)-1]++
	return nf.format(nums), nil
}
