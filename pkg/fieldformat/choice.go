package fieldformat

import (
	"errors"
	"slices"
	"strings"
)

// DefaultSeparator joins Combination values for display.
const DefaultSeparator = ", "

func parseChoices(spec string) ([]string, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, errors.New("no choices given")
	}
	items := splitEscaped(spec, '/')
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, errors.New("empty choice")
		}
		if seen[item] {
			return nil, errors.New("duplicate choice " + item)
		}
		seen[item] = true
		out = append(out, item)
	}
	return out, nil
}

// joinEscaped joins items with "/", doubling any "/" inside an item.
func joinEscaped(items []string) string {
	escaped := make([]string, len(items))
	for i, it := range items {
		escaped[i] = strings.ReplaceAll(it, "/", "//")
	}
	return strings.Join(escaped, "/")
}

// SplitCombination splits a stored Combination value into its items.
func SplitCombination(v string) []string {
	if v == "" {
		return nil
	}
	return splitEscaped(v, '/')
}

// splitCombinationInput accepts either the stored "/" form or items joined by
// the display separator.
func splitCombinationInput(input, separator string) []string {
	var raw []string
	sep := strings.TrimSpace(separator)
	switch {
	case strings.Contains(input, "/"):
		raw = splitEscaped(input, '/')
	case sep != "" && strings.Contains(input, sep):
		raw = strings.Split(input, sep)
	case separator != "" && strings.Contains(input, separator):
		raw = strings.Split(input, separator)
	default:
		raw = []string{input}
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

// boolWords holds the display words for a Boolean field.
type boolWords struct {
	yes, no string
}

func parseBoolFormat(spec string) (boolWords, error) {
	if spec == "" {
		return boolWords{yes: "yes", no: "no"}, nil
	}
	parts := splitEscaped(spec, '/')
	if len(parts) != 2 {
		return boolWords{}, errors.New("boolean format must be two words separated by /")
	}
	yes, no := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if yes == "" || no == "" || strings.EqualFold(yes, no) {
		return boolWords{}, errors.New("boolean words must be non-empty and distinct")
	}
	return boolWords{yes: yes, no: no}, nil
}

// parse accepts the field's words plus the common spellings.
func (w boolWords) parse(input string) (bool, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	switch {
	case s == strings.ToLower(w.yes):
		return true, true
	case s == strings.ToLower(w.no):
		return false, true
	}
	switch s {
	case "true", "t", "yes", "y", "1", "on":
		return true, true
	case "false", "f", "no", "n", "0", "off":
		return false, true
	}
	return false, false
}

// CanonicalBool renders a stored Boolean value.
func CanonicalBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ParseCanonicalBool reads a stored Boolean value.
func ParseCanonicalBool(v string) (bool, bool) {
	switch v {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
