package fieldformat

import (
	"errors"
	"strings"
	"unicode"
)

// ValidateName checks a field or data type name: it starts with a letter,
// holds only letters, digits, '_', '-' and '.', and does not start with "xml".
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name is empty")
	}
	for i, r := range name {
		switch {
		case i == 0 && !unicode.IsLetter(r):
			return errors.New("name must start with a letter")
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-', r == '.':
		case unicode.IsSpace(r):
			return errors.New("name must not contain spaces")
		default:
			return errors.New("name contains illegal character " + string(r))
		}
	}
	if strings.HasPrefix(strings.ToLower(name), "xml") {
		return errors.New(`name must not start with "xml"`)
	}
	return nil
}
