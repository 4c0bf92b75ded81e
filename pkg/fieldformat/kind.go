package fieldformat

import (
	"fmt"
	"strings"
)

// Kind is the closed set of field types.
type Kind int

// Field kinds. The order is part of no contract; names are.
const (
	Text Kind = iota
	HTMLText
	OneLineText
	SpacedText
	Number
	Math
	Numbering
	Boolean
	Date
	Time
	DateTime
	Choice
	AutoChoice
	Combination
	AutoCombination
	ExternalLink
	InternalLink
	Picture
	RegularExpression
)

var kindNames = [...]string{
	Text:              "Text",
	HTMLText:          "HtmlText",
	OneLineText:       "OneLineText",
	SpacedText:        "SpacedText",
	Number:            "Number",
	Math:              "Math",
	Numbering:         "Numbering",
	Boolean:           "Boolean",
	Date:              "Date",
	Time:              "Time",
	DateTime:          "DateTime",
	Choice:            "Choice",
	AutoChoice:        "AutoChoice",
	Combination:       "Combination",
	AutoCombination:   "AutoCombination",
	ExternalLink:      "ExternalLink",
	InternalLink:      "InternalLink",
	Picture:           "Picture",
	RegularExpression: "RegularExpression",
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kindNames {
		kinds[i] = Kind(i)
	}
	return kinds
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind looks up a kind by name, ignoring case.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field kind %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ResultType is the value type a Math field stores.
type ResultType int

// Math result types.
const (
	ResultNumber ResultType = iota
	ResultText
	ResultBoolean
	ResultDate
	ResultTime
	ResultDateTime
)

var resultNames = [...]string{
	ResultNumber:   "number",
	ResultText:     "text",
	ResultBoolean:  "boolean",
	ResultDate:     "date",
	ResultTime:     "time",
	ResultDateTime: "datetime",
}

func (r ResultType) String() string {
	if r < 0 || int(r) >= len(resultNames) {
		return fmt.Sprintf("ResultType(%d)", int(r))
	}
	return resultNames[r]
}

// Kind returns the field kind that stores values of this result type.
func (r ResultType) Kind() Kind {
	switch r {
	case ResultText:
		return Text
	case ResultBoolean:
		return Boolean
	case ResultDate:
		return Date
	case ResultTime:
		return Time
	case ResultDateTime:
		return DateTime
	default:
		return Number
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r ResultType) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty name means number.
func (r *ResultType) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	if name == "" {
		*r = ResultNumber
		return nil
	}
	for i, n := range resultNames {
		if n == name {
			*r = ResultType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown math result type %q", string(b))
}
