package fieldformat

import "fmt"

// DefinitionError reports a field definition that cannot be installed:
// a bad name, an invalid format spec or a default value that does not validate.
type DefinitionError struct {
	Field  string
	Kind   Kind
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid definition of %s field %q: %s", e.Kind, e.Field, e.Reason)
}

// Category names the way a value failed validation.
type Category string

// Validation failure categories.
const (
	CategoryNumber    Category = "not a valid number"
	CategoryDate      Category = "not a valid date"
	CategoryTime      Category = "not a valid time"
	CategoryDateTime  Category = "not a valid date and time"
	CategoryBoolean   Category = "not a valid true/false value"
	CategoryChoice    Category = "not one of the allowed choices"
	CategoryNumbering Category = "not a valid outline number"
	CategoryPattern   Category = "does not match the required pattern"
	CategoryLink      Category = "not a valid link"
	CategoryLineBreak Category = "not allowed to contain line breaks"
)

// ValidationError reports a value that does not fit an otherwise valid field.
// It is recoverable: the caller prompts for a correction.
type ValidationError struct {
	Field    string
	Kind     Kind
	Input    string
	Category Category
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s field %q: %q is %s", e.Kind, e.Field, e.Input, e.Category)
}
