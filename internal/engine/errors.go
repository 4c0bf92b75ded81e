package engine

import (
	"fmt"
	"strings"
)

// BatchError collects the per-field failures of a whole-tree operation.
// errors.Is and errors.As see every collected error.
type BatchError struct {
	Op     string
	Errors []error
}

func (e *BatchError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s: %v", e.Op, e.Errors[0])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d errors", e.Op, len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n  ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *BatchError) Unwrap() []error {
	return e.Errors
}

// unjoin flattens an errors.Join result.
func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
