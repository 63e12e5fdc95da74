package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// SpecErrorKind discriminates the configuration failures detected before any
// step runs.
type SpecErrorKind string

const (
	// ParseError the description document could not be decoded
	ParseError SpecErrorKind = "ParseError"
	// InvalidMatrix a matrix axis has no value
	InvalidMatrix SpecErrorKind = "InvalidMatrix"
	// UnknownDependency a needs entry does not match any job
	UnknownDependency SpecErrorKind = "UnknownDependency"
	// CyclicDependency the needs declarations form a cycle
	CyclicDependency SpecErrorKind = "CyclicDependency"
)

// SpecError is returned when the pipeline description itself is invalid.
// SpecErrors are fatal to the whole run: nothing executes.
type SpecError struct {
	Kind    SpecErrorKind
	Message string
}

func (e SpecError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewSpecError returns a new SpecError with a formatted message.
func NewSpecError(kind SpecErrorKind, format string, args ...interface{}) SpecError {
	return SpecError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsSpecError unwraps err as a SpecError.
func AsSpecError(err error) (SpecError, bool) {
	var se SpecError
	if errors.As(err, &se) {
		return se, true
	}
	return SpecError{}, false
}
