package featstruct

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInconsistentBinding is returned when the bound members of an
	// aliased variable are bound to different values.
	ErrInconsistentBinding = errors.New("featstruct: inconsistent aliased variable binding")

	// ErrVariableValue is returned when a variable would be bound to another variable.
	ErrVariableValue = errors.New("featstruct: variables cannot be bound to other variables")

	// ErrFeaturePath is returned by Path for a missing feature or a path
	// that runs through a non-structure value.
	ErrFeaturePath = errors.New("featstruct: bad feature path")

	// errUnificationFailure aborts a destructive merge. It never leaves Unify.
	errUnificationFailure = errors.New("featstruct: unification failure")
)

// ParseError reports where parsing a feature structure went wrong.
type ParseError struct {
	Input    string
	Offset   int
	Expected string
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString("featstruct: error parsing feature structure\n\n    ")
	sb.WriteString(e.Input)
	sb.WriteString("\n    ")
	sb.WriteString(strings.Repeat(" ", e.Offset))
	fmt.Fprintf(&sb, "^ Expected %s", e.Expected)
	return sb.String()
}
