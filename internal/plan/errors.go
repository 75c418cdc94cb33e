package plan

import (
	"errors"
	"fmt"
)

// BuildError represents a contract violation detected while constructing a
// pipeline. Build errors are always fatal to the build call - a pipeline is
// never partially constructed.
type BuildError struct {
	// Code identifies the error category.
	Code BuildErrorCode

	// Message is a human-readable description.
	Message string

	// Position is the chain index of the node being constructed
	// (the source table reference is position 0).
	Position int

	// Column names the offending column, when the error concerns one.
	Column string
}

// BuildErrorCode categorizes build errors.
type BuildErrorCode string

const (
	// ErrCodeUnknownColumn indicates an expression, predicate, or window
	// specification referenced a column absent from the upstream output set.
	ErrCodeUnknownColumn BuildErrorCode = "UNKNOWN_COLUMN"

	// ErrCodeColumnKindMismatch indicates a window specification was paired
	// with a non-window expression, or a window function lacked one.
	ErrCodeColumnKindMismatch BuildErrorCode = "COLUMN_KIND_MISMATCH"

	// ErrCodeEmptyOrdering indicates an ordering with no columns.
	ErrCodeEmptyOrdering BuildErrorCode = "EMPTY_ORDERING"

	// ErrCodePipelineTerminated indicates an operator was appended after a
	// terminal materialize node.
	ErrCodePipelineTerminated BuildErrorCode = "PIPELINE_TERMINATED"
)

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: %s (node=%d, column=%s)", e.Code, e.Message, e.Position, e.Column)
	}
	return fmt.Sprintf("%s: %s (node=%d)", e.Code, e.Message, e.Position)
}

// IsUnknownColumn returns true if the error is an unknown-column build error.
// Uses errors.As to handle wrapped errors.
func IsUnknownColumn(err error) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Code == ErrCodeUnknownColumn
}

// IsColumnKindMismatch returns true if the error is a kind-mismatch build error.
func IsColumnKindMismatch(err error) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Code == ErrCodeColumnKindMismatch
}

// IsEmptyOrdering returns true if the error is an empty-ordering build error.
func IsEmptyOrdering(err error) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Code == ErrCodeEmptyOrdering
}

func unknownColumn(pos int, column string) *BuildError {
	return &BuildError{
		Code:     ErrCodeUnknownColumn,
		Message:  "column not present in upstream output set",
		Position: pos,
		Column:   column,
	}
}

func kindMismatch(pos int, msg string) *BuildError {
	return &BuildError{
		Code:     ErrCodeColumnKindMismatch,
		Message:  msg,
		Position: pos,
	}
}
