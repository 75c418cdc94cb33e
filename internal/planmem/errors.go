package planmem

import (
	"errors"
	"fmt"
)

// EvalError represents a failure during in-memory evaluation. Evaluation
// aborts rather than skipping bad rows - no silent partial results.
type EvalError struct {
	// Code identifies the error category.
	Code EvalErrorCode

	// Message is a human-readable description.
	Message string

	// Position is the chain index of the offending node.
	Position int

	// Row is the input row index being evaluated, or -1 when the failure
	// is not row-specific.
	Row int
}

// EvalErrorCode categorizes evaluation errors.
type EvalErrorCode string

const (
	// ErrCodeTypeMismatch indicates incompatible operand types.
	ErrCodeTypeMismatch EvalErrorCode = "TYPE_MISMATCH"

	// ErrCodeUnknownColumn indicates a missing column at evaluation time.
	// Defense in depth: the builder already rejects these at construction.
	ErrCodeUnknownColumn EvalErrorCode = "UNKNOWN_COLUMN"
)

// Error implements the error interface.
func (e *EvalError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("%s: %s (node=%d, row=%d)", e.Code, e.Message, e.Position, e.Row)
	}
	return fmt.Sprintf("%s: %s (node=%d)", e.Code, e.Message, e.Position)
}

// IsTypeMismatch returns true if the error is a type mismatch.
// Uses errors.As to handle wrapped errors.
func IsTypeMismatch(err error) bool {
	var ee *EvalError
	return errors.As(err, &ee) && ee.Code == ErrCodeTypeMismatch
}

func typeMismatch(pos, row int, format string, args ...any) *EvalError {
	return &EvalError{
		Code:     ErrCodeTypeMismatch,
		Message:  fmt.Sprintf(format, args...),
		Position: pos,
		Row:      row,
	}
}
