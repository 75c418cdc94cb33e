package plansql

import (
	"errors"
	"fmt"
)

// CompileError represents a failure to lower a pipeline to SQL text.
// The pipeline itself remains valid and may still be run by the in-memory
// interpreter.
type CompileError struct {
	// Code identifies the error category.
	Code CompileErrorCode

	// Message is a human-readable description.
	Message string

	// Position is the chain index of the offending node.
	Position int
}

// CompileErrorCode categorizes compile errors.
type CompileErrorCode string

const (
	// ErrCodeUnsupportedExpression indicates an expression the target
	// dialect cannot express.
	ErrCodeUnsupportedExpression CompileErrorCode = "UNSUPPORTED_EXPRESSION"

	// ErrCodeDialectMismatch indicates a feature (e.g. the ranking ties
	// policy) is not expressible identically in the target dialect.
	ErrCodeDialectMismatch CompileErrorCode = "DIALECT_MISMATCH"

	// ErrCodeOrderingNotOutermost indicates an order-by node below another
	// non-terminal node; ordering is not guaranteed to survive nesting.
	ErrCodeOrderingNotOutermost CompileErrorCode = "ORDERING_NOT_OUTERMOST"
)

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s (node=%d)", e.Code, e.Message, e.Position)
}

// IsDialectMismatch returns true if the error is a dialect mismatch.
// Uses errors.As to handle wrapped errors.
func IsDialectMismatch(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Code == ErrCodeDialectMismatch
}

// IsOrderingNotOutermost returns true if the error reports a non-outermost
// order-by node.
func IsOrderingNotOutermost(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Code == ErrCodeOrderingNotOutermost
}

// IsUnsupportedExpression returns true if the error reports an expression
// the dialect cannot express.
func IsUnsupportedExpression(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Code == ErrCodeUnsupportedExpression
}
