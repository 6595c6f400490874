package utils

import (
	"errors"
	"fmt"
)

// ErrInvalidRecord marks a single evidence record that failed validation.
// Ingestion skips such records and continues with the rest of the batch.
var ErrInvalidRecord = errors.New("invalid evidence record")

// ErrStructural marks a structural invariant violation in a built graph,
// such as an edge referencing a missing node. Unlike record-level problems
// this fails the whole call: it indicates a builder bug, not bad data.
var ErrStructural = errors.New("structural invariant violation")

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}
