// Package errors defines the error taxonomy shared by the index and
// search components. Routine misses (unknown term, missing document) are
// reported as empty results rather than errors; the sentinels here cover
// the cases that must stop an operation.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing file or record where the caller asked
	// for it explicitly and cannot degrade to an empty result.
	ErrNotFound = errors.New("not found")
	// ErrCorruptData marks persisted index data that failed to decode:
	// truncated varints, bad block structure, unexpected serialised shape.
	ErrCorruptData = errors.New("corrupt index data")
	// ErrInvalidInput marks caller-supplied data the engine refuses to
	// process, such as a document identifier that cannot round-trip
	// through the postings codec.
	ErrInvalidInput = errors.New("invalid input")
)

// Error wraps a sentinel with operation context.
type Error struct {
	Sentinel error
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Sentinel.Error(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}

// New builds an Error from a sentinel and a message.
func New(sentinel error, message string) *Error {
	return &Error{Sentinel: sentinel, Message: message}
}

// Newf builds an Error from a sentinel and a format string.
func Newf(sentinel error, format string, args ...any) *Error {
	return &Error{Sentinel: sentinel, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err wraps the given sentinel.
func Is(err, sentinel error) bool {
	return errors.Is(err, sentinel)
}
