// Package faults defines the error kinds shared across subalign.
//
// Every error surfaced by the domain packages wraps exactly one marker so
// callers can decide, with errors.Is, whether to fix the input, resubmit to
// the generative collaborator, or hand the raw response to a human.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPrecondition marks invalid or missing input. Not retryable
	// without new input.
	ErrPrecondition = errors.New("precondition not met")
	// ErrGeneration marks an empty or malformed collaborator response.
	// Retryable by resubmission.
	ErrGeneration = errors.New("generation failed")
	// ErrParse marks a response that could not be turned into a valid
	// result. The caller may re-prompt or edit the raw text.
	ErrParse = errors.New("parse failed")

	ErrNotFound     = errors.New("not found")
	ErrConfig       = errors.New("configuration invalid")
	ErrExternalTool = errors.New("external tool failed")
)

// Error is a marker-carrying error with an operation label.
type Error struct {
	Marker error
	Op     string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	} else if e.Marker != nil {
		parts = append(parts, e.Marker.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Marker != nil {
		out = append(out, e.Marker)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap attaches a marker and operation to err. A nil err yields a bare
// marker error with msg.
func Wrap(marker error, op, msg string, err error) error {
	return &Error{Marker: marker, Op: op, Msg: msg, Err: err}
}

// Precondition is shorthand for an input validation failure.
func Precondition(op, format string, args ...any) error {
	return Wrap(ErrPrecondition, op, fmt.Sprintf(format, args...), nil)
}

// Retryable reports whether resubmitting the same request may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrGeneration)
}

// Kind returns a short label for the marker err carries.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPrecondition):
		return "precondition"
	case errors.Is(err, ErrGeneration):
		return "generation"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "internal"
	}
}
