package claims

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies a lifecycle failure. Every precondition violation is
// terminal: the transaction aborts, nothing is mutated, and the error is
// surfaced verbatim to the caller.
type Kind int

const (
	// KindNotFound: project, claim or student does not exist.
	KindNotFound Kind = iota
	// KindForbidden: wrong role or not the owning professor.
	KindForbidden
	// KindInvalidInput: missing fields, out-of-range capacity, malformed ids.
	KindInvalidInput
	// KindConflict: capacity exceeded, duplicate claim, already-committed
	// project, or student already committed elsewhere.
	KindConflict
)

// Error is a classified lifecycle error with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// HTTPStatus maps the error kind onto the response status. Conflicts report
// as 400 alongside invalid input.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusBadRequest
	}
}

func notFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func forbiddenf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func invalidf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// AsError unwraps a lifecycle error from err, if one is present.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
