package command

import (
	"errors"
	"fmt"
)

// Error is a named error reported by a handler. Its message is substituted
// into the document in place of the command.
type Error struct {
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Errorf returns a named handler error.
func Errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Message returns the text to substitute for err. Named errors keep their
// message verbatim; other errors use err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var named *Error
	if errors.As(err, &named) {
		return named.Message
	}
	return err.Error()
}
