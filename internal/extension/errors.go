package extension

import "errors"

// Registry errors.
var (
	// ErrNotFound indicates no handler exists for a command name.
	ErrNotFound = errors.New("extension: command not found")

	// ErrUnknownOperation indicates a dispatch to an operation handlers do not have.
	ErrUnknownOperation = errors.New("extension: unknown operation")

	// ErrAlreadyRegistered indicates a built-in handler name is taken.
	ErrAlreadyRegistered = errors.New("extension: command already registered")

	// ErrAlreadyResolved indicates a name was resolved before it was registered.
	ErrAlreadyResolved = errors.New("extension: command already resolved")

	// ErrInvalidName indicates a command name that does not match the grammar.
	ErrInvalidName = errors.New("extension: invalid command name")

	// ErrNoPrepare indicates a script that does not define prepare().
	ErrNoPrepare = errors.New("extension: script does not define prepare")

	// ErrPanic indicates a handler panicked during dispatch.
	ErrPanic = errors.New("extension: handler panic")
)
