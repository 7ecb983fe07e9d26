package callstring

import (
	"errors"
	"fmt"
)

// ErrGrammar is matched by every error returned from Parse.
var ErrGrammar = errors.New("callstring: invalid call string")

// GrammarError describes where a call string stopped matching the grammar.
type GrammarError struct {
	Input  string
	Offset int
	Reason string
}

// Error implements the error interface.
func (e *GrammarError) Error() string {
	return fmt.Sprintf("callstring: %s at offset %d in %q", e.Reason, e.Offset, e.Input)
}

// Is reports whether target is ErrGrammar.
func (e *GrammarError) Is(target error) bool {
	return target == ErrGrammar
}
