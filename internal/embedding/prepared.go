package embedding

import (
	"fmt"

	"github.com/dshills/cmdembed/internal/command"
)

// Literal is the command marker of a Prepared value whose payload is text to
// emit as-is (escaped) instead of a command result.
const Literal = "="

// Sentinels substituted into output.
const (
	NotFound      = "##_COMMAND_NOT_FOUND_##"
	InvalidSyntax = "##_INVALID_COMMAND_SYNTAX_##"
)

// ModeXHTML is the only render mode commands produce output for.
const ModeXHTML = "xhtml"

// ErrorText wraps a handler error message for substitution into output.
func ErrorText(msg string) string {
	return "##" + msg + "##"
}

// Prepared is the recognized stage of one occurrence. Command is the
// lowercase command name, or Literal when Payload is a diagnostic string.
type Prepared struct {
	Command   string            `msgpack:"command" json:"command"`
	Embedding command.Embedding `msgpack:"embedding" json:"embedding"`
	Payload   any               `msgpack:"payload" json:"payload"`
}

// IsLiteral reports whether p carries literal text rather than a command result.
func (p Prepared) IsLiteral() bool {
	return p.Command == Literal
}

// Text returns the payload of a literal Prepared value.
func (p Prepared) Text() string {
	switch v := p.Payload.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func literal(e command.Embedding, text string) Prepared {
	return Prepared{Command: Literal, Embedding: e, Payload: text}
}
