package abstract

import (
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dshills/cmdembed/internal/command"
)

// Name is the command name.
const Name = "abstract"

// ErrInvalidParameters is reported for anything but zero parameters or one
// positive length.
const ErrInvalidParameters = "_INVALID_ABSTRACT_PARAMETERS_"

// Ellipsis is appended to truncated content.
const Ellipsis = "…"

// Handler implements the abstract command.
type Handler struct{}

// New creates the abstract handler.
func New() *Handler {
	return &Handler{}
}

// Prepare implements command.Handler.
func (Handler) Prepare(req command.Request) (any, error) {
	limit, ok := limitOf(req)
	if !ok {
		return nil, &command.Error{Message: ErrInvalidParameters}
	}

	text := Truncate(strings.TrimSpace(req.Content), limit)
	text = html.EscapeString(text)

	if req.Embedding == command.Block {
		return "<div>" + text + "</div>", nil
	}
	return text, nil
}

// Truncate cuts s to limit runes and appends Ellipsis when s is longer.
// A limit of zero or less leaves s unchanged.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}

	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + Ellipsis
		}
		n++
	}
	return s
}

func limitOf(req command.Request) (int, bool) {
	switch req.Params.Len() {
	case 0:
		return 0, true
	case 1:
		p := req.Params.At(0)
		if p.Assigned {
			return 0, false
		}
		n, err := strconv.Atoi(p.Value)
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
