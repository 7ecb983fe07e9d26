package embedding

import (
	"regexp"
	"strings"

	"github.com/dshills/cmdembed/internal/command"
)

// Context describes the delimiters of one embedding context.
type Context struct {
	Open      byte
	Close     byte
	Embedding command.Embedding
}

var (
	// InlineContext is %name?params(content)%.
	InlineContext = Context{Open: '%', Close: '%', Embedding: command.Inline}

	// BlockContext is #name?params(content)#.
	BlockContext = Context{Open: '#', Close: '#', Embedding: command.Block}
)

// Pattern returns the regular expression a lexer uses to find occurrences of
// this context. The parameter part only checks the character set; invalid
// parameter lists are left for the call-string parser to reject. Content may
// span lines.
func (c Context) Pattern() string {
	return `(?s)` + regexp.QuoteMeta(string(c.Open)) +
		`[a-zA-Z][a-zA-Z0-9_]*(?:\?[a-zA-Z0-9_.\-=&]*)?\(.*?\)` +
		regexp.QuoteMeta(string(c.Close))
}

// Extract splits a matched occurrence into its call string and content.
// The call string ends at the first '('. The content runs to the ')' in
// front of the closing delimiter and may itself contain parentheses.
func (c Context) Extract(match string) (callString, content string, ok bool) {
	if len(match) < 4 || match[0] != c.Open {
		return "", "", false
	}
	if match[len(match)-1] != c.Close || match[len(match)-2] != ')' {
		return "", "", false
	}

	body := match[1 : len(match)-2]
	i := strings.IndexByte(body, '(')
	if i < 0 {
		return "", "", false
	}
	return body[:i], body[i+1:], true
}
