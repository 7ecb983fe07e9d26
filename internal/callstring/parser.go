package callstring

import "strings"

// Parse parses a call string. It never returns a partial Call: any input that
// does not match the grammar yields a *GrammarError.
func Parse(input string) (Call, error) {
	p := &parser{input: input}
	return p.parseCall()
}

// ValidName reports whether s is a well-formed command or parameter name.
func ValidName(s string) bool {
	if s == "" || !isLetter(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNameChar(s[i]) {
			return false
		}
	}
	return true
}

type parser struct {
	input string
	pos   int
}

func (p *parser) parseCall() (Call, error) {
	name, err := p.parseName()
	if err != nil {
		return Call{}, err
	}
	call := Call{Name: strings.ToLower(name)}

	if p.eof() {
		return call, nil
	}
	if p.peek() != '?' {
		return Call{}, p.fail("expected '?' after command name")
	}
	p.pos++

	var list []Param
	for {
		param, err := p.parseParam()
		if err != nil {
			return Call{}, err
		}
		list = append(list, param)

		if p.eof() {
			break
		}
		if p.peek() != '&' {
			return Call{}, p.fail("expected '&' between parameters")
		}
		p.pos++
	}

	call.Params = NewParams(list...)
	return call, nil
}

func (p *parser) parseName() (string, error) {
	start := p.pos
	if p.eof() || !isLetter(p.peek()) {
		return "", p.fail("command name must start with a letter")
	}
	p.pos++
	for !p.eof() && isNameChar(p.peek()) {
		p.pos++
	}
	return p.input[start:p.pos], nil
}

// parseParam reads "value" or "name=" or "name=value".
func (p *parser) parseParam() (Param, error) {
	start := p.pos
	token := p.scanValue()

	if p.eof() || p.peek() != '=' {
		if token == "" {
			return Param{}, p.fail("empty parameter")
		}
		return Bare(token), nil
	}

	if !ValidName(token) {
		p.pos = start
		return Param{}, p.fail("invalid parameter name")
	}
	p.pos++ // '='
	return Assign(token, p.scanValue()), nil
}

func (p *parser) scanValue() string {
	start := p.pos
	for !p.eof() && isValueChar(p.peek()) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) peek() byte {
	return p.input[p.pos]
}

func (p *parser) fail(reason string) *GrammarError {
	return &GrammarError{Input: p.input, Offset: p.pos, Reason: reason}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNameChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}

func isValueChar(c byte) bool {
	return isNameChar(c) || c == '.' || c == '-'
}
