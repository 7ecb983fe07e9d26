package document

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dshills/cmdembed/internal/embedding"
)

// FormatVersion is the version of the persisted page format.
const FormatVersion = 1

// Segment is a piece of a compiled page: literal text or one prepared
// command occurrence.
type Segment struct {
	Text    string              `msgpack:"text,omitempty" json:"text,omitempty"`
	Command *embedding.Prepared `msgpack:"command,omitempty" json:"command,omitempty"`
}

// IsCommand reports whether s is a command occurrence.
func (s Segment) IsCommand() bool {
	return s.Command != nil
}

// Page is a compiled document.
type Page struct {
	Version    int       `msgpack:"version" json:"version"`
	ID         string    `msgpack:"id" json:"id"`
	Digest     string    `msgpack:"digest" json:"digest"`
	CompiledAt time.Time `msgpack:"compiled_at" json:"compiled_at"`
	Segments   []Segment `msgpack:"segments" json:"segments"`
}

// Commands returns the number of command occurrences on the page.
func (p *Page) Commands() int {
	n := 0
	for _, s := range p.Segments {
		if s.IsCommand() {
			n++
		}
	}
	return n
}

// Digest returns the content digest used to identify a source document.
func Digest(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}
