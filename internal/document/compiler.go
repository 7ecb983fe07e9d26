package document

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/cmdembed/internal/command"
	"github.com/dshills/cmdembed/internal/embedding"
	"github.com/dshills/cmdembed/internal/logging"
)

// Compiler turns source text into pages and renders them.
type Compiler struct {
	dispatchers []*embedding.Dispatcher
	patterns    []*regexp.Regexp
	byEmbedding map[command.Embedding]*embedding.Dispatcher
	mode        string
	logger      *logging.Logger
	now         func() time.Time
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the compiler logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Compiler) {
		c.logger = l
	}
}

// WithMode sets the render mode. The default is embedding.ModeXHTML.
func WithMode(mode string) Option {
	return func(c *Compiler) {
		c.mode = mode
	}
}

// NewCompiler creates a compiler for the given dispatchers. When two
// occurrences start at the same offset the earlier dispatcher wins.
func NewCompiler(dispatchers []*embedding.Dispatcher, opts ...Option) (*Compiler, error) {
	if len(dispatchers) == 0 {
		return nil, fmt.Errorf("document: no dispatchers")
	}

	c := &Compiler{
		byEmbedding: make(map[command.Embedding]*embedding.Dispatcher, len(dispatchers)),
		mode:        embedding.ModeXHTML,
		logger:      logging.Nop(),
		now:         time.Now,
	}
	for _, d := range dispatchers {
		ctx := d.Context()
		if _, dup := c.byEmbedding[ctx.Embedding]; dup {
			return nil, fmt.Errorf("document: duplicate %s dispatcher", ctx.Embedding)
		}
		re, err := regexp.Compile(ctx.Pattern())
		if err != nil {
			return nil, fmt.Errorf("document: %s pattern: %w", ctx.Embedding, err)
		}
		c.dispatchers = append(c.dispatchers, d)
		c.patterns = append(c.patterns, re)
		c.byEmbedding[ctx.Embedding] = d
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("document")
	return c, nil
}

// Compile scans src left to right and prepares every occurrence in order.
func (c *Compiler) Compile(src string) *Page {
	page := &Page{
		Version:    FormatVersion,
		ID:         uuid.NewString(),
		Digest:     Digest(src),
		CompiledAt: c.now().UTC(),
	}

	// next[i] caches the next match of pattern i at or after pos.
	next := make([][]int, len(c.patterns))
	pos := 0
	for pos <= len(src) {
		best := -1
		for i, re := range c.patterns {
			if next[i] == nil || (next[i][0] >= 0 && next[i][0] < pos) {
				next[i] = []int{-1, -1}
				if loc := re.FindStringIndex(src[pos:]); loc != nil {
					next[i] = []int{loc[0] + pos, loc[1] + pos}
				}
			}
			if next[i][0] < 0 {
				continue
			}
			if best < 0 || next[i][0] < next[best][0] {
				best = i
			}
		}
		if best < 0 {
			break
		}

		start, end := next[best][0], next[best][1]
		if start > pos {
			page.Segments = append(page.Segments, Segment{Text: src[pos:start]})
		}
		prepared := c.dispatchers[best].Recognize(src[start:end])
		page.Segments = append(page.Segments, Segment{Command: &prepared})
		pos = end
	}
	if pos < len(src) {
		page.Segments = append(page.Segments, Segment{Text: src[pos:]})
	}

	c.logger.WithFields(map[string]any{
		"page":     page.ID,
		"commands": page.Commands(),
	}).Debug("compiled page")
	return page
}

// Render writes the output of page to w.
func (c *Compiler) Render(w io.Writer, page *Page) error {
	bw := bufio.NewWriter(w)
	for _, seg := range page.Segments {
		if !seg.IsCommand() {
			if _, err := bw.WriteString(seg.Text); err != nil {
				return err
			}
			continue
		}

		p := *seg.Command
		d, ok := c.byEmbedding[p.Embedding]
		if !ok {
			d = c.dispatchers[0]
		}
		if !d.Render(c.mode, bw, p) {
			c.logger.WithField("mode", c.mode).Debug("occurrence not rendered")
		}
	}
	return bw.Flush()
}

// RenderString returns the output of page.
func (c *Compiler) RenderString(page *Page) string {
	var sb strings.Builder
	// strings.Builder never fails.
	_ = c.Render(&sb, page)
	return sb.String()
}
