package embedding

import (
	"html"
	"io"
	"strings"
	"time"

	"github.com/dshills/cmdembed/internal/callstring"
	"github.com/dshills/cmdembed/internal/command"
	"github.com/dshills/cmdembed/internal/extension"
	"github.com/dshills/cmdembed/internal/logging"
)

// Resolver looks up and invokes command handlers. *extension.Registry
// implements it.
type Resolver interface {
	Resolve(name string) (*extension.Handle, error)
	Dispatch(h *extension.Handle, op extension.Operation, args extension.Args) (any, error)
}

// Dispatcher drives both phases for one embedding context.
type Dispatcher struct {
	ctx      Context
	registry Resolver
	logger   *logging.Logger
	metrics  *Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithMetrics shares a metrics collector between dispatchers.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// New creates a dispatcher for ctx backed by registry.
func New(ctx Context, registry Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		ctx:      ctx,
		registry: registry,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = NewMetrics()
	}
	d.logger = d.logger.WithComponent("embedding").WithField("embedding", ctx.Embedding.String())
	return d
}

// Context returns the embedding context of d.
func (d *Dispatcher) Context() Context {
	return d.ctx
}

// Metrics returns the metrics collector.
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// Recognize runs the prepare phase for one matched occurrence.
func (d *Dispatcher) Recognize(match string) Prepared {
	callString, content, ok := d.ctx.Extract(match)
	if !ok {
		d.metrics.RecordInvalidSyntax()
		d.logger.WithField("match", match).Debug("malformed occurrence")
		return literal(d.ctx.Embedding, InvalidSyntax)
	}

	call, err := callstring.Parse(callString)
	if err != nil {
		d.metrics.RecordInvalidSyntax()
		d.logger.Debug("%v", err)
		return literal(d.ctx.Embedding, InvalidSyntax)
	}

	h, err := d.registry.Resolve(call.Name)
	if err != nil {
		d.metrics.RecordNotFound()
		return literal(d.ctx.Embedding, NotFound)
	}

	start := time.Now()
	value, err := d.registry.Dispatch(h, extension.OpPrepare, extension.Args{
		Embedding: d.ctx.Embedding,
		Params:    call.Params,
		Content:   content,
	})
	d.metrics.RecordPrepare(call.Name, time.Since(start), err != nil)
	if err != nil {
		msg := command.Message(err)
		d.logger.WithField("command", call.Name).Debug("prepare failed: %s", msg)
		return literal(d.ctx.Embedding, ErrorText(msg))
	}

	return Prepared{Command: call.Name, Embedding: d.ctx.Embedding, Payload: value}
}

// Render writes the output for p to sink. It returns false, writing
// nothing, when mode is not handled.
func (d *Dispatcher) Render(mode string, sink io.StringWriter, p Prepared) bool {
	if mode != ModeXHTML {
		return false
	}
	d.write(sink, d.render(p))
	return true
}

// RenderString returns the xhtml output for p.
func (d *Dispatcher) RenderString(p Prepared) string {
	var sb strings.Builder
	d.Render(ModeXHTML, &sb, p)
	return sb.String()
}

func (d *Dispatcher) render(p Prepared) string {
	if p.IsLiteral() {
		return html.EscapeString(p.Text())
	}

	h, err := d.registry.Resolve(p.Command)
	if err != nil {
		d.metrics.RecordNotFound()
		return NotFound
	}

	embedding := p.Embedding
	if embedding == "" {
		embedding = d.ctx.Embedding
	}

	start := time.Now()
	out, err := d.registry.Dispatch(h, extension.OpRender, extension.Args{
		Embedding: embedding,
		Value:     p.Payload,
	})
	d.metrics.RecordRender(p.Command, time.Since(start), err != nil)
	if err != nil {
		msg := command.Message(err)
		d.logger.WithField("command", p.Command).Debug("render failed: %s", msg)
		// Same ##msg## form as a prepare error, escaped like any literal.
		return html.EscapeString(ErrorText(msg))
	}

	text, _ := out.(string)
	return text
}

func (d *Dispatcher) write(sink io.StringWriter, s string) {
	if s == "" {
		return
	}
	if _, err := sink.WriteString(s); err != nil {
		d.logger.Warn("write failed: %v", err)
	}
}
