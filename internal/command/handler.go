// Package command defines the contract between the embedding dispatcher and
// the handlers that implement individual commands.
//
// A handler runs in two phases. Prepare turns the parameters and content of
// one occurrence into a value that the host may cache or persist. Render
// turns that value into replacement text and may run many times for a single
// Prepare. Handlers that do not implement Renderer get the default render,
// which emits the prepared value unchanged.
//
// Handlers that echo caller-supplied text must escape it themselves unless
// their purpose is to emit caller-authored markup.
package command

import (
	"fmt"

	"github.com/dshills/cmdembed/internal/callstring"
)

// Embedding identifies how a command was embedded in the document.
type Embedding string

const (
	// Inline commands produce output that stays inside a paragraph.
	Inline Embedding = "inline"

	// Block commands produce output that sits outside any paragraph.
	Block Embedding = "block"
)

// String returns the embedding name.
func (e Embedding) String() string {
	return string(e)
}

// Request carries the inputs of the prepare phase.
type Request struct {
	Embedding Embedding
	Params    callstring.Params
	Content   string
}

// Handler implements the prepare phase of a command.
type Handler interface {
	// Prepare returns a value to cache for the render phase. A non-nil error
	// is reported as the occurrence's output and the value is ignored.
	Prepare(req Request) (any, error)
}

// Renderer is implemented by handlers whose output must be computed on every
// render rather than cached in full.
type Renderer interface {
	// Render returns the replacement text for a prepared value. An empty
	// string emits nothing. A non-nil error replaces the output.
	Render(embedding Embedding, value any) (string, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(req Request) (any, error)

// Prepare implements Handler.
func (f HandlerFunc) Prepare(req Request) (any, error) {
	if f == nil {
		return nil, Errorf("handler function is nil")
	}
	return f(req)
}

// Funcs builds a handler from separate prepare and render functions.
// A nil render function selects the default render.
type Funcs struct {
	PrepareFunc func(req Request) (any, error)
	RenderFunc  func(embedding Embedding, value any) (string, error)
}

// Prepare implements Handler.
func (f *Funcs) Prepare(req Request) (any, error) {
	if f.PrepareFunc == nil {
		return nil, nil
	}
	return f.PrepareFunc(req)
}

// Render implements Renderer.
func (f *Funcs) Render(embedding Embedding, value any) (string, error) {
	if f.RenderFunc == nil {
		return DefaultRender(embedding, value)
	}
	return f.RenderFunc(embedding, value)
}

// DefaultRender returns the prepared value as text. Nil renders as nothing.
func DefaultRender(_ Embedding, value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}
