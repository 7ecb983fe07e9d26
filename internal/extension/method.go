package extension

import (
	"fmt"

	"github.com/dshills/cmdembed/internal/callstring"
	"github.com/dshills/cmdembed/internal/command"
)

// Operation names a handler phase.
type Operation string

const (
	// OpPrepare runs Handler.Prepare.
	OpPrepare Operation = "prepare"
	// OpRender runs Renderer.Render, or the default render.
	OpRender Operation = "render"
)

// Args are the inputs of a dispatch. Prepare reads Params and Content;
// render reads Value.
type Args struct {
	Embedding command.Embedding
	Params    callstring.Params
	Content   string
	Value     any
}

// Method is a dispatch target bound to one handler and one operation.
// Render targets always return a string value.
type Method func(args Args) (any, error)

type methodKey struct {
	command string
	op      Operation
}

// Method returns the memoized dispatch target for (h, op), binding it on
// first use. The same function is returned for every later call.
func (r *Registry) Method(h *Handle, op Operation) (Method, error) {
	key := methodKey{command: h.name, op: op}

	r.mu.RLock()
	m, ok := r.methods[key]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.methods[key]; ok {
		return m, nil
	}
	m, err := bind(h, op)
	if err != nil {
		return nil, err
	}
	r.methods[key] = m
	return m, nil
}

// Dispatch invokes operation op of the handler behind h.
func (r *Registry) Dispatch(h *Handle, op Operation, args Args) (any, error) {
	m, err := r.Method(h, op)
	if err != nil {
		return nil, err
	}
	return m(args)
}

func bind(h *Handle, op Operation) (Method, error) {
	impl := h.impl

	var m Method
	switch op {
	case OpPrepare:
		m = func(a Args) (any, error) {
			return impl.Prepare(command.Request{
				Embedding: a.Embedding,
				Params:    a.Params,
				Content:   a.Content,
			})
		}
	case OpRender:
		render := command.DefaultRender
		if rr, ok := impl.(command.Renderer); ok {
			render = rr.Render
		}
		m = func(a Args) (any, error) {
			return render(a.Embedding, a.Value)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}

	return recoverPanics(h.name, op, m), nil
}

// recoverPanics turns a handler panic into an error.
func recoverPanics(name string, op Operation, m Method) Method {
	return func(a Args) (v any, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				v = nil
				err = fmt.Errorf("%w: %s.%s: %v", ErrPanic, name, op, rec)
			}
		}()
		return m(a)
	}
}
