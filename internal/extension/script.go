package extension

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/dshills/cmdembed/internal/callstring"
	"github.com/dshills/cmdembed/internal/command"
	"github.com/dshills/cmdembed/internal/extension/lua"
)

// scriptHandler runs a command implemented in Lua.
type scriptHandler struct {
	path      string
	state     *lua.State
	hasRender bool
}

func loadScript(fs afero.Fs, path string, opts ...lua.StateOption) (*scriptHandler, error) {
	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	state, err := lua.NewState(opts...)
	if err != nil {
		return nil, err
	}
	if err := state.DoString(string(src), path); err != nil {
		state.Close()
		return nil, fmt.Errorf("running %s: %w", path, err)
	}
	if !state.HasFunction("prepare") {
		state.Close()
		return nil, fmt.Errorf("%w: %s", ErrNoPrepare, path)
	}

	return &scriptHandler{
		path:      path,
		state:     state,
		hasRender: state.HasFunction("render"),
	}, nil
}

// Prepare implements command.Handler.
func (s *scriptHandler) Prepare(req command.Request) (any, error) {
	results, err := s.state.Invoke("prepare",
		req.Embedding.String(),
		scriptParams(req.Params),
		req.Params.Index(),
		req.Content,
	)
	if err != nil {
		return nil, &command.Error{Message: err.Error()}
	}
	return scriptResult(results)
}

// Render implements command.Renderer.
func (s *scriptHandler) Render(embedding command.Embedding, value any) (string, error) {
	if !s.hasRender {
		return command.DefaultRender(embedding, value)
	}

	results, err := s.state.Invoke("render", embedding.String(), value)
	if err != nil {
		return "", &command.Error{Message: err.Error()}
	}
	text, err := scriptResult(results)
	if err != nil {
		return "", err
	}
	return command.DefaultRender(embedding, text)
}

func (s *scriptHandler) Close() error {
	return s.state.Close()
}

// scriptParams converts the ordered parameter list to its Lua shape: bare
// values are strings, assignments are {name, value} pairs.
func scriptParams(p callstring.Params) []any {
	out := make([]any, p.Len())
	for i := 0; i < p.Len(); i++ {
		param := p.At(i)
		if param.Assigned {
			out[i] = []any{param.Name, param.Value}
		} else {
			out[i] = param.Value
		}
	}
	return out
}

// scriptResult interprets "return value, errmsg".
func scriptResult(results []any) (any, error) {
	var value any
	if len(results) > 0 {
		value = results[0]
	}
	if len(results) > 1 && results[1] != nil {
		msg, ok := results[1].(string)
		if !ok {
			msg = fmt.Sprint(results[1])
		}
		if msg != "" {
			return nil, &command.Error{Message: msg}
		}
	}
	return value, nil
}
