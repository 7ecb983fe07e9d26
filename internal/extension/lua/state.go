package lua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Re-exported value types so callers do not need to import gopher-lua directly.
type (
	LValue  = lua.LValue
	LString = lua.LString
	LNumber = lua.LNumber
	LBool   = lua.LBool
	LTable  = lua.LTable
)

// LNil is the Lua nil value.
var LNil = lua.LNil

// DefaultExecutionTimeout bounds a single DoString or Call.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps a gopher-lua state for extension execution.
//
// gopher-lua's LState is not goroutine-safe; every method takes the mutex,
// so a State may be shared between goroutines but calls are serialized.
type State struct {
	mu sync.Mutex

	l       *lua.LState
	sandbox *Sandbox
	bridge  *Bridge
	timeout time.Duration
	print   func(string)
	closed  bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the execution timeout for Lua calls.
// Zero disables the timeout.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.timeout = d
	}
}

// WithPrint routes the Lua print function to fn.
func WithPrint(fn func(string)) StateOption {
	return func(s *State) {
		s.print = fn
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	s := &State{
		timeout: DefaultExecutionTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	openSafeLibraries(L)

	s.l = L
	s.bridge = NewBridge(L)
	s.sandbox = NewSandbox(L, s.print)
	s.sandbox.Install()

	return s, nil
}

// openSafeLibraries opens the base, table, string and math libraries only.
// io, os, debug and package are never opened.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// DoString compiles and runs a chunk. name is used in error messages.
func (s *State) DoString(code, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	fn, err := s.l.Load(strings.NewReader(code), name)
	if err != nil {
		return err
	}
	_, err = s.pcall(fn)
	return err
}

// HasFunction reports whether the global name is a function.
func (s *State) HasFunction(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	return s.l.GetGlobal(name).Type() == lua.LTFunction
}

// Call calls a global Lua function with the given arguments.
// Returns an empty slice (not nil) if the function returns no values.
func (s *State) Call(name string, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fn := s.l.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %q (got %s)", ErrNotFunction, name, fn.Type())
	}
	return s.pcall(fn, args...)
}

// Invoke calls a global Lua function with Go arguments and returns Go results.
// Conversion happens while the state is held, so Invoke is safe to use
// from several goroutines.
func (s *State) Invoke(name string, args ...any) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fn := s.l.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %q (got %s)", ErrNotFunction, name, fn.Type())
	}

	largs := make([]lua.LValue, len(args))
	for i, arg := range args {
		largs[i] = s.bridge.ToLuaValue(arg)
	}
	results, err := s.pcall(fn, largs...)
	if err != nil {
		return nil, err
	}

	out := make([]any, len(results))
	for i, r := range results {
		out[i] = s.bridge.ToGoValue(r)
	}
	return out, nil
}

// Bridge returns the value converter bound to this state.
// Bridge methods must only be used from inside calls that hold the state,
// or before the state is shared.
func (s *State) Bridge() *Bridge {
	return s.bridge
}

// Close releases all resources associated with the Lua state.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.l.Close()
	s.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// pcall runs fn with args under the timeout and collects its results.
// The caller holds s.mu.
func (s *State) pcall(fn lua.LValue, args ...lua.LValue) (results []lua.LValue, err error) {
	if s.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.l.SetContext(ctx)
		defer s.l.RemoveContext()
		defer func() {
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
			}
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	top := s.l.GetTop()
	s.l.Push(fn)
	for _, arg := range args {
		s.l.Push(arg)
	}
	if err := s.l.PCall(len(args), lua.MultRet, nil); err != nil {
		s.l.SetTop(top)
		return nil, err
	}

	n := s.l.GetTop() - top
	results = make([]lua.LValue, 0, n)
	for i := 1; i <= n; i++ {
		results = append(results, s.l.Get(top+i))
	}
	s.l.SetTop(top)
	return results, nil
}
