package extension

import (
	"errors"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/dshills/cmdembed/internal/callstring"
	"github.com/dshills/cmdembed/internal/command"
)

// countingFs records how often a path is looked up.
type countingFs struct {
	afero.Fs
	stats atomic.Int64
}

func (c *countingFs) Stat(name string) (os.FileInfo, error) {
	c.stats.Add(1)
	return c.Fs.Stat(name)
}

func echoHandler() command.Handler {
	return command.HandlerFunc(func(req command.Request) (any, error) {
		return req.Content, nil
	})
}

func TestRegistryResolveBuiltin(t *testing.T) {
	r := NewRegistry(WithFs(afero.NewMemMapFs()))

	if err := r.Register("Echo", echoHandler()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	h, err := r.Resolve("ECHO")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if h.Name() != "echo" {
		t.Errorf("Name() = %q, want %q", h.Name(), "echo")
	}
	if h.Source() != SourceBuiltin {
		t.Errorf("Source() = %v, want builtin", h.Source())
	}

	h2, err := r.Resolve("echo")
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	if h != h2 {
		t.Error("Resolve() returned a different handle for the same name")
	}
}

func TestRegistryRegisterErrors(t *testing.T) {
	r := NewRegistry(WithFs(afero.NewMemMapFs()))

	if err := r.Register("1bad", echoHandler()); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Register(1bad) error = %v, want ErrInvalidName", err)
	}
	if err := r.Register("x", nil); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Register(nil) error = %v, want ErrInvalidName", err)
	}
	if err := r.Register("dup", echoHandler()); err != nil {
		t.Fatalf("Register(dup) error = %v", err)
	}
	if err := r.Register("DUP", echoHandler()); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("Register(DUP) error = %v, want ErrAlreadyRegistered", err)
	}

	if _, err := r.Resolve("late"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Resolve(late) error = %v, want ErrNotFound", err)
	}
	if err := r.Register("late", echoHandler()); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("Register(late) error = %v, want ErrAlreadyResolved", err)
	}
}

func TestRegistryNegativeResultIsCached(t *testing.T) {
	fs := &countingFs{Fs: afero.NewMemMapFs()}
	r := NewRegistry(WithFs(fs), WithPaths("/ext", "/more"))

	for i := 0; i < 5; i++ {
		if _, err := r.Resolve("zzz"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Resolve(zzz) error = %v, want ErrNotFound", err)
		}
	}

	// One Stat per search path, only on the first resolution.
	if got := fs.stats.Load(); got != 2 {
		t.Errorf("Stat called %d times, want 2", got)
	}

	// A script created later stays invisible for this registry.
	if err := afero.WriteFile(fs.Fs, "/ext/zzz.lua", []byte(`function prepare() return "" end`), 0o644); err != nil {
		t.Fatal(err)
	}
	if r.Exists("zzz") {
		t.Error("Exists(zzz) = true after negative result was cached")
	}
}

func TestRegistryInvalidNameNeverTouchesFs(t *testing.T) {
	fs := &countingFs{Fs: afero.NewMemMapFs()}
	r := NewRegistry(WithFs(fs), WithPaths("/ext"))

	for _, name := range []string{"", "../etc/passwd", "a/b", "1x"} {
		if _, err := r.Resolve(name); !errors.Is(err, ErrNotFound) {
			t.Errorf("Resolve(%q) error = %v, want ErrNotFound", name, err)
		}
	}
	if got := fs.stats.Load(); got != 0 {
		t.Errorf("Stat called %d times for invalid names, want 0", got)
	}
}

func TestRegistryBuiltinShadowsScript(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, "/ext/echo.lua", `function prepare(e, p, i, c) return "script" end`)

	r := NewRegistry(WithFs(fs), WithPaths("/ext"))
	if err := r.Register("echo", echoHandler()); err != nil {
		t.Fatal(err)
	}

	h, err := r.Resolve("echo")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if h.Source() != SourceBuiltin {
		t.Errorf("Source() = %v, want builtin", h.Source())
	}
}

func TestRegistryConcurrentResolve(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, "/ext/slow.lua", `function prepare(e, p, i, c) return c end`)
	r := NewRegistry(WithFs(fs), WithPaths("/ext"))
	defer r.Close()

	const n = 32
	handles := make([]*Handle, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := r.Resolve("slow")
			if err != nil {
				t.Errorf("Resolve() error = %v", err)
				return
			}
			handles[i] = h
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if handles[i] != handles[0] {
			t.Fatalf("goroutine %d got a different handle", i)
		}
	}
	if len(r.scripts) != 1 {
		t.Errorf("loaded %d scripts, want 1", len(r.scripts))
	}
}

func TestRegistryMethodMemoized(t *testing.T) {
	r := NewRegistry(WithFs(afero.NewMemMapFs()))
	if err := r.Register("echo", echoHandler()); err != nil {
		t.Fatal(err)
	}
	h, err := r.Resolve("echo")
	if err != nil {
		t.Fatal(err)
	}

	m1, err := r.Method(h, OpPrepare)
	if err != nil {
		t.Fatalf("Method() error = %v", err)
	}
	m2, err := r.Method(h, OpPrepare)
	if err != nil {
		t.Fatalf("Method() error = %v", err)
	}
	if reflect.ValueOf(m1).Pointer() != reflect.ValueOf(m2).Pointer() {
		t.Error("Method() built a new target for the same (command, operation)")
	}
	if len(r.methods) != 1 {
		t.Errorf("methods cache has %d entries, want 1", len(r.methods))
	}

	if _, err := r.Method(h, OpRender); err != nil {
		t.Fatalf("Method(render) error = %v", err)
	}
	if len(r.methods) != 2 {
		t.Errorf("methods cache has %d entries, want 2", len(r.methods))
	}

	if _, err := r.Method(h, Operation("destroy")); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("Method(destroy) error = %v, want ErrUnknownOperation", err)
	}
}

func TestRegistryDispatch(t *testing.T) {
	var seen command.Request
	handler := &command.Funcs{
		PrepareFunc: func(req command.Request) (any, error) {
			seen = req
			return "prepared:" + req.Content, nil
		},
		RenderFunc: func(e command.Embedding, v any) (string, error) {
			return string(e) + "|" + v.(string), nil
		},
	}

	r := NewRegistry(WithFs(afero.NewMemMapFs()))
	if err := r.Register("fn", handler); err != nil {
		t.Fatal(err)
	}
	h, err := r.Resolve("fn")
	if err != nil {
		t.Fatal(err)
	}

	call, err := callstring.Parse("fn?a&b=1")
	if err != nil {
		t.Fatal(err)
	}

	v, err := r.Dispatch(h, OpPrepare, Args{Embedding: command.Block, Params: call.Params, Content: "body"})
	if err != nil {
		t.Fatalf("Dispatch(prepare) error = %v", err)
	}
	if v != "prepared:body" {
		t.Errorf("Dispatch(prepare) = %v, want prepared:body", v)
	}
	if seen.Embedding != command.Block {
		t.Errorf("handler saw embedding %q, want block", seen.Embedding)
	}
	if diff := cmp.Diff(map[string]string{"a": "", "b": "1"}, seen.Params.Index()); diff != "" {
		t.Errorf("handler params mismatch (-want +got):\n%s", diff)
	}

	out, err := r.Dispatch(h, OpRender, Args{Embedding: command.Block, Value: v})
	if err != nil {
		t.Fatalf("Dispatch(render) error = %v", err)
	}
	if out != "block|prepared:body" {
		t.Errorf("Dispatch(render) = %v, want block|prepared:body", out)
	}
}

func TestRegistryDefaultRender(t *testing.T) {
	r := NewRegistry(WithFs(afero.NewMemMapFs()))
	if err := r.Register("echo", echoHandler()); err != nil {
		t.Fatal(err)
	}
	h, _ := r.Resolve("echo")

	out, err := r.Dispatch(h, OpRender, Args{Embedding: command.Inline, Value: "<b>x</b>"})
	if err != nil {
		t.Fatalf("Dispatch(render) error = %v", err)
	}
	if out != "<b>x</b>" {
		t.Errorf("Dispatch(render) = %v, want value unchanged", out)
	}
}

func TestRegistryRecoversPanics(t *testing.T) {
	r := NewRegistry(WithFs(afero.NewMemMapFs()))
	err := r.Register("bad", command.HandlerFunc(func(command.Request) (any, error) {
		panic("oops")
	}))
	if err != nil {
		t.Fatal(err)
	}
	h, _ := r.Resolve("bad")

	_, err = r.Dispatch(h, OpPrepare, Args{})
	if !errors.Is(err, ErrPanic) {
		t.Errorf("Dispatch() error = %v, want ErrPanic", err)
	}
}

func TestRegistryAvailableAndSuggest(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, "/ext/upper.lua", `function prepare() return "" end`)
	writeScript(t, fs, "/ext/Mixed.lua", `function prepare() return "" end`)
	writeScript(t, fs, "/ext/notes.txt", `ignored`)
	writeScript(t, fs, "/other/upper.lua", `function prepare() return "" end`)
	writeScript(t, fs, "/other/lower.lua", `function prepare() return "" end`)

	r := NewRegistry(WithFs(fs), WithPaths("/ext", "/other", "/missing"))
	if err := r.Register("dt", echoHandler()); err != nil {
		t.Fatal(err)
	}

	want := []string{"dt", "lower", "upper"}
	if diff := cmp.Diff(want, r.Available()); diff != "" {
		t.Errorf("Available() mismatch (-want +got):\n%s", diff)
	}

	got := r.Suggest("up")
	if len(got) == 0 || got[0] != "upper" {
		t.Errorf("Suggest(up) = %v, want [upper ...]", got)
	}
}

func TestScriptPath(t *testing.T) {
	if got := ScriptPath("/ext", "Upper"); got != "/ext/upper.lua" {
		t.Errorf("ScriptPath() = %q, want /ext/upper.lua", got)
	}
}

func writeScript(t *testing.T, fs afero.Fs, path, src string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}
