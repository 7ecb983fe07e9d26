package app

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/dshills/cmdembed/internal/embedding"
	"github.com/dshills/cmdembed/internal/extension"
)

type mapEnv map[string]any

func (m mapEnv) Load() (map[string]any, error) { return m, nil }

func newTestApp(t *testing.T, fs afero.Fs, opts Options) *Application {
	t.Helper()
	opts.Fs = fs
	if opts.Env == nil {
		opts.Env = mapEnv{}
	}
	if opts.LogOutput == nil {
		opts.LogOutput = io.Discard
	}
	app, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(app.Shutdown)
	return app
}

func writeFile(t *testing.T, fs afero.Fs, path, data string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

func TestNewWiresComponents(t *testing.T) {
	app := newTestApp(t, afero.NewMemMapFs(), Options{})

	if app.Config() == nil || app.Logger() == nil || app.Registry() == nil {
		t.Fatal("core components not initialized")
	}
	if app.Inline().Context() != embedding.InlineContext {
		t.Errorf("Inline().Context() = %v, want inline", app.Inline().Context())
	}
	if app.Block().Context() != embedding.BlockContext {
		t.Errorf("Block().Context() = %v, want block", app.Block().Context())
	}
	if app.Inline().Metrics() != app.Metrics() || app.Block().Metrics() != app.Metrics() {
		t.Error("dispatchers do not share the application metrics")
	}
	if app.Dispatcher('%') != app.Inline() || app.Dispatcher('#') != app.Block() {
		t.Error("Dispatcher() did not map delimiters")
	}
	if app.Dispatcher('!') != nil {
		t.Error("Dispatcher('!') should be nil")
	}

	for _, name := range []string{"dt", "abstract"} {
		h, err := app.Registry().Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%s) error = %v", name, err)
		}
		if h.Source() != extension.SourceBuiltin {
			t.Errorf("Resolve(%s).Source() = %v, want builtin", name, h.Source())
		}
	}
}

func TestOptionsOverrideConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/etc/cmdembed.toml", `
[logging]
level = "warn"

[extensions]
paths = ["/from-file"]

[cache]
size = 7
`)

	app := newTestApp(t, fs, Options{
		ConfigPath:     "/etc/cmdembed.toml",
		LogLevel:       "debug",
		ExtensionPaths: []string{"/scripts"},
		CacheDir:       "/cache",
	})

	cfg := app.Config()
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if len(cfg.Extensions.Paths) != 1 || cfg.Extensions.Paths[0] != "/scripts" {
		t.Errorf("Extensions.Paths = %v, want [/scripts]", cfg.Extensions.Paths)
	}
	if cfg.Cache.Dir != "/cache" {
		t.Errorf("Cache.Dir = %q, want /cache", cfg.Cache.Dir)
	}
	if cfg.Cache.Size != 7 {
		t.Errorf("Cache.Size = %d, want 7", cfg.Cache.Size)
	}
}

func TestNewFailsOnBadConfig(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		file string
	}{
		{name: "missing explicit file", opts: Options{ConfigPath: "/nope.toml"}},
		{name: "bad timeout", opts: Options{ConfigPath: "/c.toml"}, file: "[extensions]\ntimeout = \"soon\"\n"},
		{name: "bad location", opts: Options{ConfigPath: "/c.toml"}, file: "[dt]\nlocation = \"Mars/Olympus\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tt.file != "" {
				writeFile(t, fs, tt.opts.ConfigPath, tt.file)
			}
			tt.opts.Fs = fs
			tt.opts.Env = mapEnv{}
			tt.opts.LogOutput = io.Discard

			_, err := New(tt.opts)
			if err == nil {
				t.Fatal("New() error = nil, want error")
			}
			if !errors.Is(err, ErrInitialization) {
				t.Errorf("New() error = %v, want ErrInitialization", err)
			}
		})
	}
}

func TestRenderFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/ext/upper.lua", `
function prepare(embedding, params, index, content)
  return string.upper(content)
end
`)
	writeFile(t, fs, "/docs/page.txt", "a %upper(hi)% b #upper(x)# c %nope(y)% d")

	app := newTestApp(t, fs, Options{ExtensionPaths: []string{"/ext"}})

	var buf bytes.Buffer
	if err := app.RenderFile("/docs/page.txt", &buf); err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}
	want := "a HI b X c " + embedding.NotFound + " d"
	if buf.String() != want {
		t.Errorf("RenderFile() = %q, want %q", buf.String(), want)
	}

	// Second render comes from the cache.
	buf.Reset()
	if err := app.RenderFile("/docs/page.txt", &buf); err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}
	if buf.String() != want {
		t.Errorf("cached RenderFile() = %q, want %q", buf.String(), want)
	}
	if st := app.Cache().Stats(); st.Hits != 1 {
		t.Errorf("Cache().Stats().Hits = %d, want 1", st.Hits)
	}

	snap := app.Metrics().Snapshot()
	if snap.NotFound != 1 {
		t.Errorf("Metrics NotFound = %d, want 1", snap.NotFound)
	}
}

func TestRenderFileMissing(t *testing.T) {
	app := newTestApp(t, afero.NewMemMapFs(), Options{})

	err := app.RenderFile("/missing.txt", io.Discard)
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("RenderFile() error = %v, want *OperationError", err)
	}
	if opErr.Target != "/missing.txt" {
		t.Errorf("Target = %q, want /missing.txt", opErr.Target)
	}
}

func TestShutdown(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/doc.txt", "plain")
	app := newTestApp(t, fs, Options{})

	app.Shutdown()
	app.Shutdown()

	err := app.RenderFile("/doc.txt", io.Discard)
	if !errors.Is(err, ErrShutdown) {
		t.Errorf("RenderFile() after Shutdown error = %v, want ErrShutdown", err)
	}
	if !strings.Contains(err.Error(), "/doc.txt") {
		t.Errorf("error %q does not name the file", err)
	}
}

func TestPersistedPagesFollowConfiguration(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/doc.txt", "x %dt?v(2024-03-05)% y %hello(z)%")

	render := func(format string) string {
		t.Helper()
		writeFile(t, fs, "/c.toml", "[dt]\nlocation = \"UTC\"\n\n[dt.formats]\nv = \""+format+"\"\n")
		app := newTestApp(t, fs, Options{
			ConfigPath:     "/c.toml",
			ExtensionPaths: []string{"/ext"},
			CacheDir:       "/cache",
		})
		defer app.Shutdown()

		var buf bytes.Buffer
		if err := app.RenderFile("/doc.txt", &buf); err != nil {
			t.Fatalf("RenderFile() error = %v", err)
		}
		return buf.String()
	}

	if got, want := render("2006"), "x 2024 y "+embedding.NotFound; got != want {
		t.Fatalf("first render = %q, want %q", got, want)
	}
	if got, want := render("2006"), "x 2024 y "+embedding.NotFound; got != want {
		t.Errorf("unchanged config render = %q, want %q", got, want)
	}
	if got, want := render("01/02"), "x 03/05 y "+embedding.NotFound; got != want {
		t.Errorf("changed format render = %q, want %q", got, want)
	}

	writeFile(t, fs, "/ext/hello.lua", `function prepare(e, p, i, c) return "hi " .. c end`)
	if got, want := render("01/02"), "x 03/05 y hi z"; got != want {
		t.Errorf("new script render = %q, want %q", got, want)
	}
}

func TestFingerprint(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/ext/a.lua", `function prepare() return "a" end`)
	app := newTestApp(t, fs, Options{ExtensionPaths: []string{"/ext"}})

	base := app.fingerprint()
	if base != app.fingerprint() {
		t.Fatal("fingerprint() is not stable")
	}

	writeFile(t, fs, "/ext/a.lua", `function prepare() return "b" end`)
	edited := app.fingerprint()
	if edited == base {
		t.Error("fingerprint() ignores script contents")
	}

	app.Config().DT.Location = "UTC"
	if app.fingerprint() == edited {
		t.Error("fingerprint() ignores dt location")
	}
}
