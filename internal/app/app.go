// Package app wires configuration, logging, the extension registry, the
// embedding dispatchers and the document pipeline into one application.
package app

import (
	"io"
	"sync"

	"github.com/spf13/afero"

	"github.com/dshills/cmdembed/internal/config"
	"github.com/dshills/cmdembed/internal/config/loader"
	"github.com/dshills/cmdembed/internal/document"
	"github.com/dshills/cmdembed/internal/embedding"
	"github.com/dshills/cmdembed/internal/extension"
	"github.com/dshills/cmdembed/internal/logging"
)

// Application holds the wired components.
type Application struct {
	mu sync.Mutex

	config *config.Config
	logger *logging.Logger

	registry *extension.Registry
	metrics  *embedding.Metrics
	inline   *embedding.Dispatcher
	block    *embedding.Dispatcher

	compiler *document.Compiler
	cache    *document.Cache

	fs     afero.Fs
	opts   Options
	closed bool
}

// Options configures the application. Non-zero fields override the
// corresponding configuration settings.
type Options struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string

	// LogLevel sets the logging verbosity.
	LogLevel string

	// LogOutput receives log output when no log file is configured.
	LogOutput io.Writer

	// ExtensionPaths replace the configured script search paths.
	ExtensionPaths []string

	// CacheDir persists compiled pages.
	CacheDir string

	// Fs is the file system for config, scripts, documents and the cache.
	// Nil means the OS file system.
	Fs afero.Fs

	// Env replaces the environment configuration layer.
	Env loader.Loader
}

// New creates an Application with the given options.
func New(opts Options) (*Application, error) {
	app := &Application{
		fs:   opts.Fs,
		opts: opts,
	}
	if app.fs == nil {
		app.fs = afero.NewOsFs()
	}

	if err := newBootstrapper(app, opts).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Config returns the effective configuration.
func (app *Application) Config() *config.Config { return app.config }

// Logger returns the application logger.
func (app *Application) Logger() *logging.Logger { return app.logger }

// Registry returns the extension registry.
func (app *Application) Registry() *extension.Registry { return app.registry }

// Metrics returns the metrics shared by both dispatchers.
func (app *Application) Metrics() *embedding.Metrics { return app.metrics }

// Inline returns the inline dispatcher.
func (app *Application) Inline() *embedding.Dispatcher { return app.inline }

// Block returns the block dispatcher.
func (app *Application) Block() *embedding.Dispatcher { return app.block }

// Compiler returns the document compiler.
func (app *Application) Compiler() *document.Compiler { return app.compiler }

// Cache returns the compiled page cache.
func (app *Application) Cache() *document.Cache { return app.cache }

// Fs returns the application file system.
func (app *Application) Fs() afero.Fs { return app.fs }

// Dispatcher returns the dispatcher for a delimiter byte, or nil.
func (app *Application) Dispatcher(open byte) *embedding.Dispatcher {
	switch open {
	case embedding.InlineContext.Open:
		return app.inline
	case embedding.BlockContext.Open:
		return app.block
	default:
		return nil
	}
}

// Compile returns the compiled page for the file at path.
func (app *Application) Compile(path string) (*document.Page, error) {
	if app.isClosed() {
		return nil, NewOperationError("compile", path, ErrShutdown)
	}

	data, err := afero.ReadFile(app.fs, path)
	if err != nil {
		return nil, NewOperationError("compile", path, err)
	}
	page, err := app.cache.Get(string(data))
	if err != nil {
		return nil, NewOperationError("compile", path, err)
	}
	return page, nil
}

// RenderFile compiles the file at path and writes its output to w.
func (app *Application) RenderFile(path string, w io.Writer) error {
	page, err := app.Compile(path)
	if err != nil {
		return err
	}
	if err := app.compiler.Render(w, page); err != nil {
		return NewOperationError("render", path, err)
	}
	return nil
}

// Shutdown releases script states and closes the log file.
func (app *Application) Shutdown() {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return
	}
	app.closed = true
	app.mu.Unlock()

	b := newBootstrapper(app, app.opts)
	b.initOrder = []string{"config", "logger", "registry", "handlers", "dispatchers", "documents"}
	b.cleanup()
}

func (app *Application) isClosed() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.closed
}
