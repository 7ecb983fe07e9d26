package app

import (
	"github.com/dshills/cmdembed/internal/config"
	"github.com/dshills/cmdembed/internal/document"
	"github.com/dshills/cmdembed/internal/embedding"
	"github.com/dshills/cmdembed/internal/extension"
	"github.com/dshills/cmdembed/internal/extension/lua"
	"github.com/dshills/cmdembed/internal/handlers"
	"github.com/dshills/cmdembed/internal/logging"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

// newBootstrapper creates a new bootstrapper for the application.
func newBootstrapper(app *Application, opts Options) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      opts,
		initOrder: make([]string, 0, 6),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		init func() error
	}{
		{"config", b.initConfig},
		{"logger", b.initLogger},
		{"registry", b.initRegistry},
		{"handlers", b.initHandlers},
		{"dispatchers", b.initDispatchers},
		{"documents", b.initDocuments},
	}

	for _, step := range steps {
		if err := step.init(); err != nil {
			b.cleanup()
			return err
		}
		b.initOrder = append(b.initOrder, step.name)
	}

	b.app.logger.WithFields(map[string]any{
		"paths":   b.app.config.Extensions.Paths,
		"cache":   b.app.config.Cache.Dir,
		"builtin": handlers.Names(),
	}).Debug("application ready")
	return nil
}

func (b *bootstrapper) initConfig() error {
	opts := []config.Option{config.WithFs(b.app.fs)}
	if b.opts.ConfigPath != "" {
		opts = append(opts, config.WithPath(b.opts.ConfigPath))
	}
	if b.opts.Env != nil {
		opts = append(opts, config.WithEnv(b.opts.Env))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return NewComponentError("config", "load", err)
	}

	if b.opts.LogLevel != "" {
		cfg.Logging.Level = b.opts.LogLevel
	}
	if len(b.opts.ExtensionPaths) > 0 {
		cfg.Extensions.Paths = append([]string(nil), b.opts.ExtensionPaths...)
	}
	if b.opts.CacheDir != "" {
		cfg.Cache.Dir = b.opts.CacheDir
	}

	b.app.config = cfg
	return nil
}

func (b *bootstrapper) initLogger() error {
	lc := b.app.config.LoggerConfig()
	if b.opts.LogOutput != nil {
		lc.Output = b.opts.LogOutput
	}
	b.app.logger = logging.New(lc)
	return nil
}

func (b *bootstrapper) initRegistry() error {
	timeout, err := b.app.config.ExecutionTimeout()
	if err != nil {
		return NewComponentError("registry", "timeout", err)
	}

	b.app.registry = extension.NewRegistry(
		extension.WithFs(b.app.fs),
		extension.WithPaths(b.app.config.Extensions.Paths...),
		extension.WithLogger(b.app.logger),
		extension.WithStateOptions(lua.WithExecutionTimeout(timeout)),
	)
	return nil
}

func (b *bootstrapper) initHandlers() error {
	loc, err := b.app.config.DTLocation()
	if err != nil {
		return NewComponentError("handlers", "location", err)
	}

	err = handlers.Register(b.app.registry, handlers.Config{
		DTFormats: b.app.config.DTFormats(),
		Location:  loc,
	})
	if err != nil {
		return NewComponentError("handlers", "register", err)
	}
	return nil
}

func (b *bootstrapper) initDispatchers() error {
	b.app.metrics = embedding.NewMetrics()
	opts := []embedding.Option{
		embedding.WithLogger(b.app.logger),
		embedding.WithMetrics(b.app.metrics),
	}
	b.app.inline = embedding.New(embedding.InlineContext, b.app.registry, opts...)
	b.app.block = embedding.New(embedding.BlockContext, b.app.registry, opts...)
	return nil
}

func (b *bootstrapper) initDocuments() error {
	compiler, err := document.NewCompiler(
		[]*embedding.Dispatcher{b.app.inline, b.app.block},
		document.WithLogger(b.app.logger),
	)
	if err != nil {
		return NewComponentError("documents", "compiler", err)
	}

	cache, err := document.NewCache(compiler, b.app.config.Cache.Size,
		document.WithCacheFs(b.app.fs),
		document.WithCacheDir(b.app.config.Cache.Dir),
		document.WithCacheKey(b.app.fingerprint()),
		document.WithCacheLogger(b.app.logger),
	)
	if err != nil {
		return NewComponentError("documents", "cache", err)
	}

	b.app.compiler = compiler
	b.app.cache = cache
	return nil
}

// cleanup performs cleanup in reverse initialization order.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		b.cleanupComponent(b.initOrder[i])
	}
}

// cleanupComponent cleans up a single component.
func (b *bootstrapper) cleanupComponent(component string) {
	switch component {
	case "registry":
		if b.app.registry != nil {
			if err := b.app.registry.Close(); err != nil && b.app.logger != nil {
				b.app.logger.Warn("closing registry: %v", err)
			}
		}
	case "logger":
		if b.app.logger != nil {
			_ = b.app.logger.Close()
		}
	case "documents":
		if b.app.cache != nil {
			b.app.cache.Purge()
		}
	}
}
