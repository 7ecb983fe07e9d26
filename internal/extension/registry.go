package extension

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/dshills/cmdembed/internal/callstring"
	"github.com/dshills/cmdembed/internal/command"
	"github.com/dshills/cmdembed/internal/extension/lua"
	"github.com/dshills/cmdembed/internal/logging"
)

// ScriptExt is the file extension of script handlers.
const ScriptExt = ".lua"

// Source tells where a handler implementation came from.
type Source int

const (
	// SourceBuiltin is a handler registered from Go.
	SourceBuiltin Source = iota
	// SourceScript is a handler loaded from a Lua file.
	SourceScript
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceBuiltin:
		return "builtin"
	case SourceScript:
		return "script"
	default:
		return "unknown"
	}
}

// Handle identifies a loaded handler. Handles are created once per name and
// never change afterwards.
type Handle struct {
	name   string
	source Source
	path   string
	impl   command.Handler
}

// Name returns the lowercase command name.
func (h *Handle) Name() string { return h.name }

// Source returns where the handler came from.
func (h *Handle) Source() Source { return h.source }

// Path returns the script path, or "" for built-in handlers.
func (h *Handle) Path() string { return h.path }

// Registry resolves command names to handlers and memoizes dispatch targets.
type Registry struct {
	mu       sync.RWMutex
	builtins map[string]command.Handler
	handles  map[string]*Handle // nil value records a negative result
	methods  map[methodKey]Method
	scripts  []*scriptHandler

	group singleflight.Group

	fs        afero.Fs
	paths     []string
	logger    *logging.Logger
	stateOpts []lua.StateOption
}

// Option configures a Registry.
type Option func(*Registry)

// WithFs sets the filesystem scripts are looked up in.
func WithFs(fs afero.Fs) Option {
	return func(r *Registry) {
		r.fs = fs
	}
}

// WithPaths sets the script search paths, checked in order.
func WithPaths(paths ...string) Option {
	return func(r *Registry) {
		r.paths = append([]string(nil), paths...)
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithStateOptions sets options for the Lua state of every script.
func WithStateOptions(opts ...lua.StateOption) Option {
	return func(r *Registry) {
		r.stateOpts = append(r.stateOpts, opts...)
	}
}

// NewRegistry creates a registry. Without WithFs it reads the OS filesystem.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		builtins: make(map[string]command.Handler),
		handles:  make(map[string]*Handle),
		methods:  make(map[methodKey]Method),
		fs:       afero.NewOsFs(),
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("extension")
	return r
}

// ScriptPath returns the path a script handler for name is expected at.
func ScriptPath(dir, name string) string {
	return filepath.Join(dir, strings.ToLower(name)+ScriptExt)
}

// Register adds a built-in handler. Names are case-insensitive.
// A name must be registered before it is first resolved.
func (r *Registry) Register(name string, h command.Handler) error {
	if h == nil {
		return fmt.Errorf("%w: nil handler for %q", ErrInvalidName, name)
	}
	if !callstring.ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	name = strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.builtins[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, name)
	}
	if _, ok := r.handles[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyResolved, name)
	}
	r.builtins[name] = h
	return nil
}

// Resolve returns the handle for a command name, loading it on first use.
// Unknown names return an error matching ErrNotFound; the negative result is
// remembered and the filesystem is not consulted again for that name.
func (r *Registry) Resolve(name string) (*Handle, error) {
	name = strings.ToLower(name)
	if !callstring.ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	if h, ok := r.cached(name); ok {
		if h == nil {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return h, nil
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		if h, ok := r.cached(name); ok {
			return h, nil
		}

		h, err := r.load(name)

		r.mu.Lock()
		r.handles[name] = h
		r.mu.Unlock()

		switch {
		case err != nil:
			r.logger.WithField("command", name).Warn("extension failed to load: %v", err)
		case h == nil:
			log := r.logger.WithField("command", name)
			if s := r.Suggest(name); len(s) > 0 {
				log = log.WithField("suggestions", strings.Join(s, ","))
			}
			log.Debug("unknown command")
		default:
			r.logger.WithFields(map[string]any{
				"command": name,
				"source":  h.source.String(),
				"path":    h.path,
			}).Info("extension loaded")
		}
		return h, err
	})

	h, _ := v.(*Handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrNotFound, name, err)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return h, nil
}

// Exists reports whether name resolves to a handler.
func (r *Registry) Exists(name string) bool {
	_, err := r.Resolve(name)
	return err == nil
}

func (r *Registry) cached(name string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[name]
	return h, ok
}

// load finds the implementation for name. It returns nil, nil when no
// implementation exists.
func (r *Registry) load(name string) (*Handle, error) {
	r.mu.RLock()
	impl, ok := r.builtins[name]
	r.mu.RUnlock()
	if ok {
		return &Handle{name: name, source: SourceBuiltin, impl: impl}, nil
	}

	for _, dir := range r.paths {
		path := ScriptPath(dir, name)
		exists, err := afero.Exists(r.fs, path)
		if err != nil {
			r.logger.WithField("path", path).Debug("stat failed: %v", err)
			continue
		}
		if !exists {
			continue
		}

		sh, err := loadScript(r.fs, path, r.scriptStateOptions(name)...)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.scripts = append(r.scripts, sh)
		r.mu.Unlock()
		return &Handle{name: name, source: SourceScript, path: path, impl: sh}, nil
	}
	return nil, nil
}

func (r *Registry) scriptStateOptions(name string) []lua.StateOption {
	log := r.logger.WithField("command", name)
	opts := make([]lua.StateOption, 0, len(r.stateOpts)+1)
	opts = append(opts, lua.WithPrint(func(s string) { log.Debug("%s", s) }))
	return append(opts, r.stateOpts...)
}

// Available returns the names of all built-in handlers and of all scripts in
// the search paths, sorted and deduplicated.
func (r *Registry) Available() []string {
	seen := make(map[string]bool)

	r.mu.RLock()
	for name := range r.builtins {
		seen[name] = true
	}
	r.mu.RUnlock()

	for _, dir := range r.paths {
		entries, err := afero.ReadDir(r.fs, dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ScriptExt {
				continue
			}
			name := strings.TrimSuffix(e.Name(), ScriptExt)
			if name == strings.ToLower(name) && callstring.ValidName(name) {
				seen[name] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Suggest returns up to three available names close to name.
func (r *Registry) Suggest(name string) []string {
	ranks := fuzzy.RankFindFold(name, r.Available())
	sort.Sort(ranks)

	var out []string
	for _, rank := range ranks {
		if rank.Target == name {
			continue
		}
		out = append(out, rank.Target)
		if len(out) == 3 {
			break
		}
	}
	return out
}

// Close releases the Lua states of all loaded scripts.
func (r *Registry) Close() error {
	r.mu.Lock()
	scripts := r.scripts
	r.scripts = nil
	r.mu.Unlock()

	var firstErr error
	for _, s := range scripts {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
