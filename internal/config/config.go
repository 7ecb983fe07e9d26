package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/dshills/cmdembed/internal/config/loader"
	"github.com/dshills/cmdembed/internal/logging"
)

// DefaultPath is the configuration file read when no path is given.
const DefaultPath = "cmdembed.toml"

// DefaultFormatKey is the dt.formats key of the plain dt call.
const DefaultFormatKey = "default"

// maxIncludeDepth limits @include nesting.
const maxIncludeDepth = 8

// Config holds all settings.
type Config struct {
	Logging    LoggingConfig    `toml:"logging"`
	Extensions ExtensionsConfig `toml:"extensions"`
	Cache      CacheConfig      `toml:"cache"`
	DT         DTConfig         `toml:"dt"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
}

// ExtensionsConfig configures script extension discovery.
type ExtensionsConfig struct {
	// Paths are searched in order for <name>.lua.
	Paths []string `toml:"paths"`
	// Timeout bounds one script call, as a Go duration string.
	Timeout string `toml:"timeout"`
}

// CacheConfig configures the compiled page cache.
type CacheConfig struct {
	// Size is the number of pages kept in memory.
	Size int `toml:"size"`
	// Dir, when set, persists compiled pages on disk.
	Dir string `toml:"dir"`
}

// DTConfig configures the dt command.
type DTConfig struct {
	// Formats maps a variant to "[cssClass|]layout". The key "default" is
	// the plain call.
	Formats map[string]string `toml:"formats"`
	// Location is an IANA zone name, "Local" or "UTC".
	Location string `toml:"location"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
		Extensions: ExtensionsConfig{
			Paths:   []string{"ext"},
			Timeout: "5s",
		},
		Cache: CacheConfig{
			Size: 128,
		},
		DT: DTConfig{
			Formats: map[string]string{
				DefaultFormatKey: "2006-01-02 15:04",
				"date":           "2006-01-02",
				"long":           "dt-long|Monday, January 2, 2006 15:04",
			},
			Location: "Local",
		},
	}
}

// Option configures Load.
type Option func(*options)

type options struct {
	fs       afero.Fs
	path     string
	required bool
	env      loader.Loader
}

// WithFs sets the file system the config file is read from.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithPath sets the config file. A missing explicit file is an error.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
		o.required = path != ""
	}
}

// WithEnv replaces the environment layer. Nil disables it.
func WithEnv(l loader.Loader) Option {
	return func(o *options) {
		o.env = l
	}
}

// Load merges defaults, the config file and the environment.
func Load(opts ...Option) (*Config, error) {
	o := &options{
		fs:   loader.DefaultFS(),
		path: DefaultPath,
		env:  loader.NewEnvLoader(loader.Prefix),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.path == "" {
		o.path = DefaultPath
	}

	merged, err := toMap(Default())
	if err != nil {
		return nil, err
	}

	if o.required {
		exists, err := afero.Exists(o.fs, o.path)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("config file %s: %w", o.path, afero.ErrFileNotFound)
		}
	}
	file, err := loader.NewTOMLLoaderWithFS(o.fs, o.path).LoadWithIncludes(o.path, maxIncludeDepth)
	if err != nil {
		return nil, err
	}
	merged = loader.DeepMerge(merged, file)

	if o.env != nil {
		env, err := o.env.Load()
		if err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, env)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be checked by decoding.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.ExecutionTimeout(); err != nil {
		errs = append(errs, &ValidationError{Path: "extensions.timeout", Value: c.Extensions.Timeout, Message: err.Error()})
	}
	if c.Cache.Size < 0 {
		errs = append(errs, &ValidationError{Path: "cache.size", Value: c.Cache.Size, Message: "must not be negative"})
	}
	if _, err := c.DTLocation(); err != nil {
		errs = append(errs, &ValidationError{Path: "dt.location", Value: c.DT.Location, Message: err.Error()})
	}
	if c.Logging.MaxSizeMB < 0 {
		errs = append(errs, &ValidationError{Path: "logging.max_size_mb", Value: c.Logging.MaxSizeMB, Message: "must not be negative"})
	}

	return errors.Join(errs...)
}

// ExecutionTimeout parses Extensions.Timeout. Empty means no timeout.
func (c *Config) ExecutionTimeout() (time.Duration, error) {
	if c.Extensions.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Extensions.Timeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("must not be negative")
	}
	return d, nil
}

// DTLocation resolves DT.Location.
func (c *Config) DTLocation() (*time.Location, error) {
	if c.DT.Location == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.DT.Location)
}

// DTFormats returns the dt formats keyed the way the dt command expects:
// the default format under "".
func (c *Config) DTFormats() map[string]string {
	out := make(map[string]string, len(c.DT.Formats))
	for k, v := range c.DT.Formats {
		if k == DefaultFormatKey {
			k = ""
		}
		out[k] = v
	}
	return out
}

// LoggerConfig returns the logger configuration.
func (c *Config) LoggerConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(c.Logging.Level)
	lc.File = c.Logging.File
	if c.Logging.MaxSizeMB > 0 {
		lc.MaxSizeMB = c.Logging.MaxSizeMB
	}
	return lc
}

func toMap(c *Config) (map[string]any, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding defaults: %w", err)
	}
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding defaults: %w", err)
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}
