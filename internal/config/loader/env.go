package loader

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Prefix is the prefix of environment variables read by EnvLoader.
const Prefix = "CMDEMBED_"

// Kind tells EnvLoader how to convert a mapped variable.
type Kind int

const (
	// KindString keeps the value as is.
	KindString Kind = iota
	// KindInt parses a base-10 integer.
	KindInt
	// KindList splits on the OS path list separator.
	KindList
)

// Mapping binds an environment variable to a config path.
type Mapping struct {
	Path string
	Kind Kind
}

// EnvLoader loads configuration from environment variables.
type EnvLoader struct {
	prefix  string
	mapping map[string]Mapping
	lookup  func(string) (string, bool)
	environ func() []string
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "CMDEMBED_").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(),
		lookup:  os.LookupEnv,
		environ: os.Environ,
	}
}

// defaultEnvMapping returns the default environment variable mappings.
func defaultEnvMapping() map[string]Mapping {
	return map[string]Mapping{
		"CMDEMBED_LOG_LEVEL":   {Path: "logging.level"},
		"CMDEMBED_LOG_FILE":    {Path: "logging.file"},
		"CMDEMBED_EXT_PATHS":   {Path: "extensions.paths", Kind: KindList},
		"CMDEMBED_EXT_TIMEOUT": {Path: "extensions.timeout"},
		"CMDEMBED_CACHE_SIZE":  {Path: "cache.size", Kind: KindInt},
		"CMDEMBED_CACHE_DIR":   {Path: "cache.dir"},
		"CMDEMBED_DT_LOCATION": {Path: "dt.location"},
	}
}

// AddMapping adds a custom environment variable mapping.
func (l *EnvLoader) AddMapping(envVar string, m Mapping) {
	if l.mapping == nil {
		l.mapping = make(map[string]Mapping)
	}
	l.mapping[envVar] = m
}

// Load reads environment variables and returns a configuration map.
// Empty values count as set. Prefixed variables without a mapping are
// converted by name, CMDEMBED_CACHE_DIR style to cache.dir.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for env, m := range l.mapping {
		val, ok := l.lookup(env)
		if !ok {
			continue
		}
		v, err := convert(val, m.Kind)
		if err != nil {
			return nil, &EnvError{Name: env, Value: val, Err: err}
		}
		setByPath(config, m.Path, v)
	}

	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		if _, mapped := l.mapping[name]; mapped {
			continue
		}
		setByPath(config, l.envToPath(name), parseValue(value))
	}

	return config, nil
}

// envToPath converts CMDEMBED_SECTION_SOME_KEY to section.some_key.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, l.prefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok {
		return name
	}
	return section + "." + key
}

func convert(s string, kind Kind) (any, error) {
	switch kind {
	case KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	case KindList:
		var out []any
		for _, p := range filepath.SplitList(s) {
			if p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return s, nil
	}
}

// parseValue guesses the type of an unmapped value.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data

	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if next, ok := current[part].(map[string]any); ok {
			current = next
		} else {
			next := make(map[string]any)
			current[part] = next
			current = next
		}
	}

	current[parts[len(parts)-1]] = value
}

// EnvError reports an environment variable that could not be converted.
type EnvError struct {
	Name  string
	Value string
	Err   error
}

func (e *EnvError) Error() string {
	return "invalid value " + strconv.Quote(e.Value) + " for " + e.Name + ": " + e.Err.Error()
}

func (e *EnvError) Unwrap() error {
	return e.Err
}
