// Package loader reads configuration sources into generic maps.
//
// TOML files and environment variables are loaded into map[string]any trees
// that are merged in precedence order before being decoded into typed
// configuration.
package loader

import (
	"github.com/spf13/afero"
)

// Loader is the interface for configuration loaders.
type Loader interface {
	// Load reads configuration from the source and returns a map.
	// Returns nil, nil if the source doesn't exist (not an error).
	Load() (map[string]any, error)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() afero.Fs {
	return afero.NewOsFs()
}
