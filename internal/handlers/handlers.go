// Package handlers registers the built-in commands.
package handlers

import (
	"fmt"
	"time"

	"github.com/dshills/cmdembed/internal/command"
	"github.com/dshills/cmdembed/internal/handlers/abstract"
	"github.com/dshills/cmdembed/internal/handlers/dt"
)

// Registrar accepts built-in handlers. *extension.Registry implements it.
type Registrar interface {
	Register(name string, h command.Handler) error
}

// Config holds settings for the built-in commands.
type Config struct {
	// DTFormats maps a dt variant to "[cssClass|]layout".
	DTFormats map[string]string

	// Location is used for dates without a zone. Nil means time.Local.
	Location *time.Location

	// Now overrides the clock used by dt.
	Now func() time.Time
}

// Register adds all built-in commands to r.
func Register(r Registrar, cfg Config) error {
	var dtOpts []dt.Option
	if cfg.Location != nil {
		dtOpts = append(dtOpts, dt.WithLocation(cfg.Location))
	}
	if cfg.Now != nil {
		dtOpts = append(dtOpts, dt.WithClock(cfg.Now))
	}

	builtins := map[string]command.Handler{
		dt.Name:       dt.New(cfg.DTFormats, dtOpts...),
		abstract.Name: abstract.New(),
	}
	for _, name := range Names() {
		if err := r.Register(name, builtins[name]); err != nil {
			return fmt.Errorf("registering %s: %w", name, err)
		}
	}
	return nil
}

// Names returns the names of the built-in commands.
func Names() []string {
	return []string{abstract.Name, dt.Name}
}
