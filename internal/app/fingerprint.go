package app

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/dshills/cmdembed/internal/document"
	"github.com/dshills/cmdembed/internal/extension"
	"github.com/dshills/cmdembed/internal/handlers"
)

// fingerprint digests everything besides the source that prepared payloads
// depend on. Persisted pages are keyed by it.
func (app *Application) fingerprint() string {
	var sb strings.Builder

	formats := app.config.DTFormats()
	keys := make([]string, 0, len(formats))
	for k := range formats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "dt.format %q=%q\n", k, formats[k])
	}
	fmt.Fprintf(&sb, "dt.location %q\n", app.config.DT.Location)

	for _, name := range handlers.Names() {
		fmt.Fprintf(&sb, "builtin %s\n", name)
	}

	for _, dir := range app.config.Extensions.Paths {
		fmt.Fprintf(&sb, "path %q\n", dir)
		entries, err := afero.ReadDir(app.fs, dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != extension.ScriptExt {
				continue
			}
			path := filepath.Join(dir, e.Name())
			data, err := afero.ReadFile(app.fs, path)
			if err != nil {
				fmt.Fprintf(&sb, "script %q unreadable\n", e.Name())
				continue
			}
			fmt.Fprintf(&sb, "script %q %s\n", e.Name(), document.Digest(string(data)))
		}
	}

	return document.Digest(sb.String())
}
