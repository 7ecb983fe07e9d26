// Package commands provides the CLI commands for cmdembed.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/cmdembed/internal/app"
)

// Version information (set via ldflags during build).
var (
	Version = "dev"
	Commit  = "unknown"
)

// Global flags
var (
	configPath string
	logLevel   string
	extPaths   []string
)

var rootCmd = &cobra.Command{
	Use:   "cmdembed",
	Short: "Expand embedded commands in text documents",
	Long: `cmdembed expands commands embedded in text. Inline commands are
written %name?params(content)% and block commands #name?params(content)#.

Commands are built in (dt, abstract) or loaded from <name>.lua scripts in
the extension search paths.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringArrayVarP(&extPaths, "ext-path", "e", nil, "Extension search path (repeatable)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("cmdembed %s (%s)\n", Version, Commit))

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(extensionsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newApp builds the application from the global flags.
func newApp(opts app.Options) (*app.Application, error) {
	switch logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", logLevel)
	}

	opts.ConfigPath = configPath
	opts.LogLevel = logLevel
	opts.ExtensionPaths = extPaths
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	return app.New(opts)
}
