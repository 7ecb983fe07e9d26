package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/cmdembed/internal/app"
)

var extensionsCmd = &cobra.Command{
	Use:     "extensions",
	Aliases: []string{"ext"},
	Short:   "List available commands",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer application.Shutdown()

		registry := application.Registry()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSOURCE\tPATH\t")
		for _, name := range registry.Available() {
			h, err := registry.Resolve(name)
			if err != nil {
				fmt.Fprintf(w, "%s\tbroken\t%v\t\n", name, err)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", h.Name(), h.Source(), h.Path())
		}
		return w.Flush()
	},
}
