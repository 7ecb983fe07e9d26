package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/cmdembed/internal/callstring"
)

var parseFormat string

var parseCmd = &cobra.Command{
	Use:   "parse <callstring>",
	Short: "Parse a call string and print its parameters",
	Long: `Parse a call string and print the command name, the ordered
parameter list and the parameter index.

Examples:
  cmdembed parse 'dt?long'
  cmdembed parse 'abstract?40&class=x' --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runParse(cmd.OutOrStdout(), args[0], parseFormat)
	},
}

func init() {
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "yaml", "Output format (yaml, json)")
}

// parsedParam is the printed form of one parameter.
type parsedParam struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Value    string `json:"value" yaml:"value"`
	Assigned bool   `json:"assigned" yaml:"assigned"`
}

// parsedCall is the printed form of a call string.
type parsedCall struct {
	Name   string            `json:"name" yaml:"name"`
	Params []parsedParam     `json:"params" yaml:"params"`
	Index  map[string]string `json:"index" yaml:"index"`
}

func runParse(w io.Writer, input, format string) error {
	call, err := callstring.Parse(input)
	if err != nil {
		return err
	}

	out := parsedCall{
		Name:   call.Name,
		Params: make([]parsedParam, 0, call.Params.Len()),
		Index:  call.Params.Index(),
	}
	for _, p := range call.Params.List() {
		out.Params = append(out.Params, parsedParam{Name: p.Name, Value: p.Value, Assigned: p.Assigned})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (must be yaml or json)", format)
	}
}
