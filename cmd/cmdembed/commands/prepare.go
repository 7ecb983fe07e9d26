package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/cmdembed/internal/app"
	"github.com/dshills/cmdembed/internal/document"
)

var prepareOutput string

var prepareCmd = &cobra.Command{
	Use:   "prepare <file>",
	Short: "Compile a document and save the prepared page",
	Long: `Run the prepare phase for every embedded command in a document and
save the compiled page. The default output is <file>` + document.FileExt + `.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrepare,
}

var showCmd = &cobra.Command{
	Use:   "show <compiled>",
	Short: "Print the segments of a compiled page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShow(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	prepareCmd.Flags().StringVarP(&prepareOutput, "output", "o", "", "Output file")
}

func runPrepare(cmd *cobra.Command, args []string) error {
	application, err := newApp(app.Options{})
	if err != nil {
		return err
	}
	defer application.Shutdown()

	page, err := application.Compile(args[0])
	if err != nil {
		return err
	}

	out := prepareOutput
	if out == "" {
		out = args[0] + document.FileExt
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := document.Save(f, page); err != nil {
		f.Close()
		return fmt.Errorf("saving %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d segments, %d commands\n", out, len(page.Segments), page.Commands())
	return nil
}

// shownSegment is the printed form of one page segment.
type shownSegment struct {
	Text      string `yaml:"text,omitempty"`
	Command   string `yaml:"command,omitempty"`
	Embedding string `yaml:"embedding,omitempty"`
	Payload   any    `yaml:"payload,omitempty"`
}

type shownPage struct {
	ID       string         `yaml:"id"`
	Digest   string         `yaml:"digest"`
	Compiled string         `yaml:"compiled"`
	Segments []shownSegment `yaml:"segments"`
}

func runShow(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	page, err := document.Load(f)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	out := shownPage{
		ID:       page.ID,
		Digest:   page.Digest,
		Compiled: page.CompiledAt.Format("2006-01-02T15:04:05Z07:00"),
		Segments: make([]shownSegment, 0, len(page.Segments)),
	}
	for _, seg := range page.Segments {
		if !seg.IsCommand() {
			out.Segments = append(out.Segments, shownSegment{Text: seg.Text})
			continue
		}
		p := seg.Command
		out.Segments = append(out.Segments, shownSegment{
			Command:   p.Command,
			Embedding: p.Embedding.String(),
			Payload:   p.Payload,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
