package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/dshills/cmdembed/internal/app"
	"github.com/dshills/cmdembed/internal/watch"
)

var (
	renderCacheDir string
	renderWatch    bool
	renderStats    bool
)

var renderCmd = &cobra.Command{
	Use:   "render <file|glob>...",
	Short: "Render documents to standard output",
	Long: `Render documents, expanding every embedded command.

Arguments may be doublestar globs. With --watch, files are rendered again
whenever they change.

Examples:
  cmdembed render page.txt
  cmdembed render 'docs/**/*.txt' --stats
  cmdembed render page.txt --watch --cache-dir .cmdembed`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderCacheDir, "cache-dir", "", "Persist compiled pages in this directory")
	renderCmd.Flags().BoolVarP(&renderWatch, "watch", "w", false, "Render again when files change")
	renderCmd.Flags().BoolVar(&renderStats, "stats", false, "Print command statistics to stderr")
}

func runRender(cmd *cobra.Command, args []string) error {
	files, err := expandArgs(args)
	if err != nil {
		return err
	}

	application, err := newApp(app.Options{CacheDir: renderCacheDir})
	if err != nil {
		return err
	}
	defer application.Shutdown()

	out := cmd.OutOrStdout()
	for _, f := range files {
		if err := application.RenderFile(f, out); err != nil {
			return err
		}
	}

	if renderWatch {
		if err := watchAndRender(application, files, out); err != nil {
			return err
		}
	}

	if renderStats {
		printStats(cmd.ErrOrStderr(), application)
	}
	return nil
}

// expandArgs resolves glob arguments to file paths. Plain paths are kept
// as given so a missing file is reported by the renderer.
func expandArgs(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, arg := range args {
		if !hasMeta(arg) {
			if !seen[arg] {
				seen[arg] = true
				files = append(files, arg)
			}
			continue
		}

		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("glob %q matched no files", arg)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

func hasMeta(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

func watchAndRender(application *app.Application, files []string, out io.Writer) error {
	w, err := watch.New(watch.WithLogger(application.Logger()))
	if err != nil {
		return err
	}
	defer w.Close()

	for _, f := range files {
		if err := w.Add(f); err != nil {
			return err
		}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	log := application.Logger().WithComponent("watch")
	for {
		select {
		case <-signals:
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if ev.Op.Has(watch.OpRemove) {
				log.WithField("path", ev.Path).Info("file removed")
				continue
			}
			if err := application.RenderFile(ev.Path, out); err != nil {
				log.WithField("path", ev.Path).Error("%v", err)
			}
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			log.Warn("%v", err)
		}
	}
}

func printStats(w io.Writer, application *app.Application) {
	snap := application.Metrics().Snapshot()
	cache := application.Cache().Stats()

	fmt.Fprintf(w, "prepares: %d  renders: %d  errors: %d  not found: %d  invalid syntax: %d\n",
		snap.TotalPrepares, snap.TotalRenders, snap.TotalErrors, snap.NotFound, snap.InvalidSyntax)
	fmt.Fprintf(w, "cache: %d hits, %d disk hits, %d misses\n", cache.Hits, cache.DiskHits, cache.Misses)

	top := application.Metrics().TopCommands(10)
	if len(top) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMMAND\tPREPARES\tRENDERS\tERRORS\tAVG PREPARE\tAVG RENDER\t")
	for _, c := range top {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t\n",
			c.Name, c.Prepares, c.Renders, c.Errors, c.AveragePrepare(), c.AverageRender())
	}
	tw.Flush()
}
