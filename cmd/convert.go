package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"binder/internal/export"
	"binder/internal/group"
	"binder/internal/journal"
	"binder/internal/logging"
	"binder/internal/order"
	"binder/internal/tui"
)

var (
	convertSelect    bool
	convertArrange   bool
	convertClipboard bool
	convertQuiet     bool
	convertNoJournal bool
	convertReport    string
)

var errAborted = errors.New("aborted")

var convertCmd = &cobra.Command{
	Use:   "convert [flags] <folder>",
	Short: "Bind the images under a folder into one PDF per group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		cfg, err := settings.Validate()
		if err != nil {
			return err
		}

		var console io.Writer = os.Stderr
		if !convertQuiet {
			console = nil
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger, errorLog := logging.New(logDir(settings), console, verbose)
		defer errorLog.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		updates := make(chan export.Progress, 64)
		uiDone := make(chan struct{})
		opts := []export.Option{export.WithLogger(logger)}
		if !convertQuiet {
			opts = append(opts, export.WithProgress(progressSink(updates, uiDone)))
		}
		runner := export.New(cfg, opts...)

		plan, err := runner.Plan(ctx, args[0])
		if err != nil {
			return err
		}
		if convertSelect {
			if plan.Groups, err = selectGroups(plan.Groups); err != nil {
				if errors.Is(err, errAborted) {
					return nil
				}
				return err
			}
		}
		if convertArrange {
			if err := arrangeGroups(plan.Groups); err != nil {
				if errors.Is(err, errAborted) {
					return nil
				}
				return err
			}
		}

		var report export.Report
		if convertQuiet {
			report = runner.Export(ctx, plan)
		} else {
			program := tea.NewProgram(tui.NewModel(updates, cancel))
			go func() {
				_, _ = program.Run()
				close(uiDone)
			}()

			report = runner.Export(ctx, plan)
			close(updates)
			<-uiDone
		}

		fmt.Fprintln(os.Stdout, tui.RenderSummary(tui.ReportRows(report)))
		if groups := tui.RenderGroups(report); groups != "" {
			fmt.Fprintln(os.Stdout, groups)
		}

		if !convertNoJournal {
			if err := recordRun(report, settings.Journal); err != nil {
				logger.Warn("journal not updated", "err", err)
			}
		}
		if convertReport != "" {
			if err := writeReport(convertReport, report); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Report written to: %s\n", convertReport)
		}
		if convertClipboard {
			if outputs := report.Outputs(); len(outputs) > 0 {
				if err := clipboard.WriteAll(strings.Join(outputs, "\n")); err != nil {
					logger.Warn("clipboard unavailable", "err", err)
				}
			}
		}

		if path := errorLog.Path(); path != "" {
			fmt.Fprintf(os.Stdout, "Errors logged to: %s\n", path)
		}
		if failed := report.Count(export.StatusFailed); failed > 0 {
			return fmt.Errorf("%d of %d groups failed", failed, len(report.Groups))
		}
		return nil
	},
}

// progressSink forwards progress to the view until uiDone closes. Once the
// view has exited nothing reads updates any more, so sends stop blocking.
func progressSink(updates chan<- export.Progress, uiDone <-chan struct{}) func(export.Progress) {
	return func(p export.Progress) {
		select {
		case updates <- p:
		case <-uiDone:
		}
	}
}

// selectGroups lets the user pick which groups to export.
func selectGroups(set *group.Set) (*group.Set, error) {
	groups := set.NonEmpty()
	if len(groups) == 0 {
		return set, nil
	}

	picked, err := fuzzyfinder.FindMulti(
		groups,
		func(i int) string {
			return fmt.Sprintf("%s  %s", groups[i].Label, relTo(set.Root, groups[i].Folder))
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			g := groups[i]
			lines := []string{fmt.Sprintf("%s (%d pages)", g.Label, g.Len())}
			for n, e := range g.Entries {
				lines = append(lines, fmt.Sprintf("%3d  %s", n+1, e.RelPath))
			}
			return strings.Join(lines, "\n")
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil, errAborted
		}
		return nil, err
	}

	keys := make([]group.Key, 0, len(picked))
	for _, i := range picked {
		keys = append(keys, groups[i].Key)
	}
	return set.Filter(keys), nil
}

// arrangeGroups runs the page arranger over every non-empty group. Moves are
// applied to the plan directly.
func arrangeGroups(set *group.Set) error {
	model := tui.NewArrange(order.NewManager(set), set.NonEmpty())
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return err
	}
	if final.(tui.Arrange).Aborted() {
		return errAborted
	}
	return nil
}

func recordRun(report export.Report, path string) error {
	if path == "" {
		path = journal.DefaultPath()
	}
	store, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	_, err = store.Record(context.Background(), report)
	return err
}

// writeReport saves the run report as JSON when path ends in .json and as
// YAML otherwise.
func writeReport(path string, report export.Report) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(report, "", "  ")
	default:
		data, err = yaml.Marshal(report)
	}
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func relTo(root, dir string) string {
	if rel, err := filepath.Rel(root, dir); err == nil {
		return rel
	}
	return dir
}

func init() {
	addPlanFlags(convertCmd)
	convertCmd.Flags().Bool("delete", false, "delete source images after their PDF is written")
	convertCmd.Flags().String("page", "", "page sizing: fit each image or use a fixed size (fit|fixed)")
	convertCmd.Flags().String("size", "", "fixed page preset (a3|a4|a5|letter|legal)")
	convertCmd.Flags().Float64("width", 0, "fixed page width in points")
	convertCmd.Flags().Float64("height", 0, "fixed page height in points")
	convertCmd.Flags().Bool("stop-on-error", false, "fail a group on its first undecodable image")
	convertCmd.Flags().Int("workers", 0, "number of output folders written in parallel")

	convertCmd.Flags().BoolVar(&convertSelect, "select", false, "pick the groups to export interactively")
	convertCmd.Flags().BoolVar(&convertArrange, "arrange", false, "reorder pages interactively before export")
	convertCmd.Flags().BoolVar(&convertClipboard, "clipboard", false, "copy the written PDF paths to the clipboard")
	convertCmd.Flags().BoolVarP(&convertQuiet, "quiet", "q", false, "no progress display; warnings go to stderr")
	convertCmd.Flags().BoolVar(&convertNoJournal, "no-journal", false, "do not record the run in the journal")
	convertCmd.Flags().StringVar(&convertReport, "report", "", "write the run report to this .yaml or .json file")

	rootCmd.AddCommand(convertCmd)
}
