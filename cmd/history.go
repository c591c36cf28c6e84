package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"binder/internal/export"
	"binder/internal/journal"
	"binder/internal/tui"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent convert runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		path := settings.Journal
		if path == "" {
			path = journal.DefaultPath()
		}

		store, err := journal.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Recent(context.Background(), historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stdout, historyDimStyle.Render("no runs recorded"))
			return nil
		}

		for _, run := range runs {
			state := string(run.State)
			if run.Partial {
				state += " (partial)"
			}
			fmt.Fprintf(os.Stdout, "%s %s %s\n",
				historyDimStyle.Render(fmt.Sprintf("#%d %s", run.ID, run.Started.Local().Format(time.DateTime))),
				historyRootStyle.Render(run.Root),
				historyDimStyle.Render(state),
			)
			fmt.Fprintf(os.Stdout, "    %s %s %s %s\n",
				tui.StatusStyle(export.StatusSuccess).Render(fmt.Sprintf("%d ok", run.Count(export.StatusSuccess))),
				tui.StatusStyle(export.StatusPartial).Render(fmt.Sprintf("%d partial", run.Count(export.StatusPartial))),
				tui.StatusStyle(export.StatusFailed).Render(fmt.Sprintf("%d failed", run.Count(export.StatusFailed))),
				tui.StatusStyle(export.StatusSkipped).Render(fmt.Sprintf("%d skipped", run.Count(export.StatusSkipped))),
			)
			for _, g := range run.Groups {
				if g.OutputPath != "" {
					fmt.Fprintf(os.Stdout, "    %s\n", historyDimStyle.Render(g.OutputPath))
				}
			}
		}
		return nil
	},
}

var (
	historyRootStyle = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	historyDimStyle  = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
