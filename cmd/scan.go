package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"binder/internal/export"
	"binder/internal/logging"
	"binder/internal/tui"
)

var scanCmd = &cobra.Command{
	Use:   "scan [flags] <folder>",
	Short: "Show the groups and PDFs a convert would produce without writing anything",
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

		verbose, _ := cmd.Flags().GetBool("verbose")
		logger, errorLog := logging.New(logDir(settings), nil, verbose)
		defer errorLog.Close()

		runner := export.New(cfg, export.WithLogger(logger))
		plan, err := runner.Plan(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "%s\n", scanRootStyle.Render(plan.Root))
		fmt.Fprintln(os.Stdout, tui.RenderPlan(runner.Targets(plan)))
		for _, w := range plan.Warnings {
			fmt.Fprintf(os.Stdout, "%s %s\n",
				scanWarnStyle.Render("skipped"),
				scanDimStyle.Render(fmt.Sprintf("%s: %v", w.Path, w.Err)),
			)
		}
		fmt.Fprintln(os.Stdout, scanDimStyle.Render(fmt.Sprintf("%d groups, %d pages", len(plan.Groups.NonEmpty()), plan.Groups.Pages())))
		return nil
	},
}

var (
	scanRootStyle = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccentAlt)
	scanWarnStyle = lipgloss.NewStyle().Foreground(tui.ColorWarn)
	scanDimStyle  = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	addPlanFlags(scanCmd)
	rootCmd.AddCommand(scanCmd)
}
