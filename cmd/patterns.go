package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"binder/internal/config"
	"binder/internal/group"
	"binder/internal/tui"
)

var (
	patternPriority    int
	patternRegex       string
	patternLabel       string
	patternDescription string
	patternDisabled    bool
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List and edit the grouping patterns in the config file",
	Args:  cobra.NoArgs,
	RunE:  listPatterns,
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the grouping patterns in evaluation order",
	Args:  cobra.NoArgs,
	RunE:  listPatterns,
}

func listPatterns(cmd *cobra.Command, args []string) error {
	path := configPath()
	settings, err := config.Load(path)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, patternDimStyle.Render(path))
	if len(settings.Patterns) == 0 {
		fmt.Fprintln(os.Stdout, patternDimStyle.Render("no patterns: every folder becomes one ungrouped PDF"))
		return nil
	}

	ps := slices.Clone(settings.Patterns)
	slices.SortStableFunc(ps, func(a, b config.PatternSetting) int { return a.Priority - b.Priority })
	for _, p := range ps {
		state := patternOnStyle.Render("on ")
		if !p.IsEnabled() {
			state = patternOffStyle.Render("off")
		}
		fmt.Fprintf(os.Stdout, "%s %s %s %s\n",
			state,
			patternDimStyle.Render(fmt.Sprintf("%4d", p.Priority)),
			patternRegexStyle.Render(p.Regex),
			patternDimStyle.Render(p.ID),
		)
		if p.Label != "" {
			fmt.Fprintf(os.Stdout, "      label: %s\n", p.Label)
		}
		if p.Description != "" {
			fmt.Fprintf(os.Stdout, "      %s\n", patternDimStyle.Render(p.Description))
		}
	}
	return nil
}

var patternsAddCmd = &cobra.Command{
	Use:   "add --regex <regex> [flags]",
	Short: "Add a grouping pattern",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := group.NewRegistry(group.Pattern{Priority: patternPriority, Regex: patternRegex, Label: patternLabel}); err != nil {
			return err
		}

		path := configPath()
		settings, err := config.Load(path)
		if err != nil {
			return err
		}
		p := config.PatternSetting{
			Priority:    patternPriority,
			Regex:       patternRegex,
			Label:       patternLabel,
			Description: patternDescription,
		}
		if patternDisabled {
			off := false
			p.Enabled = &off
		}
		id := settings.AddPattern(p)
		if err := config.Save(path, settings); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Added pattern %s to %s\n", id, path)
		return nil
	},
}

var patternsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a grouping pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editPatterns(args[0], func(s *config.Settings) bool { return s.RemovePattern(args[0]) })
	},
}

var patternsEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a grouping pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editPatterns(args[0], func(s *config.Settings) bool { return s.SetPatternEnabled(args[0], true) })
	},
}

var patternsDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a grouping pattern without removing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editPatterns(args[0], func(s *config.Settings) bool { return s.SetPatternEnabled(args[0], false) })
	},
}

func editPatterns(id string, edit func(*config.Settings) bool) error {
	path := configPath()
	settings, err := config.Load(path)
	if err != nil {
		return err
	}
	if !edit(&settings) {
		return fmt.Errorf("no pattern with id %q in %s", id, path)
	}
	return config.Save(path, settings)
}

var (
	patternOnStyle    = lipgloss.NewStyle().Foreground(tui.ColorSuccess)
	patternOffStyle   = lipgloss.NewStyle().Foreground(tui.ColorDim)
	patternRegexStyle = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	patternDimStyle   = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	patternsAddCmd.Flags().StringVar(&patternRegex, "regex", "", "regular expression; use a (?P<name>...) group or --label")
	patternsAddCmd.Flags().StringVar(&patternLabel, "label", "", "label template, e.g. invoice-${num}")
	patternsAddCmd.Flags().IntVar(&patternPriority, "priority", 0, "lower runs first")
	patternsAddCmd.Flags().StringVar(&patternDescription, "description", "", "free-form note")
	patternsAddCmd.Flags().BoolVar(&patternDisabled, "disabled", false, "add the pattern switched off")
	patternsAddCmd.MarkFlagRequired("regex")

	patternsCmd.AddCommand(patternsListCmd, patternsAddCmd, patternsRemoveCmd, patternsEnableCmd, patternsDisableCmd)
	rootCmd.AddCommand(patternsCmd)
}
