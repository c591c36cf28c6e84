package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"binder/internal/export"
)

type SummaryRow struct {
	Label string
	Value string
}

func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(row.Label))
		valueWidth = max(valueWidth, lipgloss.Width(row.Value))
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}
	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		lines = append(lines, fmt.Sprintf("%s | %s", labelStyle.Render(label), valueStyle.Render(value)))
	}
	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// ReportRows condenses a report into summary rows.
func ReportRows(r export.Report) []SummaryRow {
	pages, total := 0, 0
	for _, g := range r.Groups {
		pages += g.Pages
		total += g.Total
	}
	state := string(r.State)
	if r.Partial {
		state += " (partial)"
	}
	return []SummaryRow{
		{Label: "Root", Value: r.Root},
		{Label: "State", Value: state},
		{Label: "Groups", Value: fmt.Sprintf("%d", len(r.Groups))},
		{Label: "Succeeded", Value: fmt.Sprintf("%d", r.Count(export.StatusSuccess))},
		{Label: "Partial", Value: fmt.Sprintf("%d", r.Count(export.StatusPartial))},
		{Label: "Failed", Value: fmt.Sprintf("%d", r.Count(export.StatusFailed))},
		{Label: "Skipped", Value: fmt.Sprintf("%d", r.Count(export.StatusSkipped))},
		{Label: "Pages", Value: fmt.Sprintf("%d/%d", pages, total)},
		{Label: "Issues", Value: fmt.Sprintf("%d", r.Issues())},
		{Label: "Elapsed", Value: r.Finished.Sub(r.Started).Round(time.Millisecond).String()},
	}
}

// RenderGroups lists every group with its status, output and issues.
func RenderGroups(r export.Report) string {
	var lines []string
	for _, w := range r.Warnings {
		lines = append(lines, warnStyle.Render("warning ")+dimStyle.Render(w.Path+": "+w.Message))
	}
	for _, g := range r.Groups {
		status := StatusStyle(g.Status).Render(padRight(string(g.Status), 8))
		line := fmt.Sprintf("%s %s %s", status, labelStyle.Render(g.Label), dimStyle.Render(fmt.Sprintf("%d/%d pages", g.Pages, g.Total)))
		if g.OutputPath != "" {
			line += dimStyle.Render(" -> " + g.OutputPath)
		}
		lines = append(lines, line)
		for _, issue := range g.Issues {
			lines = append(lines, dimStyle.Render(fmt.Sprintf("    %s %s: %s", issue.Kind, filepath.Base(issue.Path), issue.Message)))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderPlan shows what a run would write without writing it.
func RenderPlan(targets []export.Target) string {
	if len(targets) == 0 {
		return dimStyle.Render("no images found")
	}
	var lines []string
	for _, t := range targets {
		kind := ""
		if t.Group.Ungrouped {
			kind = dimStyle.Render(" (ungrouped)")
		}
		lines = append(lines, titleStyle.Render(t.Group.Label)+kind+dimStyle.Render(fmt.Sprintf("  %d pages -> %s", t.Group.Len(), t.Dest)))
		for i, e := range t.Group.Entries {
			lines = append(lines, labelStyle.Render(fmt.Sprintf("  %3d  %s", i+1, e.RelPath)))
		}
	}
	return strings.Join(lines, "\n")
}

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

var (
	valueStyle = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
)
