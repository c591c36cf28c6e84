package tui

import (
	"github.com/charmbracelet/lipgloss"

	"binder/internal/export"
)

var (
	ColorInk       = lipgloss.Color("#E5E9F0")
	ColorDim       = lipgloss.Color("#7A8291")
	ColorAccent    = lipgloss.Color("#88C0D0")
	ColorAccentAlt = lipgloss.Color("#81A1C1")
	ColorSuccess   = lipgloss.Color("#A3BE8C")
	ColorWarn      = lipgloss.Color("#EBCB8B")
	ColorError     = lipgloss.Color("#BF616A")
)

// StatusStyle colours a group status.
func StatusStyle(s export.Status) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch s {
	case export.StatusSuccess:
		return style.Foreground(ColorSuccess)
	case export.StatusPartial:
		return style.Foreground(ColorWarn)
	case export.StatusFailed:
		return style.Foreground(ColorError)
	default:
		return style.Foreground(ColorDim)
	}
}
