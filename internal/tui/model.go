package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"binder/internal/export"
)

// Model renders export progress fed through a channel. Closing the channel
// ends the program. Pressing q or ctrl+c asks the run to stop via cancel.
type Model struct {
	updates    <-chan export.Progress
	cancel     func()
	started    time.Time
	width      int
	progress   export.Progress
	cancelling bool
	quitting   bool
}

type doneMsg struct{}

type progressMsg export.Progress

func NewModel(updates <-chan export.Progress, cancel func()) Model {
	return Model{updates: updates, cancel: cancel, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.progress = export.Progress(msg)
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.cancelling && m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	p := m.progress
	elapsed := time.Since(m.started).Round(time.Millisecond)

	current := p.CurrentGroupLabel
	if current == "" {
		current = "-"
	}
	status := dimStyle.Render("q to stop after the current page")
	if m.cancelling {
		status = warnStyle.Render("stopping...")
	}

	lines := []string{
		titleStyle.Render("binder"),
		labelStyle.Render(fmt.Sprintf("Groups: %d/%d", p.GroupsDone, p.GroupsTotal)) + dimStyle.Render("  current: "+current),
		labelStyle.Render(fmt.Sprintf("Pages:  %d/%d", p.PagesDone, p.PagesTotal)),
		barStyle.Render(renderBar(barWidth, ratio(p.PagesDone, p.PagesTotal))),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		status,
	}
	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan export.Progress) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return progressMsg(update)
	}
}

func ratio(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	r := float64(done) / float64(total)
	if r > 1 {
		r = 1
	}
	return r
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	barStyle   = lipgloss.NewStyle().Foreground(ColorAccentAlt)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
)
