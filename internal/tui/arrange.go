package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"binder/internal/group"
	"binder/internal/order"
)

// Arrange lets the user reorder pages group by group before export. Moves go
// straight through the order manager, so the plan reflects them as soon as
// they happen.
type Arrange struct {
	manager *order.Manager
	groups  []*group.Group
	gi      int
	cursor  int
	err     error
	done    bool
	aborted bool
}

func NewArrange(manager *order.Manager, groups []*group.Group) Arrange {
	return Arrange{manager: manager, groups: groups}
}

// Aborted reports whether the user left with esc or ctrl+c.
func (a Arrange) Aborted() bool {
	return a.aborted
}

func (a Arrange) Init() tea.Cmd {
	return nil
}

func (a Arrange) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || len(a.groups) == 0 {
		if ok {
			a.done = true
			return a, tea.Quit
		}
		return a, nil
	}

	g := a.groups[a.gi]
	a.err = nil
	switch key.String() {
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < g.Len()-1 {
			a.cursor++
		}
	case "K", "shift+up", "u":
		if a.cursor > 0 {
			a.err = a.manager.MoveUp(g.Entries[a.cursor].Path)
			if a.err == nil {
				a.cursor--
			}
		}
	case "J", "shift+down", "d":
		if a.cursor < g.Len()-1 {
			a.err = a.manager.MoveDown(g.Entries[a.cursor].Path)
			if a.err == nil {
				a.cursor++
			}
		}
	case "tab", "right", "l", "n":
		a.gi = (a.gi + 1) % len(a.groups)
		a.cursor = 0
	case "shift+tab", "left", "h", "p":
		a.gi = (a.gi - 1 + len(a.groups)) % len(a.groups)
		a.cursor = 0
	case "enter", "q":
		a.done = true
		return a, tea.Quit
	case "esc", "ctrl+c":
		a.aborted = true
		a.done = true
		return a, tea.Quit
	}
	return a, nil
}

func (a Arrange) View() string {
	if a.done {
		return ""
	}
	if len(a.groups) == 0 {
		return dimStyle.Render("nothing to arrange")
	}

	g := a.groups[a.gi]
	lines := []string{
		titleStyle.Render(g.Label) + dimStyle.Render(fmt.Sprintf("  group %d/%d  %s", a.gi+1, len(a.groups), g.Folder)),
	}
	for i, e := range g.Entries {
		line := fmt.Sprintf("%3d  %s", i+1, e.Name)
		if i == a.cursor {
			lines = append(lines, cursorStyle.Render("> "+line))
		} else {
			lines = append(lines, labelStyle.Render("  "+line))
		}
	}
	if a.err != nil {
		lines = append(lines, warnStyle.Render(a.err.Error()))
	}
	lines = append(lines, dimStyle.Render("j/k move cursor  J/K move page  tab next group  enter export  esc abort"))
	return strings.Join(lines, "\n")
}

var cursorStyle = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
