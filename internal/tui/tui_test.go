package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binder/internal/export"
	"binder/internal/group"
	"binder/internal/order"
	"binder/internal/scan"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func arrangeFixture(t *testing.T) (*group.Set, Arrange) {
	t.Helper()
	reg, err := group.NewRegistry()
	require.NoError(t, err)
	var es []scan.Entry
	for i, n := range []string{"a.png", "b.png", "c.png"} {
		es = append(es, scan.Entry{Path: "/p/" + n, Dir: "/p", Name: n, RelPath: n, Index: i})
	}
	es = append(es, scan.Entry{Path: "/q/z.png", Dir: "/q", Name: "z.png", RelPath: "z.png", Index: 3})
	set := group.Build("/", es, group.NewClassifier(reg, group.MatchFilename), group.MergeFolder)
	return set, NewArrange(order.NewManager(set), set.NonEmpty())
}

func step(t *testing.T, a Arrange, msgs ...tea.Msg) Arrange {
	t.Helper()
	for _, msg := range msgs {
		next, _ := a.Update(msg)
		a = next.(Arrange)
	}
	return a
}

func TestArrangeMovesPages(t *testing.T) {
	set, a := arrangeFixture(t)

	a = step(t, a, runes("j"), runes("j"), runes("K"), runes("K"))
	g := set.NonEmpty()[0]
	assert.Equal(t, []string{"/p/c.png", "/p/a.png", "/p/b.png"}, g.Paths())
	assert.Equal(t, 0, a.cursor)

	a = step(t, a, runes("J"))
	assert.Equal(t, []string{"/p/a.png", "/p/c.png", "/p/b.png"}, g.Paths())
	assert.Contains(t, a.View(), "> ")
}

func TestArrangeSwitchesGroupsAndQuits(t *testing.T) {
	_, a := arrangeFixture(t)

	a = step(t, a, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, a.gi)
	assert.Contains(t, a.View(), "z.png")

	a = step(t, a, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, a.gi)

	next, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.True(t, next.(Arrange).Aborted())
}

func TestProgressModelCancelsOnce(t *testing.T) {
	calls := 0
	updates := make(chan export.Progress)
	m := NewModel(updates, func() { calls++ })

	next, _ := m.Update(progressMsg{GroupsTotal: 2, PagesTotal: 10, PagesDone: 5, CurrentGroupLabel: "invoices"})
	m = next.(Model)
	view := m.View()
	assert.Contains(t, view, "Pages:  5/10")
	assert.Contains(t, view, "invoices")

	next, _ = m.Update(runes("q"))
	next, _ = next.(Model).Update(runes("q"))
	assert.Equal(t, 1, calls)
	assert.Contains(t, next.(Model).View(), "stopping")
}

func TestRenderSummaryAndGroups(t *testing.T) {
	start := time.Now()
	report := export.Report{
		Root:     "/photos",
		State:    export.StateDone,
		Started:  start,
		Finished: start.Add(time.Second),
		Groups: []export.GroupReport{
			{Label: "invoices", Status: export.StatusSuccess, Pages: 2, Total: 2, OutputPath: "/photos/invoices.pdf"},
			{Label: "misc", Status: export.StatusPartial, Pages: 4, Total: 5,
				Issues: []export.Issue{{Path: "/photos/3.png", Kind: "DecodeError", Message: "bad"}}},
		},
	}

	summary := RenderSummary(ReportRows(report))
	assert.Contains(t, summary, "Pages")
	assert.Contains(t, summary, "6/7")

	groups := RenderGroups(report)
	assert.Contains(t, groups, "invoices")
	assert.Contains(t, groups, "DecodeError 3.png: bad")
	assert.Equal(t, 3, len(strings.Split(groups, "\n")))
}
