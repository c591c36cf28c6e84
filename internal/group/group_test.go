package group

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binder/internal/errkind"
	"binder/internal/scan"
)

func entries(dir string, names ...string) []scan.Entry {
	out := make([]scan.Entry, len(names))
	for i, n := range names {
		out[i] = scan.Entry{
			Path:    path.Join(dir, n),
			Dir:     dir,
			Name:    n,
			RelPath: path.Join(path.Base(dir), n),
			Index:   i,
		}
	}
	return out
}

func names(g *Group) []string {
	out := make([]string, len(g.Entries))
	for i, e := range g.Entries {
		out[i] = e.Name
	}
	return out
}

func TestRegistryOrdersByPriorityStable(t *testing.T) {
	reg, err := NewRegistry(
		Pattern{Priority: 5, Regex: "a", Label: "first-five"},
		Pattern{Priority: 1, Regex: "b", Label: "one"},
		Pattern{Priority: 5, Regex: "c", Label: "second-five"},
		Pattern{Priority: 3, Regex: "d", Label: "three"},
	)
	require.NoError(t, err)

	var got []string
	for _, r := range reg.Rules() {
		got = append(got, r.Label)
	}
	assert.Equal(t, []string{"one", "three", "first-five", "second-five"}, got)
}

func TestEqualPriorityTieGoesToEarliestRegistered(t *testing.T) {
	reg, err := NewRegistry(
		Pattern{Priority: 1, Regex: `\.jpg$`, Label: "jpegs"},
		Pattern{Priority: 1, Regex: `^scan`, Label: "scans"},
	)
	require.NoError(t, err)

	a := NewClassifier(reg, MatchFilename).Classify(entries("/photos", "scan_1.jpg")[0])
	assert.Equal(t, "jpegs", a.Label)
	assert.False(t, a.Ungrouped)
	require.NotNil(t, a.Rule)
	assert.Equal(t, 0, a.Rule.Seq)
}

func TestInvalidPatternsRejectedAtLoad(t *testing.T) {
	_, err := NewRegistry(Pattern{Priority: 1, Regex: "([a-z", Label: "broken"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errkind.ErrPattern)

	_, err = NewRegistry(Pattern{Priority: 1, Regex: `^(\w+)_`})
	assert.ErrorIs(t, err, errkind.ErrPattern)

	_, err = NewRegistry(Pattern{Priority: 1, Regex: `^(?P<name>\w+)_`})
	assert.NoError(t, err)
}

func TestInvoiceScenario(t *testing.T) {
	reg, err := NewRegistry(
		Pattern{Priority: 1, Regex: "^inv_", Label: "invoices"},
		Pattern{Priority: 2, Regex: ".*", Label: "misc"},
	)
	require.NoError(t, err)

	set := Build("/photos", entries("/photos", "inv_1.jpg", "inv_2.jpg", "note.jpg"), NewClassifier(reg, MatchFilename), MergeFolder)

	groups := set.NonEmpty()
	require.Len(t, groups, 2)
	assert.Equal(t, "invoices", groups[0].Label)
	assert.Equal(t, []string{"inv_1.jpg", "inv_2.jpg"}, names(groups[0]))
	assert.Equal(t, "misc", groups[1].Label)
	assert.Equal(t, []string{"note.jpg"}, names(groups[1]))

	ungrouped, ok := set.Lookup(Key{Folder: "/photos", Label: "photos", Ungrouped: true})
	require.True(t, ok)
	assert.Zero(t, ungrouped.Len())
	assert.Len(t, set.Groups(), 3)
}

func TestNoPatternsGivesOneUngroupedGroup(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	set := Build("/photos", entries("/photos", "a.png", "b.png", "c.png"), NewClassifier(reg, MatchFilename), MergeFolder)

	groups := set.NonEmpty()
	require.Len(t, groups, 1)
	assert.True(t, groups[0].Ungrouped)
	assert.Equal(t, "photos", groups[0].Label)
	assert.Equal(t, []string{"a.png", "b.png", "c.png"}, names(groups[0]))
	assert.Equal(t, Pending, groups[0].State)
}

func TestClassifyIgnoresScanOrder(t *testing.T) {
	reg, err := NewRegistry(
		Pattern{Priority: 1, Regex: "^inv_", Label: "invoices"},
		Pattern{Priority: 2, Regex: `\.png$`, Label: "pngs"},
	)
	require.NoError(t, err)
	c := NewClassifier(reg, MatchFilename)

	forward := entries("/docs", "inv_1.png", "x.png", "y.jpg")
	backward := []scan.Entry{forward[2], forward[1], forward[0]}
	for i := range backward {
		backward[i].Index = i
	}

	labels := map[string]string{}
	for _, e := range forward {
		labels[e.Name] = c.Classify(e).Label
	}
	for _, e := range backward {
		assert.Equal(t, labels[e.Name], c.Classify(e).Label, e.Name)
	}
	assert.Equal(t, "docs", labels["y.jpg"])
}

func TestCaptureGroupLabels(t *testing.T) {
	reg, err := NewRegistry(
		Pattern{Priority: 1, Regex: `^(?P<name>[A-Za-z]+)-\d+`},
		Pattern{Priority: 2, Regex: `^ch(\d+)_`, Label: "chapter-${1}"},
	)
	require.NoError(t, err)
	c := NewClassifier(reg, MatchFilename)

	es := entries("/book", "Title-1.png", "ch07_a.png", "cover.png")
	assert.Equal(t, "Title", c.Classify(es[0]).Label)
	assert.Equal(t, "chapter-07", c.Classify(es[1]).Label)
	assert.True(t, c.Classify(es[2]).Ungrouped)
}

func TestEmptyExpandedLabelFallsThrough(t *testing.T) {
	reg, err := NewRegistry(
		Pattern{Priority: 1, Regex: `^(?P<name>[a-z]*)_`},
		Pattern{Priority: 2, Regex: `.*`, Label: "rest"},
	)
	require.NoError(t, err)

	a := NewClassifier(reg, MatchFilename).Classify(entries("/x", "_1.png")[0])
	assert.Equal(t, "rest", a.Label)
}

func TestMatchAgainstRelativePath(t *testing.T) {
	reg, err := NewRegistry(Pattern{Priority: 1, Regex: `^receipts/`, Label: "receipts"})
	require.NoError(t, err)

	es := entries("/root/receipts", "a.png")
	assert.True(t, NewClassifier(reg, MatchFilename).Classify(es[0]).Ungrouped)
	assert.Equal(t, "receipts", NewClassifier(reg, MatchPath).Classify(es[0]).Label)
}

func TestMergeModes(t *testing.T) {
	reg, err := NewRegistry(Pattern{Priority: 1, Regex: "^inv_", Label: "invoices"})
	require.NoError(t, err)
	c := NewClassifier(reg, MatchFilename)

	var all []scan.Entry
	all = append(all, entries("/root/a", "inv_1.png", "other.png")...)
	all = append(all, entries("/root/b", "inv_2.png")...)

	perFolder := Build("/root", all, c, MergeFolder)
	assert.Len(t, perFolder.ByLabel("invoices"), 2)

	merged := Build("/root", all, c, MergeLabel)
	inv := merged.ByLabel("invoices")
	require.Len(t, inv, 1)
	assert.Equal(t, "/root", inv[0].Folder)
	assert.Equal(t, []string{"inv_1.png", "inv_2.png"}, names(inv[0]))

	other := merged.ByLabel("a")
	require.Len(t, other, 1)
	assert.True(t, other[0].Ungrouped)
	assert.Equal(t, "/root/a", other[0].Folder)
}

func TestGroupsOrderedByFolderThenLabel(t *testing.T) {
	reg, err := NewRegistry(
		Pattern{Priority: 1, Regex: "^z", Label: "zeta"},
		Pattern{Priority: 2, Regex: "^a", Label: "alpha"},
	)
	require.NoError(t, err)

	var all []scan.Entry
	all = append(all, entries("/r/b", "z1.png", "a1.png")...)
	all = append(all, entries("/r/a", "z2.png")...)

	set := Build("/r", all, NewClassifier(reg, MatchFilename), MergeFolder)
	var keys []string
	for _, g := range set.NonEmpty() {
		keys = append(keys, g.Key.String())
	}
	assert.Equal(t, []string{"/r/a#zeta", "/r/b#alpha", "/r/b#zeta"}, keys)
}

func TestFilterKeepsSelectedAndEmptyUngrouped(t *testing.T) {
	reg, err := NewRegistry(Pattern{Priority: 1, Regex: "^inv_", Label: "invoices"})
	require.NoError(t, err)

	set := Build("/p", entries("/p", "inv_1.png", "x.png"), NewClassifier(reg, MatchFilename), MergeFolder)
	picked := set.Filter([]Key{{Folder: "/p", Label: "invoices"}})

	require.Len(t, picked.NonEmpty(), 1)
	assert.Equal(t, "invoices", picked.NonEmpty()[0].Label)
	assert.Equal(t, 1, picked.Pages())
}

func TestParseEnums(t *testing.T) {
	m, err := ParseMergeMode("")
	require.NoError(t, err)
	assert.Equal(t, MergeFolder, m)
	_, err = ParseMergeMode("bogus")
	assert.Error(t, err)

	tg, err := ParseTarget("path")
	require.NoError(t, err)
	assert.Equal(t, MatchPath, tg)
	_, err = ParseTarget("content")
	assert.Error(t, err)
}
