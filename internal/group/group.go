package group

import (
	"fmt"
	"sort"

	"binder/internal/scan"
)

type State string

const (
	Pending   State = "pending"
	Succeeded State = "succeeded"
	Failed    State = "failed"
)

// MergeMode decides whether same-labeled matches in different folders share
// one group.
type MergeMode string

const (
	MergeFolder MergeMode = "folder"
	MergeLabel  MergeMode = "label"
)

func ParseMergeMode(s string) (MergeMode, error) {
	switch MergeMode(s) {
	case "", MergeFolder:
		return MergeFolder, nil
	case MergeLabel:
		return MergeLabel, nil
	default:
		return "", fmt.Errorf("unknown merge mode %q (want folder or label)", s)
	}
}

// Key identifies a group. The ungrouped group of a folder never collides
// with a pattern group that happens to carry the folder's name.
type Key struct {
	Folder    string
	Label     string
	Ungrouped bool
}

func (k Key) String() string {
	if k.Ungrouped {
		return k.Folder + "#" + k.Label + " (ungrouped)"
	}
	return k.Folder + "#" + k.Label
}

type Group struct {
	Key
	Entries []scan.Entry
	State   State
}

func (g *Group) Len() int {
	return len(g.Entries)
}

// Paths lists entry paths in the group's current order.
func (g *Group) Paths() []string {
	out := make([]string, len(g.Entries))
	for i, e := range g.Entries {
		out[i] = e.Path
	}
	return out
}

// Set is the classification result of one scan.
type Set struct {
	Root   string
	groups []*Group
	byKey  map[Key]*Group
}

// Build classifies entries into groups. Every folder that contributed an
// entry gets its ungrouped group, even when all of its entries matched a
// pattern. Groups come back ordered by folder, then label.
func Build(root string, entries []scan.Entry, c *Classifier, merge MergeMode) *Set {
	s := &Set{Root: root, byKey: make(map[Key]*Group)}

	for _, e := range entries {
		s.ensure(Key{Folder: e.Dir, Label: UngroupedLabel(e.Dir), Ungrouped: true})

		a := c.Classify(e)
		key := Key{Folder: e.Dir, Label: a.Label, Ungrouped: a.Ungrouped}
		if !a.Ungrouped && merge == MergeLabel {
			key.Folder = root
		}
		g := s.ensure(key)
		g.Entries = append(g.Entries, e)
	}

	sort.SliceStable(s.groups, func(i, j int) bool {
		a, b := s.groups[i].Key, s.groups[j].Key
		if a.Folder != b.Folder {
			return a.Folder < b.Folder
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return !a.Ungrouped && b.Ungrouped
	})
	return s
}

func (s *Set) ensure(key Key) *Group {
	if g, ok := s.byKey[key]; ok {
		return g
	}
	g := &Group{Key: key, State: Pending}
	s.byKey[key] = g
	s.groups = append(s.groups, g)
	return g
}

// Groups returns every group including empty ungrouped ones.
func (s *Set) Groups() []*Group {
	out := make([]*Group, len(s.groups))
	copy(out, s.groups)
	return out
}

// NonEmpty returns the groups that have something to export.
func (s *Set) NonEmpty() []*Group {
	var out []*Group
	for _, g := range s.groups {
		if g.Len() > 0 {
			out = append(out, g)
		}
	}
	return out
}

func (s *Set) Lookup(key Key) (*Group, bool) {
	g, ok := s.byKey[key]
	return g, ok
}

// ByLabel returns the non-empty groups carrying label, in set order.
func (s *Set) ByLabel(label string) []*Group {
	var out []*Group
	for _, g := range s.groups {
		if g.Label == label && g.Len() > 0 {
			out = append(out, g)
		}
	}
	return out
}

// Filter keeps only the groups whose keys are listed. Empty ungrouped groups
// stay so the per-folder invariant holds.
func (s *Set) Filter(keys []Key) *Set {
	want := make(map[Key]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	out := &Set{Root: s.Root, byKey: make(map[Key]*Group)}
	for _, g := range s.groups {
		if want[g.Key] || (g.Ungrouped && g.Len() == 0) {
			out.groups = append(out.groups, g)
			out.byKey[g.Key] = g
		}
	}
	return out
}

// Pages counts the entries across all groups.
func (s *Set) Pages() int {
	n := 0
	for _, g := range s.groups {
		n += g.Len()
	}
	return n
}
