// Package order keeps the user-adjustable page sequence of each group.
package order

import (
	"binder/internal/errkind"
	"binder/internal/group"
	"binder/internal/scan"
)

// Manager edits group sequences in place. Entries are addressed by their
// absolute path; a path belongs to exactly one group.
type Manager struct {
	set    *group.Set
	owners map[string]*group.Group
}

func NewManager(set *group.Set) *Manager {
	m := &Manager{set: set, owners: make(map[string]*group.Group)}
	for _, g := range set.Groups() {
		for _, e := range g.Entries {
			m.owners[e.Path] = g
		}
	}
	return m
}

// Sequence returns a copy of the group's current order.
func (m *Manager) Sequence(key group.Key) ([]scan.Entry, error) {
	g, ok := m.set.Lookup(key)
	if !ok {
		return nil, errkind.Errorf(errkind.Order, "", "unknown group %s", key)
	}
	out := make([]scan.Entry, len(g.Entries))
	copy(out, g.Entries)
	return out, nil
}

// MoveUp swaps the entry with its predecessor. The first entry stays put.
func (m *Manager) MoveUp(path string) error {
	return m.swap(path, -1)
}

// MoveDown swaps the entry with its successor. The last entry stays put.
func (m *Manager) MoveDown(path string) error {
	return m.swap(path, 1)
}

func (m *Manager) swap(path string, delta int) error {
	g, idx, err := m.locate(path)
	if err != nil {
		return err
	}
	other := idx + delta
	if other < 0 || other >= len(g.Entries) {
		return nil
	}
	g.Entries[idx], g.Entries[other] = g.Entries[other], g.Entries[idx]
	return nil
}

func (m *Manager) locate(path string) (*group.Group, int, error) {
	g, ok := m.owners[path]
	if !ok {
		return nil, -1, errkind.Errorf(errkind.Order, path, "entry is not part of any group")
	}
	for i, e := range g.Entries {
		if e.Path == path {
			return g, i, nil
		}
	}
	return nil, -1, errkind.Errorf(errkind.Order, path, "entry missing from group %s", g.Key)
}

// Reorder replaces the group's sequence with paths. It fails without
// touching the group unless paths is a permutation of the current entries.
func (m *Manager) Reorder(key group.Key, paths []string) error {
	g, ok := m.set.Lookup(key)
	if !ok {
		return errkind.Errorf(errkind.Order, "", "unknown group %s", key)
	}
	if len(paths) != len(g.Entries) {
		return errkind.Errorf(errkind.Order, "", "group %s has %d entries, got %d", key, len(g.Entries), len(paths))
	}

	byPath := make(map[string]scan.Entry, len(g.Entries))
	for _, e := range g.Entries {
		byPath[e.Path] = e
	}

	next := make([]scan.Entry, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		e, ok := byPath[p]
		if !ok {
			return errkind.Errorf(errkind.Order, p, "entry is not in group %s", key)
		}
		if seen[p] {
			return errkind.Errorf(errkind.Order, p, "entry listed twice")
		}
		seen[p] = true
		next = append(next, e)
	}

	copy(g.Entries, next)
	return nil
}
