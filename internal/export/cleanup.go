package export

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"binder/internal/errkind"
	"binder/internal/group"
)

// removeSources deletes the images of a group whose PDF is already on disk,
// then removes source folders left empty. The scan root itself is kept.
// Failures become DeleteWarning issues and never undo the PDF.
func removeSources(root string, g *group.Group) (int, []Issue) {
	var issues []Issue
	deleted := 0
	var dirs []string
	seenDir := map[string]bool{}

	for _, e := range g.Entries {
		if err := os.Remove(e.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			issues = append(issues, issueFrom(e.Path, errkind.New(errkind.Delete, e.Path, err)))
			continue
		}
		deleted++
		if !seenDir[e.Dir] {
			seenDir[e.Dir] = true
			dirs = append(dirs, e.Dir)
		}
	}

	for _, dir := range dirs {
		pruneEmpty(root, dir)
	}
	return deleted, issues
}

// pruneEmpty removes dir and then its parents while they are empty and
// strictly inside root.
func pruneEmpty(root, dir string) {
	root = filepath.Clean(root)
	for dir = filepath.Clean(dir); dir != root && isWithin(dir, root); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
	}
}

func isWithin(p, root string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && (len(rel) < 3 || rel[:3] != ".."+string(filepath.Separator))
}
