package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"binder/internal/config"
	"binder/internal/group"
)

var unsafeName = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// OutputName expands the template for g. {label} is the group label,
// {folder} the owning folder's name and {path} the owning folder relative to
// the parent of root, joined with '-'.
func OutputName(template, root string, g *group.Group) string {
	folder := filepath.Base(g.Folder)

	pathName := folder
	if rel, err := filepath.Rel(filepath.Dir(root), g.Folder); err == nil && !strings.HasPrefix(rel, "..") {
		pathName = strings.Join(strings.Split(filepath.ToSlash(rel), "/"), "-")
	}

	name := strings.NewReplacer(
		"{label}", g.Label,
		"{folder}", folder,
		"{path}", pathName,
	).Replace(template)
	name = strings.TrimSpace(unsafeName.Replace(name))
	if name == "" || name == "." || name == ".." {
		name = "untitled"
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// OutputDir picks the directory a group's PDF is written to.
func OutputDir(cfg config.ExportConfig, g *group.Group) string {
	if cfg.OutputDir != "" {
		return cfg.OutputDir
	}
	if cfg.Placement == config.PlaceBeside {
		return filepath.Dir(g.Folder)
	}
	return g.Folder
}

// collisionResolver hands out unique output paths within one run, appending
// " - dupN" when two groups ask for the same file.
type collisionResolver struct {
	mu       sync.Mutex
	owners   map[string]group.Key
	counters map[string]int
}

func newCollisionResolver() *collisionResolver {
	return &collisionResolver{
		owners:   make(map[string]group.Key),
		counters: make(map[string]int),
	}
}

func (cr *collisionResolver) resolve(owner group.Key, requested string) string {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	key := strings.ToLower(requested)
	if current, exists := cr.owners[key]; !exists || current == owner {
		cr.owners[key] = owner
		return requested
	}

	dir := filepath.Dir(requested)
	base := filepath.Base(requested)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	counter := cr.counters[key]
	if counter == 0 {
		counter = 1
	}
	for {
		candidate := filepath.Join(dir, fmt.Sprintf("%s - dup%d%s", stem, counter, ext))
		ckey := strings.ToLower(candidate)
		if current, exists := cr.owners[ckey]; !exists || current == owner {
			cr.counters[key] = counter + 1
			cr.owners[ckey] = owner
			return candidate
		}
		counter++
	}
}
