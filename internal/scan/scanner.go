package scan

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
	gitignore "github.com/monochromegane/go-gitignore"

	"binder/internal/errkind"
	"binder/pkg/imgutil"
)

// DefaultIgnoreFile is looked up at the scan root when Options.IgnoreFile is empty.
const DefaultIgnoreFile = ".binderignore"

type Scanner struct {
	root    string
	opts    Options
	exts    map[string]bool
	exclude []string
	ignore  gitignore.IgnoreMatcher
}

// New validates root and prepares a scanner over it. It fails with a
// ScanError when root does not exist or is not a directory.
func New(root string, opts Options) (*Scanner, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errkind.New(errkind.Scan, root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, errkind.New(errkind.Scan, absRoot, err)
	}
	if !info.IsDir() {
		return nil, errkind.Errorf(errkind.Scan, absRoot, "not a directory")
	}

	s := &Scanner{
		root: filepath.Clean(absRoot),
		opts: opts,
		exts: make(map[string]bool, len(opts.Extensions)),
	}
	for _, ext := range opts.Extensions {
		s.exts[NormalizeExt(ext)] = true
	}
	for _, dir := range opts.ExcludeDirs {
		if abs, err := filepath.Abs(dir); err == nil {
			s.exclude = append(s.exclude, filepath.Clean(abs))
		}
	}

	ignoreName := opts.IgnoreFile
	if ignoreName == "" {
		ignoreName = DefaultIgnoreFile
	}
	ignorePath := filepath.Join(s.root, ignoreName)
	if _, err := os.Stat(ignorePath); err == nil {
		matcher, err := gitignore.NewGitIgnore(ignorePath)
		if err != nil {
			return nil, errkind.New(errkind.Scan, ignorePath, err)
		}
		s.ignore = matcher
	}

	return s, nil
}

func (s *Scanner) Root() string {
	return s.root
}

// Items yields discovered images lazily in deterministic order: entries of
// each directory sorted by name, subdirectories descended depth-first where
// they sort. Unreadable files and directories are yielded as warnings.
func (s *Scanner) Items(ctx context.Context) iter.Seq[Item] {
	return func(yield func(Item) bool) {
		w := &walker{
			s:       s,
			ctx:     ctx,
			yield:   yield,
			visited: make(map[string]bool),
		}
		w.walkDir(s.root, ".")
	}
}

// Collect drains Items into slices.
func (s *Scanner) Collect(ctx context.Context) ([]Entry, []Warning) {
	var entries []Entry
	var warnings []Warning
	for item := range s.Items(ctx) {
		if item.Warning != nil {
			warnings = append(warnings, *item.Warning)
			continue
		}
		entries = append(entries, item.Entry)
	}
	return entries, warnings
}

type walker struct {
	s       *Scanner
	ctx     context.Context
	yield   func(Item) bool
	visited map[string]bool
	index   int
}

func (w *walker) walkDir(dir, rel string) bool {
	if w.ctx != nil && w.ctx.Err() != nil {
		return false
	}

	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return w.warn(dir, err)
	}
	if w.visited[canonical] {
		return true
	}
	w.visited[canonical] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		return w.warn(dir, err)
	}
	if w.s.opts.Natural {
		sort.SliceStable(entries, func(i, j int) bool {
			return natural.Less(entries[i].Name(), entries[j].Name())
		})
	}

	for _, d := range entries {
		name := d.Name()
		if isHidden(name) {
			continue
		}

		full := filepath.Join(dir, name)
		relPath := path.Join(rel, name)
		allowed := w.s.exts[NormalizeExt(filepath.Ext(name))]

		isDir := d.IsDir()
		regular := d.Type().IsRegular()
		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(full)
			if err != nil {
				if allowed && !w.warn(full, err) {
					return false
				}
				continue
			}
			isDir = info.IsDir()
			regular = info.Mode().IsRegular()
		}

		if w.s.ignore != nil && w.s.ignore.Match(full, isDir) {
			continue
		}

		if isDir {
			if !w.s.opts.Recursive || w.excluded(full) {
				continue
			}
			if !w.walkDir(full, relPath) {
				return false
			}
			continue
		}
		if !regular || !allowed {
			continue
		}

		entry, err := w.entry(full, dir, name, relPath)
		if err != nil {
			if !w.warn(full, err) {
				return false
			}
			continue
		}
		if !w.yield(Item{Entry: entry}) {
			return false
		}
	}
	return true
}

func (w *walker) entry(full, dir, name, relPath string) (Entry, error) {
	file, err := os.Open(full)
	if err != nil {
		return Entry{}, err
	}
	// Content that cannot be sniffed still flows through; decoding reports it.
	sniffed, _ := imgutil.SniffReader(file)
	_ = file.Close()

	entry := Entry{
		Path:     full,
		Dir:      dir,
		Name:     name,
		RelPath:  relPath,
		Declared: imgutil.KindFromExt(filepath.Ext(name)),
		Sniffed:  sniffed,
		Index:    w.index,
	}
	w.index++
	return entry, nil
}

func (w *walker) warn(p string, err error) bool {
	return w.yield(Item{Warning: &Warning{Path: p, Err: err}})
}

func (w *walker) excluded(dir string) bool {
	for _, ex := range w.s.exclude {
		if isWithin(dir, ex) {
			return true
		}
	}
	return false
}

// NormalizeExt lowercases ext and ensures a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}

func isWithin(p string, root string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
