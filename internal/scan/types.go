package scan

import "binder/pkg/imgutil"

// DefaultExtensions mirrors the formats the assembler can decode.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".gif", ".tiff", ".tif", ".webp"}

type Options struct {
	Extensions  []string
	Recursive   bool
	Natural     bool
	IgnoreFile  string
	ExcludeDirs []string
}

// Entry is one discovered image. Dir is the containing folder, RelPath is
// slash separated and relative to the scan root.
type Entry struct {
	Path     string
	Dir      string
	Name     string
	RelPath  string
	Declared imgutil.Kind
	Sniffed  imgutil.Kind
	Index    int
}

// Format prefers the sniffed kind over the one declared by the extension.
func (e Entry) Format() imgutil.Kind {
	if e.Sniffed != imgutil.KindUnknown {
		return e.Sniffed
	}
	return e.Declared
}

type Warning struct {
	Path string
	Err  error
}

// Item is either an Entry or, when Warning is set, a path that was skipped.
type Item struct {
	Entry   Entry
	Warning *Warning
}
