package group

import (
	"fmt"
	"path/filepath"

	"binder/internal/scan"
)

// Target selects what a pattern is matched against.
type Target string

const (
	MatchFilename Target = "filename"
	MatchPath     Target = "path"
)

func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case "", MatchFilename:
		return MatchFilename, nil
	case MatchPath:
		return MatchPath, nil
	default:
		return "", fmt.Errorf("unknown match target %q (want filename or path)", s)
	}
}

// Assignment is the outcome of classifying one entry. Rule is nil when the
// entry fell through to its folder's ungrouped group.
type Assignment struct {
	Label     string
	Ungrouped bool
	Rule      *Rule
}

type Classifier struct {
	rules  []Rule
	target Target
}

// NewClassifier snapshots the registry; later additions to reg do not affect
// the classifier.
func NewClassifier(reg *Registry, target Target) *Classifier {
	c := &Classifier{target: target}
	if reg != nil {
		c.rules = reg.Rules()
	}
	if c.target == "" {
		c.target = MatchFilename
	}
	return c
}

// Classify returns the first rule matching the entry. Only the entry's name
// (or relative path) is consulted, so the result never depends on scan order.
func (c *Classifier) Classify(e scan.Entry) Assignment {
	subject := e.Name
	if c.target == MatchPath {
		subject = e.RelPath
	}

	for i := range c.rules {
		if label, ok := c.rules[i].match(subject); ok {
			return Assignment{Label: label, Rule: &c.rules[i]}
		}
	}
	return Assignment{Label: UngroupedLabel(e.Dir), Ungrouped: true}
}

// UngroupedLabel names the reserved group of dir after the folder itself.
func UngroupedLabel(dir string) string {
	name := filepath.Base(dir)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "ungrouped"
	}
	return name
}
