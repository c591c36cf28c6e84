// Package group holds the priority-ordered pattern registry, the classifier
// that maps scanned images onto group labels, and the resulting groups.
package group

import (
	"fmt"
	"regexp"
	"sort"

	"binder/internal/errkind"
)

// captureName is the named subexpression used as the label when a pattern
// has no explicit label.
const captureName = "name"

type Pattern struct {
	Priority int
	Regex    string
	Label    string
}

// Rule is a compiled Pattern. Seq is its registration order.
type Rule struct {
	Pattern
	Seq int
	re  *regexp.Regexp
}

// Registry keeps rules sorted by ascending priority; equal priorities keep
// registration order.
type Registry struct {
	rules []Rule
	next  int
}

// NewRegistry compiles and registers patterns in the given order. The first
// invalid pattern aborts with a PatternError.
func NewRegistry(patterns ...Pattern) (*Registry, error) {
	r := &Registry{}
	for _, p := range patterns {
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add compiles p and inserts it after every rule with the same or lower
// priority.
func (r *Registry) Add(p Pattern) error {
	re, err := regexp.Compile(p.Regex)
	if err != nil {
		return errkind.New(errkind.Pattern, p.Regex, err)
	}
	if p.Label == "" && re.SubexpIndex(captureName) < 0 {
		return errkind.Errorf(errkind.Pattern, p.Regex, "pattern needs a label or a (?P<%s>...) group", captureName)
	}

	rule := Rule{Pattern: p, Seq: r.next, re: re}
	r.next++

	at := sort.Search(len(r.rules), func(i int) bool {
		return r.rules[i].Priority > p.Priority
	})
	r.rules = append(r.rules, Rule{})
	copy(r.rules[at+1:], r.rules[at:])
	r.rules[at] = rule
	return nil
}

// Rules returns the rules in evaluation order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

func (r *Registry) Len() int {
	return len(r.rules)
}

// match returns the expanded label when the rule matches s.
func (rule Rule) match(s string) (string, bool) {
	loc := rule.re.FindStringSubmatchIndex(s)
	if loc == nil {
		return "", false
	}

	template := rule.Label
	if template == "" {
		template = "${" + captureName + "}"
	}
	label := string(rule.re.ExpandString(nil, template, s, loc))
	if label == "" {
		return "", false
	}
	return label, true
}

func (rule Rule) String() string {
	return fmt.Sprintf("%d:%s->%s", rule.Priority, rule.Regex, rule.Label)
}
