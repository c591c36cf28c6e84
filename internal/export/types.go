package export

import (
	"errors"
	"time"

	"binder/internal/errkind"
)

// State is the lifecycle of one run.
type State string

const (
	StateIdle        State = "idle"
	StateScanning    State = "scanning"
	StateClassifying State = "classifying"
	StateExporting   State = "exporting"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

type Issue struct {
	Path    string       `json:"path,omitempty" yaml:"path,omitempty"`
	Kind    errkind.Kind `json:"kind" yaml:"kind"`
	Message string       `json:"message" yaml:"message"`
}

func issueFrom(path string, err error) Issue {
	issue := Issue{Path: path, Message: err.Error()}
	var e *errkind.Error
	if errors.As(err, &e) {
		issue.Kind = e.Kind
		if issue.Path == "" {
			issue.Path = e.Path
		}
		if e.Err != nil {
			issue.Message = e.Err.Error()
		}
	}
	return issue
}

type GroupReport struct {
	Label      string  `json:"label" yaml:"label"`
	Folder     string  `json:"folder" yaml:"folder"`
	Ungrouped  bool    `json:"ungrouped,omitempty" yaml:"ungrouped,omitempty"`
	Status     Status  `json:"status" yaml:"status"`
	OutputPath string  `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Pages      int     `json:"pages" yaml:"pages"`
	Total      int     `json:"total" yaml:"total"`
	Deleted    int     `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	Issues     []Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

type Report struct {
	Root     string        `json:"root" yaml:"root"`
	State    State         `json:"state" yaml:"state"`
	Partial  bool          `json:"partial,omitempty" yaml:"partial,omitempty"`
	Started  time.Time     `json:"started" yaml:"started"`
	Finished time.Time     `json:"finished" yaml:"finished"`
	Groups   []GroupReport `json:"groups" yaml:"groups"`
	Warnings []Issue       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Count returns how many groups ended with status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, g := range r.Groups {
		if g.Status == s {
			n++
		}
	}
	return n
}

// Issues counts issues across groups, scan warnings included.
func (r Report) Issues() int {
	n := len(r.Warnings)
	for _, g := range r.Groups {
		n += len(g.Issues)
	}
	return n
}

// Outputs lists the PDFs written in this run.
func (r Report) Outputs() []string {
	var out []string
	for _, g := range r.Groups {
		if g.OutputPath != "" {
			out = append(out, g.OutputPath)
		}
	}
	return out
}

// Progress is delivered after every page and every group.
type Progress struct {
	GroupsTotal       int
	GroupsDone        int
	PagesTotal        int
	PagesDone         int
	CurrentGroupLabel string
}
