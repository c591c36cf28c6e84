package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"binder/internal/assemble"
	"binder/internal/group"
	"binder/internal/scan"
)

// Placement chooses where a group's PDF lands relative to its folder.
type Placement string

const (
	PlaceInside Placement = "inside"
	PlaceBeside Placement = "beside"
)

func ParsePlacement(s string) (Placement, error) {
	switch Placement(strings.ToLower(s)) {
	case "", PlaceInside:
		return PlaceInside, nil
	case PlaceBeside:
		return PlaceBeside, nil
	default:
		return "", fmt.Errorf("unknown placement %q (want inside or beside)", s)
	}
}

// ExportConfig is the validated snapshot one run works from. Validate hands
// out fresh slices, so callers cannot reach back into Settings.
type ExportConfig struct {
	Extensions        []string
	Recursive         bool
	DeleteAfter       bool
	Page              assemble.Policy
	Template          string
	Placement         Placement
	OutputDir         string
	Merge             group.MergeMode
	Match             group.Target
	StopOnDecodeError bool
	Workers           int
	Natural           bool
	IgnoreFile        string
	Patterns          []group.Pattern
}

// Validate checks every setting and compiles every enabled pattern. Pattern
// problems come back as PatternError.
func (s Settings) Validate() (ExportConfig, error) {
	cfg := ExportConfig{
		Recursive:         s.Recursive,
		DeleteAfter:       s.DeleteAfter,
		StopOnDecodeError: s.StopOnDecodeError,
		Natural:           s.Natural,
		IgnoreFile:        s.IgnoreFile,
		Workers:           s.Workers,
	}

	seen := map[string]bool{}
	for _, ext := range s.Extensions {
		norm := scan.NormalizeExt(ext)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		cfg.Extensions = append(cfg.Extensions, norm)
	}
	if len(cfg.Extensions) == 0 {
		return ExportConfig{}, fmt.Errorf("extensions: at least one extension is required")
	}

	page, err := s.pagePolicy()
	if err != nil {
		return ExportConfig{}, err
	}
	cfg.Page = page

	cfg.Template = strings.TrimSpace(s.Template)
	if cfg.Template == "" {
		cfg.Template = Defaults().Template
	}
	if strings.ContainsAny(cfg.Template, `/\`) {
		return ExportConfig{}, fmt.Errorf("output_template: %q must not contain path separators", s.Template)
	}

	if cfg.Placement, err = ParsePlacement(s.Placement); err != nil {
		return ExportConfig{}, err
	}
	if cfg.Merge, err = group.ParseMergeMode(s.Merge); err != nil {
		return ExportConfig{}, err
	}
	if cfg.Match, err = group.ParseTarget(s.Match); err != nil {
		return ExportConfig{}, err
	}

	if s.OutputDir != "" {
		abs, err := filepath.Abs(s.OutputDir)
		if err != nil {
			return ExportConfig{}, fmt.Errorf("output_dir: %w", err)
		}
		cfg.OutputDir = abs
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	for _, p := range s.Patterns {
		if !p.IsEnabled() {
			continue
		}
		cfg.Patterns = append(cfg.Patterns, group.Pattern{Priority: p.Priority, Regex: p.Regex, Label: p.Label})
	}
	if _, err := group.NewRegistry(cfg.Patterns...); err != nil {
		return ExportConfig{}, err
	}

	return cfg, nil
}

func (s Settings) pagePolicy() (assemble.Policy, error) {
	mode, err := assemble.ParsePageMode(s.PageMode)
	if err != nil {
		return assemble.Policy{}, err
	}
	if mode == assemble.PageFit {
		return assemble.Policy{Mode: mode}, nil
	}

	policy := assemble.Policy{Mode: mode}
	switch {
	case s.PageWidth > 0 || s.PageHeight > 0:
		policy.Fixed = assemble.PageSize{Width: s.PageWidth, Height: s.PageHeight}
	case s.PageSize != "":
		size, ok := assemble.Preset(s.PageSize)
		if !ok {
			return assemble.Policy{}, fmt.Errorf("page_size: unknown preset %q", s.PageSize)
		}
		policy.Fixed = size
	}
	if err := policy.Validate(); err != nil {
		return assemble.Policy{}, err
	}
	return policy, nil
}
