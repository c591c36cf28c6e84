// Package config loads binder settings and turns them into the immutable
// snapshot an export run works from.
package config

import (
	"github.com/google/uuid"
	"github.com/spf13/viper"

	"binder/internal/scan"
)

// LegacyPatternID marks the pattern migrated from a single grouping_pattern.
const LegacyPatternID = "migrated_default"

type PatternSetting struct {
	ID          string `mapstructure:"id" yaml:"id"`
	Priority    int    `mapstructure:"priority" yaml:"priority"`
	Regex       string `mapstructure:"regex" yaml:"regex"`
	Label       string `mapstructure:"label" yaml:"label,omitempty"`
	Description string `mapstructure:"description" yaml:"description,omitempty"`
	Enabled     *bool  `mapstructure:"enabled" yaml:"enabled,omitempty"`
}

// IsEnabled treats a missing flag as enabled.
func (p PatternSetting) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Settings mirrors binder.yaml. Zero values are filled from Defaults.
type Settings struct {
	Extensions        []string         `mapstructure:"extensions" yaml:"extensions"`
	Recursive         bool             `mapstructure:"recursive" yaml:"recursive"`
	DeleteAfter       bool             `mapstructure:"delete_after_convert" yaml:"delete_after_convert"`
	PageMode          string           `mapstructure:"page_mode" yaml:"page_mode"`
	PageSize          string           `mapstructure:"page_size" yaml:"page_size,omitempty"`
	PageWidth         float64          `mapstructure:"page_width" yaml:"page_width,omitempty"`
	PageHeight        float64          `mapstructure:"page_height" yaml:"page_height,omitempty"`
	Template          string           `mapstructure:"output_template" yaml:"output_template"`
	Placement         string           `mapstructure:"placement" yaml:"placement"`
	OutputDir         string           `mapstructure:"output_dir" yaml:"output_dir,omitempty"`
	Merge             string           `mapstructure:"merge" yaml:"merge"`
	Match             string           `mapstructure:"match" yaml:"match"`
	StopOnDecodeError bool             `mapstructure:"stop_on_decode_error" yaml:"stop_on_decode_error"`
	Workers           int              `mapstructure:"workers" yaml:"workers"`
	Natural           bool             `mapstructure:"natural_sort" yaml:"natural_sort"`
	IgnoreFile        string           `mapstructure:"ignore_file" yaml:"ignore_file,omitempty"`
	LogDir            string           `mapstructure:"log_dir" yaml:"log_dir,omitempty"`
	Journal           string           `mapstructure:"journal" yaml:"journal,omitempty"`
	Patterns          []PatternSetting `mapstructure:"patterns" yaml:"patterns,omitempty"`

	// GroupingPattern is the old single-pattern setting, folded into
	// Patterns by Migrate.
	GroupingPattern string `mapstructure:"grouping_pattern" yaml:"grouping_pattern,omitempty"`
}

func Defaults() Settings {
	return Settings{
		Extensions: append([]string(nil), scan.DefaultExtensions...),
		PageMode:   "fit",
		PageSize:   "a4",
		Template:   "{label}",
		Placement:  string(PlaceInside),
		Merge:      "folder",
		Match:      "filename",
		Workers:    1,
		IgnoreFile: scan.DefaultIgnoreFile,
	}
}

// SetDefaults registers Defaults with v so unset keys still resolve.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("recursive", d.Recursive)
	v.SetDefault("delete_after_convert", d.DeleteAfter)
	v.SetDefault("page_mode", d.PageMode)
	v.SetDefault("page_size", d.PageSize)
	v.SetDefault("output_template", d.Template)
	v.SetDefault("placement", d.Placement)
	v.SetDefault("merge", d.Merge)
	v.SetDefault("match", d.Match)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("natural_sort", d.Natural)
	v.SetDefault("ignore_file", d.IgnoreFile)
}

// FromViper decodes the merged flag, env and file view held by v.
func FromViper(v *viper.Viper) (Settings, error) {
	s := Defaults()
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, err
	}
	s.Migrate()
	return s, nil
}

// Migrate turns a legacy grouping_pattern into a one-element pattern list.
// Settings that already carry patterns are left alone.
func (s *Settings) Migrate() {
	if len(s.Patterns) == 0 && s.GroupingPattern != "" {
		s.Patterns = []PatternSetting{{
			ID:          LegacyPatternID,
			Regex:       s.GroupingPattern,
			Description: "migrated from grouping_pattern",
		}}
	}
	s.GroupingPattern = ""
}

// AddPattern appends p with a fresh id and returns the id.
func (s *Settings) AddPattern(p PatternSetting) string {
	p.ID = uuid.NewString()
	s.Patterns = append(s.Patterns, p)
	return p.ID
}

func (s *Settings) RemovePattern(id string) bool {
	for i, p := range s.Patterns {
		if p.ID == id {
			s.Patterns = append(s.Patterns[:i], s.Patterns[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Settings) SetPatternEnabled(id string, enabled bool) bool {
	for i := range s.Patterns {
		if s.Patterns[i].ID == id {
			on := enabled
			s.Patterns[i].Enabled = &on
			return true
		}
	}
	return false
}
