// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/olegiv/ocms-migrate/internal/model"
)

// Profile holds per-site migration settings kept in a YAML file next to
// the export.
type Profile struct {
	OldBaseURL  string            `yaml:"oldBaseUrl"`
	NewBaseURL  string            `yaml:"newBaseUrl"`
	KeepClasses []string          `yaml:"keepClasses"` // exact names or /regex/
	RemoveEmpty *bool             `yaml:"removeEmpty"`
	Semantic    *bool             `yaml:"semantic"`
	PageTypes   map[string]string `yaml:"pageTypes"` // page slug -> page type
}

// LoadProfile reads a profile file. An empty path returns an empty profile.
func LoadProfile(path string) (*Profile, error) {
	p := &Profile{}
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}

	if err := CheckBaseURL("oldBaseUrl", p.OldBaseURL, false); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	if err := CheckBaseURL("newBaseUrl", p.NewBaseURL, true); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}

	for slug, pageType := range p.PageTypes {
		if !model.IsValidPageType(pageType) {
			return nil, fmt.Errorf("profile %s: page %q has unknown page type %q", path, slug, pageType)
		}
	}
	return p, nil
}

// Apply overrides environment settings with the profile's base URLs.
func (p *Profile) Apply(cfg *Config) {
	if p.OldBaseURL != "" {
		cfg.OldBaseURL = p.OldBaseURL
	}
	if p.NewBaseURL != "" {
		cfg.NewBaseURL = p.NewBaseURL
	}
}

// RemoveEmptyEnabled reports whether empty-element removal is on. Defaults to true.
func (p *Profile) RemoveEmptyEnabled() bool {
	return p.RemoveEmpty == nil || *p.RemoveEmpty
}

// SemanticEnabled reports whether widget conversion is on. Defaults to true.
func (p *Profile) SemanticEnabled() bool {
	return p.Semantic == nil || *p.Semantic
}

// PageType returns the page type override for a slug.
func (p *Profile) PageType(slug string) (string, bool) {
	t, ok := p.PageTypes[slug]
	return t, ok
}
