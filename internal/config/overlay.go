package config

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type SourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// OverlaySources merges an optional sources file into cfg. Entries replace
// configured sources with the same ID and are appended otherwise.
func OverlaySources(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var sf SourcesFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return err
	}

	idx := map[string]int{}
	for i, s := range cfg.Sources {
		idx[strings.ToLower(s.ID)] = i
	}
	for _, s := range sf.Sources {
		if i, ok := idx[strings.ToLower(s.ID)]; ok {
			cfg.Sources[i] = s
			continue
		}
		idx[strings.ToLower(s.ID)] = len(cfg.Sources)
		cfg.Sources = append(cfg.Sources, s)
	}
	return nil
}

// Overrides are the per-invocation CLI knobs.
type Overrides struct {
	Keywords  []string
	Countries []string
	Sources   []string // subset of configured source IDs
	DryRun    bool
}

// WithOverrides returns a new Config with o applied; cfg is not modified.
// Unknown source IDs are returned so the caller can warn about them.
func (c Config) WithOverrides(o Overrides) (Config, []string) {
	out := c
	if kw := trimList(o.Keywords); len(kw) > 0 {
		out.Search.Keywords = kw
	}
	if cs := trimList(o.Countries); len(cs) > 0 {
		out.Search.Countries = cs
	}
	if o.DryRun {
		out.App.DryRun = true
	}

	var unknown []string
	if want := trimList(o.Sources); len(want) > 0 {
		byID := map[string]Source{}
		for _, s := range c.Sources {
			byID[strings.ToLower(s.ID)] = s
		}
		out.Sources = nil
		for _, id := range want {
			s, ok := byID[strings.ToLower(id)]
			if !ok {
				unknown = append(unknown, id)
				continue
			}
			out.Sources = append(out.Sources, s)
		}
	}
	return out, unknown
}
