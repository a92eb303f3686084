package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"tubeclone/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed pools.yaml
var defaultPoolsYAML []byte

// Channel is a fixed uploader identity.
type Channel struct {
	Name   string `yaml:"name"`
	Avatar string `yaml:"avatar"`
}

// Pools is the fixed material records are generated from.
type Pools struct {
	Channels   []Channel           `yaml:"channels"`
	Durations  []string            `yaml:"durations"`
	Generic    []string            `yaml:"generic"`
	Themes     map[string][]string `yaml:"themes"`
	Categories []models.Category   `yaml:"categories"`
}

// ParsePools decodes and checks a pools document.
func ParsePools(raw []byte) (*Pools, error) {
	var p Pools
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse pools: %w", err)
	}
	switch {
	case len(p.Channels) == 0:
		return nil, fmt.Errorf("parse pools: no channels")
	case len(p.Durations) == 0:
		return nil, fmt.Errorf("parse pools: no durations")
	case len(p.Generic) == 0:
		return nil, fmt.Errorf("parse pools: no generic titles")
	}
	for theme, titles := range p.Themes {
		if len(titles) == 0 {
			return nil, fmt.Errorf("parse pools: theme %q has no titles", theme)
		}
	}
	return &p, nil
}

// DefaultPools returns the embedded pools.
func DefaultPools() *Pools {
	p, err := ParsePools(defaultPoolsYAML)
	if err != nil {
		panic(err)
	}
	return p
}

// Titles returns the pool for theme, or the generic pool when theme has none.
func (p *Pools) Titles(theme string) []string {
	if titles, ok := p.Themes[theme]; ok {
		return titles
	}
	return p.Generic
}

// ThemeOf recovers the theme encoded in a record id of the form
// <theme>-<n>-<suffix>. It returns "" for generic or unrecognized ids.
func (p *Pools) ThemeOf(id string) string {
	best := ""
	for theme := range p.Themes {
		if strings.HasPrefix(id, theme+"-") && len(theme) > len(best) {
			best = theme
		}
	}
	return best
}

// themeNames lists themes in a stable order.
func (p *Pools) themeNames() []string {
	names := make([]string, 0, len(p.Themes))
	for theme := range p.Themes {
		names = append(names, theme)
	}
	sort.Strings(names)
	return names
}
