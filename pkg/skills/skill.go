// Package skills provides the skill catalog used by the librarian: the
// record type describing one skill, the immutable Registry built from a set of
// records, and the sources that load records from SKILL.md directories,
// registry.yaml manifests and schema.json descriptors.
package skills

import (
	"sort"
	"strings"
)

// Record represents one catalog entry with its routing metadata
type Record struct {
	ID           string   `json:"id" yaml:"id" mapstructure:"id"`
	DisplayName  string   `json:"display_name,omitempty" yaml:"display_name,omitempty" mapstructure:"display_name"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Aliases      []string `json:"aliases,omitempty" yaml:"aliases,omitempty" mapstructure:"aliases"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty" mapstructure:"tags"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty" mapstructure:"dependencies"`

	Section string `json:"section,omitempty" yaml:"-" mapstructure:"-"` // Manifest group, e.g. "foundation"
	Source  string `json:"source,omitempty" yaml:"-" mapstructure:"-"`  // File the record was loaded from
}

// Metadata represents the YAML frontmatter in SKILL.md files
type Metadata struct {
	ID           string   `mapstructure:"id"`
	Name         string   `mapstructure:"name"`
	DisplayName  string   `mapstructure:"display_name"`
	Description  string   `mapstructure:"description"`
	Aliases      []string `mapstructure:"aliases"`
	Tags         []string `mapstructure:"tags"`
	Dependencies []string `mapstructure:"dependencies"`
}

// Record converts frontmatter metadata into a catalog record. The id falls
// back to the name when no explicit id is given.
func (m Metadata) Record() Record {
	id := m.ID
	if id == "" {
		id = m.Name
	}
	displayName := m.DisplayName
	if displayName == "" && m.Name != id {
		displayName = m.Name
	}
	return Record{
		ID:           id,
		DisplayName:  displayName,
		Description:  m.Description,
		Aliases:      m.Aliases,
		Tags:         m.Tags,
		Dependencies: m.Dependencies,
	}
}

// normalized returns a copy of the record with trimmed identity fields,
// lowercased de-duplicated alias and tag sets, and de-duplicated dependencies.
func (r Record) normalized() Record {
	out := r
	out.ID = strings.TrimSpace(r.ID)
	out.DisplayName = strings.TrimSpace(r.DisplayName)
	out.Description = strings.TrimSpace(r.Description)
	out.Aliases = normalizeSet(r.Aliases)
	out.Tags = normalizeSet(r.Tags)

	seen := make(map[string]bool, len(r.Dependencies))
	out.Dependencies = make([]string, 0, len(r.Dependencies))
	for _, dep := range r.Dependencies {
		dep = strings.TrimSpace(dep)
		if dep == "" || seen[dep] {
			continue
		}
		seen[dep] = true
		out.Dependencies = append(out.Dependencies, dep)
	}
	return out
}

func (r Record) clone() Record {
	out := r
	out.Aliases = append([]string(nil), r.Aliases...)
	out.Tags = append([]string(nil), r.Tags...)
	out.Dependencies = append([]string(nil), r.Dependencies...)
	return out
}

func normalizeSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// nameKey turns a display name into an index key: lowercase with runs of
// whitespace joined by hyphens, matching how the normalizer joins words.
func nameKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
