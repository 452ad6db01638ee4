package skills

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Top-level manifest keys that never hold skill lists
var reservedManifestKeys = map[string]bool{
	"version":   true,
	"templates": true,
}

// Manifest is the flat form of a registry.yaml document. Grouped manifests
// use any other top-level key (e.g. "foundation", "discovery") in place of
// "skills"; the key becomes the Section of each record.
type Manifest struct {
	Version string          `yaml:"version,omitempty" json:"version,omitempty" jsonschema:"description=Manifest format version"`
	Skills  []ManifestEntry `yaml:"skills" json:"skills" jsonschema:"description=Skill entries"`
}

// ManifestEntry is one skill entry of a registry.yaml manifest
type ManifestEntry struct {
	ID           string   `yaml:"id,omitempty" json:"id,omitempty" jsonschema:"description=Unique stable skill id; defaults to name"`
	Name         string   `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"description=Skill name"`
	DisplayName  string   `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Path         string   `yaml:"path,omitempty" json:"path,omitempty" jsonschema:"description=Location of the skill body relative to the manifest"`
	Description  string   `yaml:"description,omitempty" json:"description,omitempty"`
	Aliases      []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Tags         []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
}

func (e ManifestEntry) record(section, manifestPath string) Record {
	rec := Metadata{
		ID:           e.ID,
		Name:         e.Name,
		DisplayName:  e.DisplayName,
		Description:  e.Description,
		Aliases:      e.Aliases,
		Tags:         e.Tags,
		Dependencies: e.Dependencies,
	}.Record()
	rec.Section = section
	rec.Source = manifestPath
	if e.Path != "" {
		rec.Source = filepath.Join(filepath.Dir(manifestPath), filepath.FromSlash(e.Path))
	}
	return rec
}

// ManifestSource loads records from registry.yaml manifests. Each path may be
// a doublestar pattern; a literal path that does not exist is an error.
type ManifestSource struct {
	Paths []string
}

// NewManifestSource creates a manifest source for the given paths or patterns
func NewManifestSource(paths ...string) *ManifestSource {
	return &ManifestSource{Paths: paths}
}

// Load implements Source
func (s *ManifestSource) Load(_ context.Context) ([]Record, error) {
	var records []Record
	for _, pattern := range s.Paths {
		files, err := expandPattern(pattern)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			recs, err := LoadManifest(file)
			if err != nil {
				return nil, err
			}
			records = append(records, recs...)
		}
	}
	return records, nil
}

func expandPattern(pattern string) ([]string, error) {
	if !hasMeta(pattern) {
		if _, err := os.Stat(pattern); err != nil {
			return nil, errors.Wrapf(err, "manifest %s not found", pattern)
		}
		return []string{pattern}, nil
	}
	files, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid manifest pattern %q", pattern)
	}
	return files, nil
}

func hasMeta(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// LoadManifest reads one registry.yaml file. Sections are visited in document
// order so the resulting records are stable.
func LoadManifest(path string) ([]Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read manifest %s", path)
	}
	records, err := ParseManifest(content, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse manifest %s", path)
	}
	return records, nil
}

// ParseManifest decodes manifest content. path is recorded as the source of
// each record and anchors relative entry paths.
func ParseManifest(content []byte, path string) ([]Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("manifest must be a mapping of sections")
	}

	var records []Record
	for i := 0; i+1 < len(root.Content); i += 2 {
		section := root.Content[i].Value
		value := root.Content[i+1]
		if reservedManifestKeys[section] || value.Kind != yaml.SequenceNode {
			continue
		}

		var entries []ManifestEntry
		if err := value.Decode(&entries); err != nil {
			return nil, errors.Wrapf(err, "section %q", section)
		}

		if section == "skills" {
			section = ""
		}
		for _, entry := range entries {
			records = append(records, entry.record(section, path))
		}
	}
	return records, nil
}
