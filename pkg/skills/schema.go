package skills

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

const schemaFilePattern = "**/schema.json"

// schemaDescriptor is the subset of a skill schema.json used for routing
type schemaDescriptor struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  json.RawMessage `json:"description"`
	Domain       string          `json:"domain"`
	Aliases      []string        `json:"aliases"`
	Tags         []string        `json:"tags"`
	Dependencies []dependencyRef `json:"dependencies"`
}

// dependencyRef is a dependency given either as a bare id or as {"id": ...}
type dependencyRef string

func (d *dependencyRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*d = dependencyRef(id)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.New("dependency must be a string or an object with an id")
	}
	*d = dependencyRef(obj.ID)
	return nil
}

// description accepts either a plain string or a {"short", "long"} object,
// preferring the short form.
func (s schemaDescriptor) description() string {
	if len(s.Description) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(s.Description, &text); err == nil {
		return text
	}
	var parts struct {
		Short string `json:"short"`
		Long  string `json:"long"`
	}
	if err := json.Unmarshal(s.Description, &parts); err == nil {
		if parts.Short != "" {
			return parts.Short
		}
		return parts.Long
	}
	return ""
}

func (s schemaDescriptor) dependencies() []string {
	deps := make([]string, 0, len(s.Dependencies))
	for _, d := range s.Dependencies {
		deps = append(deps, string(d))
	}
	return deps
}

// SchemaSource loads records from schema.json descriptors found anywhere
// below its root directories.
type SchemaSource struct {
	Roots []string
}

// NewSchemaSource creates a schema source scanning the given directories
func NewSchemaSource(roots ...string) *SchemaSource {
	return &SchemaSource{Roots: roots}
}

// Load implements Source. Missing roots are skipped; a malformed descriptor
// is an error naming the file.
func (s *SchemaSource) Load(_ context.Context) ([]Record, error) {
	var records []Record
	for _, root := range s.Roots {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			continue
		}

		matches, err := doublestar.Glob(os.DirFS(root), schemaFilePattern)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s", root)
		}

		for _, match := range matches {
			path := filepath.Join(root, filepath.FromSlash(match))
			rec, err := loadSchemaFile(path)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func loadSchemaFile(path string) (Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Record{}, errors.Wrapf(err, "failed to read %s", path)
	}

	var desc schemaDescriptor
	if err := json.Unmarshal(content, &desc); err != nil {
		return Record{}, errors.Wrapf(err, "failed to parse %s", path)
	}

	rec := Metadata{
		ID:           desc.ID,
		Name:         desc.Name,
		Description:  desc.description(),
		Aliases:      desc.Aliases,
		Tags:         desc.Tags,
		Dependencies: desc.dependencies(),
	}.Record()
	if desc.Domain != "" {
		rec.Section = desc.Domain
		rec.Tags = append(rec.Tags, desc.Domain)
	}
	rec.Source = path
	return rec, nil
}
