package skills

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/jingkaihe/librarian/pkg/logger"
)

const skillFileName = "SKILL.md"

// frontmatter only needs the metadata extension; the rendered body is discarded
var frontmatter = goldmark.New(goldmark.WithExtensions(meta.Meta))

// Discovery reads skills laid out as <dir>/<skill>/SKILL.md, where the YAML
// frontmatter of each SKILL.md carries the routing metadata.
type Discovery struct {
	dirs []string
}

// Option configures a Discovery
type Option func(*Discovery) error

// WithSkillDirs scans dirs, highest precedence first
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.dirs = dirs
		return nil
	}
}

// WithDefaultDirs scans ./.librarian/skills and then ~/.librarian/skills
func WithDefaultDirs() Option {
	return func(d *Discovery) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		d.dirs = []string{
			"./.librarian/skills",
			filepath.Join(home, ".librarian", "skills"),
		}
		return nil
	}
}

// NewDiscovery returns a Discovery over the default dirs unless options say
// otherwise.
func NewDiscovery(opts ...Option) (*Discovery, error) {
	if len(opts) == 0 {
		opts = []Option{WithDefaultDirs()}
	}

	d := &Discovery{}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Dirs returns the directories scanned, in precedence order
func (d *Discovery) Dirs() []string {
	return append([]string(nil), d.dirs...)
}

// Load implements Source. A skill id found in an earlier directory shadows
// the same id in later ones. Missing directories are ignored and skill
// directories whose SKILL.md cannot be used are skipped.
func (d *Discovery) Load(ctx context.Context) ([]Record, error) {
	seen := make(map[string]struct{})
	var records []Record

	for _, dir := range d.dirs {
		for _, rec := range scanSkillDir(ctx, dir) {
			if _, dup := seen[rec.ID]; dup {
				logger.G(ctx).WithField("skill", rec.ID).WithField("source", rec.Source).Debug("skill shadowed by a higher precedence directory")
				continue
			}
			seen[rec.ID] = struct{}{}
			records = append(records, rec)
		}
	}
	return records, nil
}

// scanSkillDir returns the skills under dir in entry name order. Entries are
// stat'ed rather than read from the dirent so symlinked skills are followed.
func scanSkillDir(ctx context.Context, dir string) []Record {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var records []Record
	for _, entry := range entries {
		skillDir := filepath.Join(dir, entry.Name())
		if fi, err := os.Stat(skillDir); err != nil || !fi.IsDir() {
			continue
		}

		path := filepath.Join(skillDir, skillFileName)
		rec, err := readSkillFile(path)
		if err != nil {
			if !os.IsNotExist(errors.Cause(err)) {
				logger.G(ctx).WithError(err).WithField("path", path).Debug("skipping skill")
			}
			continue
		}
		records = append(records, rec)
	}
	return records
}

// readSkillFile decodes the frontmatter of one SKILL.md. A name and a
// description are required.
func readSkillFile(path string) (Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to read skill file")
	}

	pctx := parser.NewContext()
	if err := frontmatter.Convert(content, io.Discard, parser.WithContext(pctx)); err != nil {
		return Record{}, errors.Wrap(err, "failed to parse markdown")
	}
	fields := meta.Get(pctx)
	if fields == nil {
		return Record{}, errors.New("missing frontmatter")
	}

	var m Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &m,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to create frontmatter decoder")
	}
	if err := decoder.Decode(fields); err != nil {
		return Record{}, errors.Wrapf(err, "invalid frontmatter in %s", path)
	}

	switch {
	case m.Name == "" && m.ID == "":
		return Record{}, errors.New("skill name is required in frontmatter")
	case m.Description == "":
		return Record{}, errors.New("skill description is required in frontmatter")
	}

	rec := m.Record()
	rec.Source = path
	return rec, nil
}
