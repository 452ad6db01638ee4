package skills

import (
	"context"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// Source supplies the records a Registry is built from
type Source interface {
	Load(ctx context.Context) ([]Record, error)
}

// MultiSource concatenates the records of several sources in order
type MultiSource []Source

// Load implements Source
func (m MultiSource) Load(ctx context.Context) ([]Record, error) {
	var records []Record
	for _, src := range m {
		recs, err := src.Load(ctx)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

// StaticSource serves a fixed set of records
type StaticSource []Record

// Load implements Source
func (s StaticSource) Load(_ context.Context) ([]Record, error) {
	out := make([]Record, len(s))
	for i, rec := range s {
		out[i] = rec.clone()
	}
	return out, nil
}

// FilterByAllowlist keeps records whose id matches any of the glob patterns,
// together with everything they transitively depend on so the result still
// validates. If the allowlist is empty, all records are returned.
func FilterByAllowlist(records []Record, allowed []string) ([]Record, error) {
	if len(allowed) == 0 {
		return records, nil
	}

	patterns := make([]glob.Glob, 0, len(allowed))
	for _, pattern := range allowed {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid allowlist pattern %q", pattern)
		}
		patterns = append(patterns, g)
	}

	byID := make(map[string]Record, len(records))
	for _, rec := range records {
		if _, ok := byID[rec.ID]; !ok {
			byID[rec.ID] = rec
		}
	}

	keep := make(map[string]bool)
	var visit func(id string)
	visit = func(id string) {
		if keep[id] {
			return
		}
		keep[id] = true
		for _, dep := range byID[id].Dependencies {
			visit(dep)
		}
	}

	for _, rec := range records {
		for _, g := range patterns {
			if g.Match(rec.ID) {
				visit(rec.ID)
				break
			}
		}
	}

	filtered := make([]Record, 0, len(keep))
	for _, rec := range records {
		if keep[rec.ID] {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// AllowlistSource applies FilterByAllowlist to every load of Source
type AllowlistSource struct {
	Source  Source
	Allowed []string
}

// Load implements Source
func (a AllowlistSource) Load(ctx context.Context) ([]Record, error) {
	records, err := a.Source.Load(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByAllowlist(records, a.Allowed)
}
