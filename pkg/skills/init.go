package skills

import (
	"context"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jingkaihe/librarian/pkg/logger"
)

// CatalogConfig selects where the skill catalog is loaded from
type CatalogConfig struct {
	Manifests []string `mapstructure:"manifests"` // registry.yaml paths or patterns
	Dirs      []string `mapstructure:"dirs"`      // SKILL.md directories, highest precedence first
	Schemas   []string `mapstructure:"schemas"`   // roots scanned for schema.json
	Allowed   []string `mapstructure:"allowed"`   // glob allowlist of skill ids
}

// NewSource builds the combined source described by the config. When no
// location is configured the default SKILL.md directories are used.
func NewSource(cfg CatalogConfig) (Source, error) {
	var sources MultiSource

	if len(cfg.Manifests) > 0 {
		sources = append(sources, NewManifestSource(cfg.Manifests...))
	}
	if len(cfg.Schemas) > 0 {
		sources = append(sources, NewSchemaSource(cfg.Schemas...))
	}

	var opts []Option
	if len(cfg.Dirs) > 0 {
		opts = append(opts, WithSkillDirs(cfg.Dirs...))
	} else if len(sources) > 0 {
		return sources, nil
	}
	discovery, err := NewDiscovery(opts...)
	if err != nil {
		return nil, err
	}
	sources = append(sources, discovery)

	return sources, nil
}

// NewCatalogSource is NewSource with the allowlist of cfg applied on each load
func NewCatalogSource(cfg CatalogConfig) (Source, error) {
	src, err := NewSource(cfg)
	if err != nil {
		return nil, err
	}
	if len(cfg.Allowed) == 0 {
		return src, nil
	}
	return AllowlistSource{Source: src, Allowed: cfg.Allowed}, nil
}

// LoadCatalog loads records from the configured source and applies the
// allowlist. The result is not validated; pass it to NewRegistry.
func LoadCatalog(ctx context.Context, cfg CatalogConfig) ([]Record, error) {
	src, err := NewCatalogSource(cfg)
	if err != nil {
		return nil, err
	}

	records, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}

	logger.G(ctx).WithField("records", len(records)).WithField("allowed", cfg.Allowed).Debug("loaded skill catalog")
	return records, nil
}

// WatchPaths returns the files and directories a watcher should observe to
// notice catalog changes. Manifest patterns contribute their static base
// directory.
func WatchPaths(cfg CatalogConfig) ([]string, error) {
	var paths []string
	for _, pattern := range cfg.Manifests {
		if hasMeta(pattern) {
			base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
			paths = append(paths, filepath.FromSlash(base))
			continue
		}
		paths = append(paths, pattern)
	}
	paths = append(paths, cfg.Schemas...)

	dirs := cfg.Dirs
	if len(dirs) == 0 && len(cfg.Manifests) == 0 && len(cfg.Schemas) == 0 {
		d, err := NewDiscovery()
		if err != nil {
			return nil, err
		}
		dirs = d.Dirs()
	}
	return append(paths, dirs...), nil
}
