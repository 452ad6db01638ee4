package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/librarian/pkg/librarian"
	"github.com/jingkaihe/librarian/pkg/skills"
)

// exitError ends the process with code after the command already reported
// the failure itself.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// outputFormat returns the --output value, validated
func outputFormat() (string, error) {
	format := viper.GetString("output")
	switch format {
	case "", "text":
		return "text", nil
	case "json":
		return "json", nil
	default:
		return "", errors.Errorf("unsupported output format %q, must be text or json", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "failed to encode output")
}

// loadLibrarian reads the config and catalog and returns a ready Librarian
func loadLibrarian(ctx context.Context) (*librarian.Librarian, librarian.Config, error) {
	cfg, err := librarian.GetConfigFromViper()
	if err != nil {
		return nil, librarian.Config{}, err
	}

	lib, err := librarian.NewFromConfig(cfg)
	if err != nil {
		return nil, librarian.Config{}, err
	}

	records, err := skills.LoadCatalog(ctx, cfg.Catalog)
	if err != nil {
		return nil, librarian.Config{}, errors.Wrap(err, "failed to load skill catalog")
	}
	if _, err := lib.Reload(ctx, records); err != nil {
		return nil, librarian.Config{}, err
	}
	return lib, cfg, nil
}
