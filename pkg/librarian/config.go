package librarian

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/librarian/pkg/match"
	"github.com/jingkaihe/librarian/pkg/score"
	"github.com/jingkaihe/librarian/pkg/skills"
)

// Config holds the settings for building a Librarian and its watcher
type Config struct {
	Catalog       skills.CatalogConfig `mapstructure:"catalog"`
	Policy        PolicyConfig         `mapstructure:"policy"`
	Abbreviations map[string]string    `mapstructure:"abbreviations"`
	Watch         WatchConfig          `mapstructure:"watch"`
}

// PolicyConfig is the decision policy plus matcher tuning
type PolicyConfig struct {
	score.Policy   `mapstructure:",squash"`
	MinFuzzyLength int `mapstructure:"min_fuzzy_length"`
}

// WatchConfig configures catalog reloads on file changes
type WatchConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Debounce int  `mapstructure:"debounce"` // milliseconds
	Attempts int  `mapstructure:"attempts"` // reload attempts per change
}

// DebounceDuration returns the debounce delay as a duration
func (w WatchConfig) DebounceDuration() time.Duration {
	return time.Duration(w.Debounce) * time.Millisecond
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		Policy: PolicyConfig{
			Policy:         score.DefaultPolicy(),
			MinFuzzyLength: match.DefaultMinFuzzyLength,
		},
		Watch: WatchConfig{Debounce: 500, Attempts: 3},
	}
}

// Validate checks the config for values the pipeline cannot work with
func (c Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return errors.Wrap(err, "invalid policy")
	}
	if c.Policy.MinFuzzyLength < 1 {
		return errors.Errorf("min_fuzzy_length must be at least 1, got %d", c.Policy.MinFuzzyLength)
	}
	if c.Watch.Debounce < 0 {
		return errors.Errorf("debounce time cannot be negative: %d", c.Watch.Debounce)
	}
	if c.Watch.Attempts < 1 {
		return errors.Errorf("watch attempts must be at least 1, got %d", c.Watch.Attempts)
	}
	return nil
}

// GetConfigFromViper decodes the global viper settings over the defaults
func GetConfigFromViper() (Config, error) {
	return ConfigFromViper(viper.GetViper())
}

// ConfigFromViper decodes settings from v over the defaults. Keys that are
// not set keep their default values.
func ConfigFromViper(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode librarian config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
