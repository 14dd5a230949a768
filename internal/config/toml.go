// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultDebounce is the editor recompute delay after the last edit.
const DefaultDebounce = 3 * time.Second

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Scoring ScoringConfig `toml:"scoring"`
	Editor  EditorConfig  `toml:"editor"`
	Compare CompareConfig `toml:"compare"`
	Log     LogConfig     `toml:"log"`
	Storage StorageConfig `toml:"storage"`
}

// ScoringConfig maps default weighting scheme names per level.
type ScoringConfig struct {
	Safety      *string `toml:"safety"`
	Health      *string `toml:"health"`
	Environment *string `toml:"environment"`
	Instrument  *string `toml:"instrument"`
	Preparation *string `toml:"preparation"`
	Final       *string `toml:"final"`
}

// EditorConfig maps gradient editor settings.
type EditorConfig struct {
	DebounceMs *int `toml:"debounce-ms"`
}

// CompareConfig maps batch comparison settings.
type CompareConfig struct {
	Workers *int `toml:"workers"`
}

// LogConfig maps logger settings.
type LogConfig struct {
	Mode *string `toml:"mode"`
}

// StorageConfig maps database settings.
type StorageConfig struct {
	DB *string `toml:"db"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	if err := cfg.validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

func (c FileConfig) validate() error {
	if c.Editor.DebounceMs != nil && *c.Editor.DebounceMs < 0 {
		return fmt.Errorf("editor debounce-ms must be >= 0")
	}
	if c.Compare.Workers != nil && *c.Compare.Workers < 1 {
		return fmt.Errorf("compare workers must be >= 1")
	}
	return nil
}

// Schemes returns the configured scheme names keyed by level. Unset levels
// are omitted.
func (c ScoringConfig) Schemes() map[string]string {
	out := map[string]string{}
	set := func(level string, v *string) {
		if v != nil {
			out[level] = *v
		}
	}
	set("safety", c.Safety)
	set("health", c.Health)
	set("environment", c.Environment)
	set("instrument", c.Instrument)
	set("preparation", c.Preparation)
	set("final", c.Final)
	return out
}

// Debounce returns the configured debounce window or DefaultDebounce.
func (c EditorConfig) Debounce() time.Duration {
	if c.DebounceMs == nil {
		return DefaultDebounce
	}
	return time.Duration(*c.DebounceMs) * time.Millisecond
}
