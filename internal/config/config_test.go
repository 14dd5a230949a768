package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Scoring.Final != nil || cfg.Editor.Debounce() != DefaultDebounce {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `[scoring]
final = "Complex_Prep"
safety = "Frontier_Focus"

[editor]
debounce-ms = 1500

[compare]
workers = 8

[log]
mode = "prod"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	schemes := cfg.Scoring.Schemes()
	if len(schemes) != 2 || schemes["final"] != "Complex_Prep" || schemes["safety"] != "Frontier_Focus" {
		t.Fatalf("unexpected schemes: %v", schemes)
	}
	if cfg.Editor.Debounce() != 1500*time.Millisecond {
		t.Fatalf("unexpected debounce: %v", cfg.Editor.Debounce())
	}
	if *cfg.Compare.Workers != 8 || *cfg.Log.Mode != "prod" || cfg.Storage.DB != nil {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unknownKey":  "[scoring]\ncolour = \"green\"\n",
		"zeroWorkers": "[compare]\nworkers = 0\n",
		"negDebounce": "[editor]\ndebounce-ms = -1\n",
		"wrongType":   "[compare]\nworkers = \"many\"\n",
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), name+".toml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	if got := DefaultConfigPath(); got != filepath.Join("/tmp/cfg", "hplcgreen", "config.toml") {
		t.Fatalf("unexpected config path: %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/tmp/data", "hplcgreen", "hplcgreen.db") {
		t.Fatalf("unexpected db path: %s", got)
	}
}
