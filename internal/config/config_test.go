package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize default config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate default config: %v", err)
	}
	if cfg.Search.OverfetchFactor < 1 {
		t.Fatalf("default overfetch factor must be >= 1, got %d", cfg.Search.OverfetchFactor)
	}
}

func TestNormalizeDerivesSubdirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.DataDir = base
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Paths.IndexDir != filepath.Join(base, "index") {
		t.Fatalf("unexpected index dir %s", cfg.Paths.IndexDir)
	}
	if cfg.Paths.ArchiveDir != filepath.Join(base, "archives") {
		t.Fatalf("unexpected archive dir %s", cfg.Paths.ArchiveDir)
	}
	if cfg.Paths.LogDir != filepath.Join(base, "logs") {
		t.Fatalf("unexpected log dir %s", cfg.Paths.LogDir)
	}
}

func TestNormalizeCanonicalizesLanguage(t *testing.T) {
	cfg := Default()
	cfg.Script.CanonicalLanguage = "EN-us"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Script.CanonicalLanguage != "en-US" {
		t.Fatalf("expected canonical en-US, got %q", cfg.Script.CanonicalLanguage)
	}
}

func TestNormalizeRejectsBadLanguageTag(t *testing.T) {
	cfg := Default()
	cfg.Script.CanonicalLanguage = "not a language"
	if err := cfg.normalize(); err == nil {
		t.Fatal("expected error for invalid language tag")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero top_k", func(c *Config) { c.Search.DefaultTopK = 0 }},
		{"zero overfetch", func(c *Config) { c.Search.OverfetchFactor = 0 }},
		{"zero variants", func(c *Config) { c.Search.MaxVariants = 0 }},
		{"zero results per action", func(c *Config) { c.Script.ResultsPerAction = 0 }},
		{"zero workers", func(c *Config) { c.Ingest.Workers = 0 }},
		{"inverted scene bounds", func(c *Config) { c.Ingest.MaxSceneSeconds = 1 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				t.Fatalf("normalize: %v", err)
			}
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + dir + `"`,
		"[search]",
		"default_top_k = 5",
		"overfetch_factor = 4",
		"[llm]",
		`model = "demo/model"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved existing path %s, got %s (exists=%v)", path, resolved, exists)
	}
	if cfg.Search.DefaultTopK != 5 || cfg.Search.OverfetchFactor != 4 {
		t.Fatalf("file values not applied: %+v", cfg.Search)
	}
	if cfg.LLM.Model != "demo/model" {
		t.Fatalf("llm model not applied: %q", cfg.LLM.Model)
	}
	// Untouched sections keep defaults.
	if cfg.Script.ResultsPerAction != defaultResultsPerAction {
		t.Fatalf("expected default results per action, got %d", cfg.Script.ResultsPerAction)
	}
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	if _, _, _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.DataDir = base
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.IndexDir, cfg.Paths.ClipsDir, cfg.Paths.ArchiveDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", dir, err)
		}
	}
}
