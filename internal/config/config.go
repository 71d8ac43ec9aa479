package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	IndexDir      string `toml:"index_dir"`
	ArchiveDir    string `toml:"archive_dir"`
	ClipsDir      string `toml:"clips_dir"`
	ThumbnailsDir string `toml:"thumbnails_dir"`
	LogDir        string `toml:"log_dir"`
}

// LLM contains connection settings for the generative model used by query
// expansion, script translation, and script decomposition.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Embedding contains connection settings for the text embedding model.
type Embedding struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Search contains tuning knobs for the scene search engine.
type Search struct {
	// DefaultTopK is the result count used when a caller does not specify one.
	DefaultTopK int `toml:"default_top_k"`
	// MaxVariants caps how many expanded query variants are searched.
	MaxVariants int `toml:"max_variants"`
	// OverfetchFactor multiplies top_k on each per-variant store query so
	// near-duplicate variants still leave enough candidates after merging.
	// Must be at least 1.
	OverfetchFactor int `toml:"overfetch_factor"`
}

// Script contains settings for script-to-sequence search.
type Script struct {
	// CanonicalLanguage is the BCP 47 tag scripts are translated into before
	// decomposition. Default: "en".
	CanonicalLanguage string `toml:"canonical_language"`
	// ResultsPerAction is the default footage option count per action.
	ResultsPerAction int `toml:"results_per_action"`
}

// Ingest contains settings for the indexing pipeline.
type Ingest struct {
	// Workers bounds concurrent per-clip analysis calls.
	Workers int `toml:"workers"`
	// SceneThreshold is passed to the scene detector (higher = fewer scenes).
	SceneThreshold float64 `toml:"scene_threshold"`
	// MinSceneSeconds merges scenes shorter than this into their neighbor.
	MinSceneSeconds float64 `toml:"min_scene_seconds"`
	// MaxSceneSeconds splits scenes longer than this.
	MaxSceneSeconds float64 `toml:"max_scene_seconds"`
	FFmpegBinary    string  `toml:"ffmpeg_binary"`
	FFprobeBinary   string  `toml:"ffprobe_binary"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for takeone.
//
// Sections by subsystem:
//   - Paths: data, index, archive, clip, thumbnail, and log directories
//   - LLM: generative model connection for expansion/translation/decomposition
//   - Embedding: text embedding model connection
//   - Search: fan-out and merge tuning
//   - Script: script-to-sequence settings
//   - Ingest: indexing pipeline settings
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	LLM       LLM       `toml:"llm"`
	Embedding Embedding `toml:"embedding"`
	Search    Search    `toml:"search"`
	Script    Script    `toml:"script"`
	Ingest    Ingest    `toml:"ingest"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/takeone/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return value
// is the resolved path and the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed != "" {
		expanded, err := ExpandPath(trimmed)
		if err != nil {
			return "", false, err
		}
		exists, err := fileExists(expanded)
		if err != nil {
			return "", false, err
		}
		if !exists {
			return "", false, fmt.Errorf("config file not found: %s", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	exists, err := fileExists(defaultPath)
	if err != nil {
		return "", false, err
	}
	return defaultPath, exists, nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("config path is a directory: %s", path)
	}
	return true, nil
}

// EnsureDirectories creates every configured directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.DataDir,
		c.Paths.IndexDir,
		c.Paths.ArchiveDir,
		c.Paths.ClipsDir,
		c.Paths.ThumbnailsDir,
		c.Paths.LogDir,
	} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists: %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath resolves ~ and environment variables to an absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	expanded := os.ExpandEnv(trimmed)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~"))
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", expanded, err)
	}
	return abs, nil
}
