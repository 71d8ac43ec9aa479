package testsupport

import (
	"path/filepath"
	"testing"

	"takeone/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = base
	cfg.Paths.IndexDir = filepath.Join(base, "index")
	cfg.Paths.ArchiveDir = filepath.Join(base, "archives")
	cfg.Paths.ClipsDir = filepath.Join(base, "clips")
	cfg.Paths.ThumbnailsDir = filepath.Join(base, "thumbnails")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test"
	cfg.Embedding.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithTopK overrides the default search top_k on the test config.
func WithTopK(topK int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Search.DefaultTopK = topK
	}
}

// WithoutAPIKeys clears the model API keys so AI paths report unavailable.
func WithoutAPIKeys() ConfigOption {
	return func(cfg *config.Config) {
		cfg.LLM.APIKey = ""
		cfg.Embedding.APIKey = ""
	}
}
