package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeEmbedding()
	if err := c.normalizeScript(); err != nil {
		return err
	}
	c.normalizeIngest()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}

	// Unset subdirectories hang off the data dir.
	defaulted := map[*string]string{
		&c.Paths.IndexDir:      "index",
		&c.Paths.ArchiveDir:    "archives",
		&c.Paths.ClipsDir:      "clips",
		&c.Paths.ThumbnailsDir: "thumbnails",
		&c.Paths.LogDir:        "logs",
	}
	for field, sub := range defaulted {
		if strings.TrimSpace(*field) == "" {
			*field = filepath.Join(c.Paths.DataDir, sub)
			continue
		}
		if *field, err = ExpandPath(*field); err != nil {
			return fmt.Errorf("paths: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeEmbedding() {
	c.Embedding.APIKey = strings.TrimSpace(c.Embedding.APIKey)
	if c.Embedding.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Embedding.APIKey = strings.TrimSpace(value)
		}
	}
	c.Embedding.BaseURL = strings.TrimSpace(c.Embedding.BaseURL)
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = defaultEmbeddingBaseURL
	}
	c.Embedding.Model = strings.TrimSpace(c.Embedding.Model)
	if c.Embedding.Model == "" {
		c.Embedding.Model = defaultEmbeddingModel
	}
	if c.Embedding.TimeoutSeconds <= 0 {
		c.Embedding.TimeoutSeconds = defaultEmbeddingTimeoutSeconds
	}
}

func (c *Config) normalizeScript() error {
	tag := strings.TrimSpace(c.Script.CanonicalLanguage)
	if tag == "" {
		tag = defaultCanonicalLanguage
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return fmt.Errorf("script.canonical_language: invalid tag %q: %w", tag, err)
	}
	c.Script.CanonicalLanguage = parsed.String()
	return nil
}

func (c *Config) normalizeIngest() {
	c.Ingest.FFmpegBinary = strings.TrimSpace(c.Ingest.FFmpegBinary)
	if c.Ingest.FFmpegBinary == "" {
		c.Ingest.FFmpegBinary = defaultFFmpegBinary
	}
	c.Ingest.FFprobeBinary = strings.TrimSpace(c.Ingest.FFprobeBinary)
	if c.Ingest.FFprobeBinary == "" {
		c.Ingest.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
