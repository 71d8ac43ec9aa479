package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateScript(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSearch() error {
	if c.Search.DefaultTopK < 1 {
		return errors.New("search.default_top_k must be at least 1")
	}
	if c.Search.MaxVariants < 1 {
		return errors.New("search.max_variants must be at least 1")
	}
	if c.Search.OverfetchFactor < 1 {
		return errors.New("search.overfetch_factor must be at least 1")
	}
	return nil
}

func (c *Config) validateScript() error {
	if c.Script.ResultsPerAction < 1 {
		return errors.New("script.results_per_action must be at least 1")
	}
	return nil
}

func (c *Config) validateIngest() error {
	if c.Ingest.Workers < 1 {
		return errors.New("ingest.workers must be at least 1")
	}
	if c.Ingest.MinSceneSeconds <= 0 {
		return errors.New("ingest.min_scene_seconds must be positive")
	}
	if c.Ingest.MaxSceneSeconds <= c.Ingest.MinSceneSeconds {
		return errors.New("ingest.max_scene_seconds must be greater than ingest.min_scene_seconds")
	}
	if c.Ingest.SceneThreshold <= 0 {
		return errors.New("ingest.scene_threshold must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
