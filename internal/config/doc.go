// Package config loads, normalizes, and validates the takeone configuration
// file. Configuration is TOML with defaults for every field; a missing file
// is not an error.
package config
