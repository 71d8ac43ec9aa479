// Package logging wraps log/slog with the attribute helpers and field
// conventions used across takeone. Library code receives a *slog.Logger and
// never constructs its own handlers; the CLI builds one from config.
package logging
