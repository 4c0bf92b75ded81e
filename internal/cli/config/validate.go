package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// OutputFormats lists the accepted values of --output.
var OutputFormats = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(OutputFormats, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (want one of %s)", c.OutputFormat, strings.Join(OutputFormats, ", "))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ValidateFiles checks that the schema file exists. The outline is only
// checked when needOutline is set; schema-only commands work without one.
func (c *Config) ValidateFiles(needOutline bool) error {
	if _, err := os.Stat(c.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema file does not exist: %s\nHint: Create it or use --schema to specify a different path", c.Schema)
	}
	if needOutline {
		if _, err := os.Stat(c.Outline); os.IsNotExist(err) {
			return fmt.Errorf("outline file does not exist: %s\nHint: Create it or use --outline to specify a different path", c.Outline)
		}
	}
	return nil
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// Level is the effective log level: debug when verbose.
func (c *Config) Level() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return l
}
