// Package config provides configuration management for the leapnote CLI.
//
// It layers the shared project settings from internal/config with
// CLI-specific fields (log level, output format, verbosity).
package config

import (
	sharedcfg "github.com/leapstack-labs/leapnote/internal/config"
)

// Config holds all CLI configuration options.
type Config struct {
	Schema       string `koanf:"schema"`
	Outline      string `koanf:"outline"`
	BlankAsZero  bool   `koanf:"blank_as_zero"`
	LogLevel     string `koanf:"log_level"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`

	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot string `koanf:"-"`
}

// Project returns the shared subset of the configuration.
func (c *Config) Project() sharedcfg.ProjectConfig {
	return sharedcfg.ProjectConfig{Schema: c.Schema, Outline: c.Outline, BlankAsZero: c.BlankAsZero}
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultSchemaFile  = sharedcfg.DefaultSchemaFile
	DefaultOutlineFile = sharedcfg.DefaultOutlineFile
	DefaultLogLevel    = sharedcfg.DefaultLogLevel
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)
