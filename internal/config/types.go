// Package config loads leapnote project and schema files. It is decoupled
// from CLI concerns so the watcher and tests can load schemas directly.
package config

import "github.com/leapstack-labs/leapnote/pkg/schema"

// SchemaFile is the YAML form of a schema: an ordered list of data types.
type SchemaFile struct {
	Types []schema.TypeDefinition `koanf:"types"`
}

// ProjectConfig holds the project file settings shared by every tool.
type ProjectConfig struct {
	// Schema is the path of the schema file.
	Schema string `koanf:"schema"`
	// Outline is the path of the outline document.
	Outline string `koanf:"outline"`
	// BlankAsZero makes blank numeric references evaluate as 0.
	BlankAsZero bool `koanf:"blank_as_zero"`
}
