package config

// Default configuration values.
const (
	DefaultSchemaFile  = "schema.yaml"
	DefaultOutlineFile = "outline.yaml"
	DefaultLogLevel    = "warn"
)

// ApplyDefaults fills unset paths of a ProjectConfig.
func (c *ProjectConfig) ApplyDefaults() {
	if c == nil {
		return
	}
	if c.Schema == "" {
		c.Schema = DefaultSchemaFile
	}
	if c.Outline == "" {
		c.Outline = DefaultOutlineFile
	}
}
