package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapnote/internal/cli/config"
)

// generateConfigDocs generates the project and schema file reference.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	if err := generateSchemaFileDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate schema.md: %w", err)
	}
	log.Printf("  Generated schema.md")

	return nil
}

// ConfigField represents one key of a YAML file.
type ConfigField struct {
	Name        string
	Type        string
	Required    bool
	Default     string
	Description string
	Category    string // "project", "type", "field", "rule", "clause"
}

// getConfigSchema returns the keys of leapnote.yaml.
// This is based on internal/config/types.go ProjectConfig.
func getConfigSchema() []ConfigField {
	return []ConfigField{
		{Name: "schema", Type: "string", Default: config.DefaultSchemaFile, Description: "Schema file, relative to the config file", Category: "project"},
		{Name: "outline", Type: "string", Default: config.DefaultOutlineFile, Description: "Outline file, relative to the config file", Category: "project"},
		{Name: "blank_as_zero", Type: "bool", Default: "false", Description: "Treat blank numeric fields as zero in formulas", Category: "project"},
		{Name: "log_level", Type: "string", Default: config.DefaultLogLevel, Description: "Log level: debug, info, warn, error", Category: "project"},
		{Name: "output", Type: "string", Default: config.DefaultOutput, Description: "Output format: auto, text, markdown, json", Category: "project"},
		{Name: "verbose", Type: "bool", Default: "false", Description: "Verbose output", Category: "project"},
	}
}

// getSchemaFileSchema returns the keys of the schema file.
// This is based on pkg/schema TypeDefinition, Rule and Clause and on
// pkg/fieldformat Definition.
func getSchemaFileSchema() []ConfigField {
	return []ConfigField{
		{Name: "name", Type: "string", Required: true, Description: "Unique type name", Category: "type"},
		{Name: "fields", Type: "list", Description: "Field definitions", Category: "type"},
		{Name: "generic", Type: "string", Description: "Type whose fields and rules this type inherits", Category: "type"},
		{Name: "child_type", Type: "string", Description: "Default type for new children", Category: "type"},
		{Name: "rules", Type: "list", Description: "Conditional rules, tried in order", Category: "type"},

		{Name: "name", Type: "string", Required: true, Description: "Field name, unique within the type", Category: "field"},
		{Name: "kind", Type: "string", Required: true, Description: "Field kind, see the field kinds reference", Category: "field"},
		{Name: "format", Type: "string", Description: "Display format; its meaning depends on the kind", Category: "field"},
		{Name: "prefix", Type: "string", Description: "Text shown before the value", Category: "field"},
		{Name: "suffix", Type: "string", Description: "Text shown after the value", Category: "field"},
		{Name: "default", Type: "string", Description: "Initial value for new nodes", Category: "field"},
		{Name: "sort_key", Type: "int", Default: "0", Description: "Position in the sort order; 0 does not sort", Category: "field"},
		{Name: "sort_descending", Type: "bool", Default: "false", Description: "Sort this field in descending order", Category: "field"},
		{Name: "lines", Type: "int", Default: "1", Description: "Editor lines for text fields", Category: "field"},
		{Name: "eval_html", Type: "bool", Default: "false", Description: "Interpret HTML markup in text fields", Category: "field"},
		{Name: "equation", Type: "string", Description: "Formula of a Math field", Category: "field"},
		{Name: "result_type", Type: "string", Default: "number", Description: "Value type a Math field stores", Category: "field"},
		{Name: "separator", Type: "string", Description: "Separator of Combination values", Category: "field"},

		{Name: "target", Type: "string", Required: true, Description: "Type assigned when the condition holds", Category: "rule"},
		{Name: "combine", Type: "string", Default: "and", Description: "How clauses combine: and, or", Category: "rule"},
		{Name: "clauses", Type: "list", Description: "Conditions; an empty list always matches", Category: "rule"},

		{Name: "field", Type: "string", Required: true, Description: "Field the clause tests", Category: "clause"},
		{Name: "op", Type: "string", Required: true, Description: "Operator, see the operators reference", Category: "clause"},
		{Name: "value", Type: "string", Description: "Value compared against; unused by true, false, empty, notempty", Category: "clause"},
	}
}

func fieldRows(fields []ConfigField, category string) [][]string {
	var rows [][]string
	for _, f := range fields {
		if f.Category != category {
			continue
		}
		req := "No"
		if f.Required {
			req = "Yes"
		}
		defVal := f.Default
		if defVal == "" {
			defVal = "-"
		} else {
			defVal = InlineCode(defVal)
		}
		rows = append(rows, []string{InlineCode(f.Name), f.Type, req, defVal, f.Description})
	}
	return rows
}

var fieldHeaders = []string{"Field", "Type", "Required", "Default", "Description"}

// generateConfigurationDoc generates the leapnote.yaml reference page.
func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Configuration", "leapnote configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("leapnote is configured via `leapnote.yaml` in your project root. The file is found by searching the current directory and its parents.")

	w.Header(2, "Project Settings")
	w.Table(fieldHeaders, fieldRows(getConfigSchema(), "project"))

	w.Header(2, "Precedence")
	w.BulletList([]string{
		"Command-line flags",
		"Environment variables prefixed with " + InlineCode("LEAPNOTE_"),
		InlineCode("leapnote.yaml"),
		"Built-in defaults",
	})

	w.Header(2, "Example")
	w.CodeBlock("yaml", `schema: schema.yaml
outline: outline.yaml
blank_as_zero: true
output: auto`)

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}

// generateSchemaFileDoc generates the schema file reference page.
func generateSchemaFileDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Schema File", "Data types, fields and rules")
	w.GeneratedMarker()

	w.Header(1, "Schema File")
	w.Paragraph("The schema file lists data types under the `types` key. Types are resolved in file order; a type naming a `generic` type inherits its fields, and a derived type is decided by the rules of its generic type.")

	fields := getSchemaFileSchema()
	for _, section := range []struct{ category, title string }{
		{"type", "Types"},
		{"field", "Fields"},
		{"rule", "Rules"},
		{"clause", "Clauses"},
	} {
		w.Header(2, section.title)
		w.Table(fieldHeaders, fieldRows(fields, section.category))
	}

	w.Header(2, "Example")
	w.CodeBlock("yaml", `types:
  - name: Task
    fields:
      - name: Name
        kind: OneLineText
      - name: Amount
        kind: Number
        format: "#,##0.00"
      - name: Total
        kind: Math
        equation: self.Amount * 2
    rules:
      - target: Urgent
        clauses:
          - field: Amount
            op: ">"
            value: "100"
  - name: Urgent
    generic: Task`)

	return os.WriteFile(filepath.Join(outDir, "schema.md"), w.Bytes(), 0600)
}
