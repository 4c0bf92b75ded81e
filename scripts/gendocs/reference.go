package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapnote/pkg/fieldformat"
	"github.com/leapstack-labs/leapnote/pkg/formula"
	"github.com/leapstack-labs/leapnote/pkg/schema"
)

// kindDescriptions provides human-readable descriptions for field kinds.
var kindDescriptions = map[fieldformat.Kind]string{
	fieldformat.Text:              "Free text, possibly several lines.",
	fieldformat.HTMLText:          "Text with HTML markup.",
	fieldformat.OneLineText:       "Text on a single line.",
	fieldformat.SpacedText:        "Text with whitespace preserved.",
	fieldformat.Number:            "Decimal number shown with a numeric format.",
	fieldformat.Math:              "Computed from the field's equation.",
	fieldformat.Numbering:         "Outline numbering such as 1.2.3 or I.A.",
	fieldformat.Boolean:           "True or false.",
	fieldformat.Date:              "Calendar date.",
	fieldformat.Time:              "Time of day.",
	fieldformat.DateTime:          "Date and time of day.",
	fieldformat.Choice:            "One of the listed choices.",
	fieldformat.AutoChoice:        "One of the values used by other nodes.",
	fieldformat.Combination:       "Any subset of the listed choices.",
	fieldformat.AutoCombination:   "Any subset of the values used by other nodes.",
	fieldformat.ExternalLink:      "URL or file path.",
	fieldformat.InternalLink:      "Reference to another node.",
	fieldformat.Picture:           "Path to an image file.",
	fieldformat.RegularExpression: "Text that must match the field's pattern.",
}

// generateReferenceDocs generates the field kind, operator and function pages.
func generateReferenceDocs(outDir string) error {
	log.Printf("Generating reference docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	pages := []struct {
		name string
		gen  func() *MarkdownWriter
	}{
		{"field-kinds.md", generateKindsPage},
		{"operators.md", generateOperatorsPage},
		{"functions.md", generateFunctionsPage},
	}
	for _, p := range pages {
		if err := os.WriteFile(filepath.Join(outDir, p.name), p.gen().Bytes(), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.name, err)
		}
		log.Printf("  Generated %s", p.name)
	}
	return nil
}

func generateKindsPage() *MarkdownWriter {
	w := NewMarkdownWriter()

	w.Frontmatter("Field Kinds", "The types a field can have")
	w.GeneratedMarker()

	w.Header(1, "Field Kinds")
	w.Paragraph(fmt.Sprintf("leapnote supports **%d field kinds**. Values are stored in a canonical form and formatted for display.", len(fieldformat.Kinds())))

	var rows [][]string
	for _, k := range fieldformat.Kinds() {
		rows = append(rows, []string{InlineCode(k.String()), kindDescriptions[k]})
	}
	w.Table([]string{"Kind", "Description"}, rows)

	w.Header(2, "Math Result Types")
	w.Paragraph("A Math field stores its result as one of these types, set with `result_type`:")
	var results []string
	for r := fieldformat.ResultNumber; r <= fieldformat.ResultDateTime; r++ {
		results = append(results, InlineCode(r.String())+" stored as "+r.Kind().String())
	}
	w.BulletList(results)

	return w
}

func generateOperatorsPage() *MarkdownWriter {
	w := NewMarkdownWriter()

	w.Frontmatter("Rule Operators", "Operators of conditional rule clauses")
	w.GeneratedMarker()

	w.Header(1, "Rule Operators")
	w.Paragraph("Each clause of a rule compares one field of the node with an operator. String operators compare display text and ignore case.")

	var rows [][]string
	for _, op := range schema.Operators() {
		value := "Yes"
		if !op.TakesValue() {
			value = "No"
		}
		aliases := make([]string, 0, len(op.Aliases()))
		for _, a := range op.Aliases() {
			aliases = append(aliases, InlineCode(a))
		}
		rows = append(rows, []string{InlineCode(string(op)), value, strings.Join(aliases, ", ")})
	}
	w.Table([]string{"Operator", "Takes Value", "Aliases"}, rows)

	return w
}

func generateFunctionsPage() *MarkdownWriter {
	w := NewMarkdownWriter()

	w.Frontmatter("Formula Functions", "Built-in functions of Math field equations")
	w.GeneratedMarker()

	names := formula.Functions()
	slices.Sort(names)

	w.Header(1, "Formula Functions")
	w.Paragraph(fmt.Sprintf("Equations can call **%d built-in functions**. Aggregates accept references that span nodes, such as `child.Amount`, and skip blank values.", len(names)))

	var rows [][]string
	for _, name := range names {
		arity, aggregate, _ := formula.FunctionArity(name)
		kind := "scalar"
		if aggregate {
			kind = Bold("aggregate")
		}
		rows = append(rows, []string{InlineCode(name + "()"), arity, kind})
	}
	w.Table([]string{"Function", "Arguments", "Kind"}, rows)

	w.Header(2, "References")
	w.BulletList([]string{
		InlineCode("self.Field") + " or " + InlineCode("{Field}") + ": the node's own field",
		InlineCode("parent.Field") + ": the parent's field",
		InlineCode("root.Field") + ": the root node's field",
		InlineCode("ancestor2.Field") + ": the field of the ancestor N levels up",
		InlineCode("child.Field") + ": every child's field, only inside an aggregate",
	})

	return w
}
