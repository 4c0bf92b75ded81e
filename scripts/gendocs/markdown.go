package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// generatedHeader marks pages written by this generator.
const generatedHeader = "<!-- Code generated by gendocs. DO NOT EDIT. -->"

var whitespaceRun = regexp.MustCompile(`\s+`)

// MarkdownWriter builds a markdown page.
type MarkdownWriter struct {
	buf bytes.Buffer
}

// NewMarkdownWriter returns an empty writer.
func NewMarkdownWriter() *MarkdownWriter {
	return &MarkdownWriter{}
}

// Frontmatter writes the YAML frontmatter of a docs page.
func (w *MarkdownWriter) Frontmatter(title, description string) {
	w.buf.WriteString("---\n")
	fmt.Fprintf(&w.buf, "title: %q\n", title)
	fmt.Fprintf(&w.buf, "description: %q\n", cleanDescription(description))
	w.buf.WriteString("---\n\n")
}

// GeneratedMarker writes the generated-file comment.
func (w *MarkdownWriter) GeneratedMarker() {
	w.buf.WriteString(generatedHeader + "\n\n")
}

// Header writes a header of the given level.
func (w *MarkdownWriter) Header(level int, title string) {
	w.buf.WriteString(strings.Repeat("#", max(level, 1)) + " " + title + "\n\n")
}

// Paragraph writes a block of text.
func (w *MarkdownWriter) Paragraph(text string) {
	w.buf.WriteString(strings.TrimSpace(text) + "\n\n")
}

// Text writes raw markdown.
func (w *MarkdownWriter) Text(text string) {
	w.buf.WriteString(text)
}

// CodeBlock writes a fenced code block.
func (w *MarkdownWriter) CodeBlock(lang, code string) {
	w.buf.WriteString("```" + lang + "\n")
	w.buf.WriteString(strings.TrimRight(code, "\n") + "\n")
	w.buf.WriteString("```\n\n")
}

// Table writes a table. Pipes in cells are escaped.
func (w *MarkdownWriter) Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	w.tableRow(headers)
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	w.tableRow(sep)
	for _, row := range rows {
		w.tableRow(row)
	}
	w.buf.WriteString("\n")
}

func (w *MarkdownWriter) tableRow(cells []string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	w.buf.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
}

// BulletList writes an unordered list.
func (w *MarkdownWriter) BulletList(items []string) {
	for _, item := range items {
		w.buf.WriteString("- " + item + "\n")
	}
	w.buf.WriteString("\n")
}

// String returns the page.
func (w *MarkdownWriter) String() string {
	return w.buf.String()
}

// Bytes returns the page.
func (w *MarkdownWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// InlineCode wraps s in backticks.
func InlineCode(s string) string {
	return "`" + s + "`"
}

// Bold wraps s in double asterisks.
func Bold(s string) string {
	return "**" + s + "**"
}

// cleanDescription collapses whitespace and truncates long text.
func cleanDescription(s string) string {
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
	if len(s) > 200 {
		s = s[:197] + "..."
	}
	return s
}
