package fieldformat

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PlainText returns the text content of an HTML fragment with whitespace
// runs collapsed. Script and style bodies are dropped.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type: html.ElementNode, Data: "body", DataAtom: atom.Body,
	})
	if err != nil {
		return fragment
	}
	var b strings.Builder
	for _, n := range nodes {
		extractText(n, &b)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func extractText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style":
			return
		case "br", "p", "div", "li", "tr":
			b.WriteByte(' ')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, b)
	}
}

func compilePattern(spec string) (*regexp.Regexp, error) {
	if spec == "" {
		return nil, errors.New("empty pattern")
	}
	return regexp.Compile("^(?:" + spec + ")$")
}

func parseSchemes(spec string) []string {
	var schemes []string
	for _, s := range strings.Split(spec, ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			schemes = append(schemes, strings.TrimSuffix(s, ":"))
		}
	}
	return schemes
}

// validLink reports whether input is an absolute URL with an allowed scheme.
func validLink(input string, schemes []string) bool {
	u, err := url.Parse(input)
	if err != nil || u.Scheme == "" {
		return false
	}
	if u.Opaque == "" && u.Host == "" && u.Path == "" {
		return false
	}
	if len(schemes) == 0 {
		return true
	}
	for _, s := range schemes {
		if strings.EqualFold(s, u.Scheme) {
			return true
		}
	}
	return false
}

func hasLineBreak(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}
