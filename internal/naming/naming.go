// Package naming derives a safe Markdown output filename from an HTML
// document's title or, failing that, from the uploaded filename.
package naming

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fallback is used when nothing usable survives sanitization.
const Fallback = "untitled"

// Extension is appended to every inferred name.
const Extension = ".md"

// Infer returns the output filename for a document. It never fails: a
// missing or malformed title degrades to the source filename stem, and an
// empty result degrades to "untitled.md".
func Infer(originalName, htmlText string) string {
	base := Stem(originalName)
	if title, ok := Title(htmlText); ok {
		base = title
	}

	base = Sanitize(base)
	if base == "" {
		base = Fallback
	}
	return base + Extension
}

// Title returns the trimmed text of the first <title> element, if any
// non-blank title exists.
func Title(htmlText string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return "", false
	}

	n := findFirst(doc, atom.Title)
	if n == nil {
		return "", false
	}

	title := strings.TrimSpace(textContent(n))
	return title, title != ""
}

// Stem strips the final extension segment from name. Names without a dot
// are returned unchanged.
func Stem(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name
	}
	return name[:i]
}

// Sanitize keeps ASCII letters, digits, space, hyphen, underscore, period
// and parentheses, collapses whitespace runs and trims the result.
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; allowed(c) {
			b.WriteByte(c)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func allowed(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == ' ', c == '-', c == '_', c == '.', c == '(', c == ')':
		return true
	}
	return false
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}
