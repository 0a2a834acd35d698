// Package oracle renders parse trees in a normalized text form so
// tests can compare the streaming pipeline against a reference parser.
//
// Both the reference tree (golang.org/x/net/html) and the materialized
// patch store tree render to the same shape: one node per line,
// indented by depth, attributes sorted by name, whitespace-only text
// dropped.
package oracle

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/jacoelho/htmlstream/dompatch"
)

// Parse runs the reference parser over the whole input.
func Parse(input string) (*html.Node, error) {
	return html.Parse(strings.NewReader(input))
}

// RenderReference renders a reference parser tree.
func RenderReference(n *html.Node) string {
	var b strings.Builder
	renderReference(&b, n, 0)
	return b.String()
}

func renderReference(b *strings.Builder, n *html.Node, depth int) {
	switch n.Type {
	case html.DocumentNode:
		writeLine(b, depth, "#document")
		depth++
	case html.DoctypeNode:
		if n.Data != "" {
			writeLine(b, depth, "<!DOCTYPE "+n.Data+">")
		}
		return
	case html.ElementNode:
		writeLine(b, depth, elementLine(n.Data, referenceAttrs(n)))
		depth++
	case html.TextNode:
		if strings.TrimSpace(n.Data) != "" {
			writeLine(b, depth, fmt.Sprintf("%q", n.Data))
		}
		return
	case html.CommentNode:
		writeLine(b, depth, fmt.Sprintf("<!--%s-->", n.Data))
		return
	default:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderReference(b, c, depth)
	}
}

func referenceAttrs(n *html.Node) []dompatch.Attribute {
	out := make([]dompatch.Attribute, 0, len(n.Attr))
	for _, a := range n.Attr {
		if a.Namespace != "" {
			continue
		}
		out = append(out, dompatch.Attribute{Name: a.Key, Value: a.Val})
	}
	return out
}

// RenderTree renders a materialized patch store tree.
func RenderTree(n *dompatch.Node) string {
	var b strings.Builder
	renderTree(&b, n, 0)
	return b.String()
}

func renderTree(b *strings.Builder, n *dompatch.Node, depth int) {
	switch n.Kind {
	case dompatch.KindDocument:
		writeLine(b, depth, "#document")
		if n.Doctype != "" {
			writeLine(b, depth+1, "<!DOCTYPE "+n.Doctype+">")
		}
		depth++
	case dompatch.KindElement:
		writeLine(b, depth, elementLine(n.Name, n.Attrs))
		depth++
	case dompatch.KindText:
		if strings.TrimSpace(n.Text) != "" {
			writeLine(b, depth, fmt.Sprintf("%q", n.Text))
		}
		return
	case dompatch.KindComment:
		writeLine(b, depth, fmt.Sprintf("<!--%s-->", n.Text))
		return
	}
	for _, c := range n.Children {
		renderTree(b, c, depth)
	}
}

func elementLine(name string, attrs []dompatch.Attribute) string {
	if len(attrs) == 0 {
		return "<" + name + ">"
	}
	sorted := append([]dompatch.Attribute(nil), attrs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(name)
	for _, a := range sorted {
		fmt.Fprintf(&b, " %s=%q", a.Name, a.Value)
	}
	b.WriteByte('>')
	return b.String()
}

func writeLine(b *strings.Builder, depth int, line string) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(line)
	b.WriteByte('\n')
}
