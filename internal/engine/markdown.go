package engine

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/MadVikingGod/weaver/api"
)

// renderMarkdown converts a markdown string per the target format. Schema
// prose (descriptions, notes) is authored in markdown; the template target
// decides whether that becomes HTML, plain text, or comment-safe text.
func renderMarkdown(src string, format api.TargetFormat, commentPrefix string) (string, error) {
	switch format {
	case api.FormatHTML:
		var b strings.Builder
		if err := goldmark.New().Convert([]byte(src), &b); err != nil {
			return "", fmt.Errorf("markdown to html: %w", err)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	case api.FormatText, "":
		return markdownToText(src), nil
	case api.FormatComment:
		return prefixLines(markdownToText(src), commentPrefix), nil
	default:
		return "", fmt.Errorf("markdown: unknown target format %q", format)
	}
}

// markdownToText flattens a markdown document to plain text: block elements
// become newline-separated lines, list items get a dash bullet, inline
// formatting is dropped.
func markdownToText(src string) string {
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch t := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(t.Segment.Value(source))
				if t.SoftLineBreak() || t.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.Paragraph, *ast.Heading:
			if !entering {
				b.WriteByte('\n')
			}
		case *ast.ListItem:
			if entering {
				b.WriteString("- ")
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(source))
				}
			}
		case *ast.CodeSpan:
			if entering {
				b.Write(t.Text(source))
				return ast.WalkSkipChildren, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimRight(b.String(), "\n")
}
