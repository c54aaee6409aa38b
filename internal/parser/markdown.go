package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/draftlens/internal/document"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown drafts using goldmark. Headings map to
// heading-1 (level 1) and heading-2 (deeper levels); emphasis is kept as
// bold and italic leaves.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) ([]document.Block, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseMarkdown(src), nil
}

// ParseMarkdown converts Markdown source into blocks. It never fails: input
// goldmark cannot structure ends up as plain paragraphs.
func ParseMarkdown(src []byte) []document.Block {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var b builder
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			b.open(headingKind(node.Level), "")
			inline(&b, node, src, style{})
			b.close()
		case *ast.Paragraph, *ast.TextBlock:
			b.open(document.KindParagraph, "")
			inline(&b, node, src, style{})
			b.close()
		case *ast.List:
			list := document.KindBulletedList
			if node.IsOrdered() {
				list = document.KindNumberedList
			}
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				b.open(document.KindListItem, list)
				for c := item.FirstChild(); c != nil; c = c.NextSibling() {
					if c != item.FirstChild() {
						b.text("\n", style{})
					}
					inline(&b, c, src, style{})
				}
				b.close()
			}
		case *ast.ThematicBreak, *ast.HTMLBlock:
			// Neither carries draft text.
		default:
			b.paragraph(document.KindParagraph, blockText(n, src))
		}
	}
	return b.done()
}

// inline walks the inline children of n into the current block.
func inline(b *builder, n ast.Node, src []byte, st style) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			b.text(string(node.Segment.Value(src)), st)
			if node.HardLineBreak() || node.SoftLineBreak() {
				b.text("\n", st)
			}
		case *ast.String:
			b.text(string(node.Value), st)
		case *ast.Emphasis:
			next := st
			if node.Level >= 2 {
				next.bold = true
			} else {
				next.italic = true
			}
			inline(b, node, src, next)
		case *ast.AutoLink:
			b.text(string(node.Label(src)), st)
		case *ast.RawHTML:
		default:
			inline(b, c, src, st)
		}
	}
}

// blockText gets the raw text of block nodes such as code blocks and
// blockquotes. Leaf blocks contribute their lines, containers their
// children.
func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if str, ok := n.(*ast.String); ok {
		return string(str.Value)
	}
	if !n.HasChildren() {
		if n.Type() != ast.TypeBlock {
			return ""
		}
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
			continue
		}
		s := blockText(c, src)
		if s == "" {
			continue
		}
		if buf.Len() > 0 && c.Type() == ast.TypeBlock {
			buf.WriteByte('\n')
		}
		buf.WriteString(s)
	}
	return strings.TrimSpace(buf.String())
}
