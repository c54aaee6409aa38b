package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/draftlens/internal/document"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML drafts.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) ([]document.Block, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var b builder
	var walk func(n *html.Node, list document.Kind)
	walk = func(n *html.Node, list document.Kind) {
		switch n.Type {
		case html.TextNode:
			// Loose text between block elements.
			if strings.TrimSpace(n.Data) != "" {
				b.paragraph(document.KindParagraph, collapse(n.Data))
			}
			return
		case html.ElementNode:
		default:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c, list)
			}
			return
		}

		if level := headingLevel(n.Data); level > 0 {
			b.open(headingKind(level), "")
			htmlInline(&b, n, style{})
			b.close()
			return
		}
		switch n.Data {
		case "script", "style", "nav", "footer", "header", "head", "title":
			return
		case "p", "td", "th", "blockquote", "pre":
			b.open(document.KindParagraph, "")
			htmlInline(&b, n, style{})
			b.close()
			return
		case "ul":
			list = document.KindBulletedList
		case "ol":
			list = document.KindNumberedList
		case "li":
			if list == "" {
				list = document.KindBulletedList
			}
			b.open(document.KindListItem, list)
			htmlInline(&b, n, style{})
			b.close()
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, list)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body, "")
	} else {
		walk(doc, "")
	}
	return b.done(), nil
}

// htmlInline appends the text under n to the current block, tracking
// b/strong, i/em and u as leaf formatting.
func htmlInline(b *builder, n *html.Node, st style) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.text(collapse(c.Data), st)
		case html.ElementNode:
			next := st
			switch c.Data {
			case "script", "style":
				continue
			case "br":
				b.text("\n", st)
				continue
			case "b", "strong":
				next.bold = true
			case "i", "em":
				next.italic = true
			case "u", "ins":
				next.underline = true
			}
			htmlInline(b, c, next)
		}
	}
}

// collapse squeezes HTML source whitespace runs into single spaces.
func collapse(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			space = true
			continue
		}
		if space && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		space = false
		sb.WriteRune(r)
	}
	if space && sb.Len() > 0 {
		sb.WriteByte(' ')
	}
	// Keep a leading space so inline runs do not fuse words together.
	if len(s) > 0 && strings.ContainsRune(" \t\n\r\f", rune(s[0])) && sb.Len() > 0 {
		return " " + sb.String()
	}
	return sb.String()
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
