package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/draftlens/internal/annotate"
	"github.com/dgallion1/draftlens/internal/document"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTML renders the draft as an <article> fragment. The selection highlight
// becomes <mark>, dimension markers become spans carrying the component id,
// and the first leaf of each marker cluster is preceded by one badge per
// linked intent.
func HTML(w io.Writer, blocks []document.Block, colors *annotate.ColorCache) error {
	root := element(atom.Article, "class", "draft")

	var list *html.Node
	var listKind document.Kind
	for _, b := range blocks {
		if b.Kind != document.KindListItem {
			list = nil
			root.AppendChild(blockNode(b, colors))
			continue
		}
		if list == nil || listKind != b.List {
			tag := atom.Ul
			if b.List == document.KindNumberedList {
				tag = atom.Ol
			}
			list = element(tag)
			listKind = b.List
			root.AppendChild(list)
		}
		list.AppendChild(blockNode(b, colors))
	}

	if err := html.Render(w, root); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func blockNode(b document.Block, colors *annotate.ColorCache) *html.Node {
	var n *html.Node
	switch b.Kind {
	case document.KindHeading1:
		n = element(atom.H1)
	case document.KindHeading2:
		n = element(atom.H2)
	case document.KindListItem:
		n = element(atom.Li)
	default:
		n = element(atom.P)
	}
	for _, l := range b.Leaves {
		if l.Dimensions != nil && l.Dimensions.First {
			for _, in := range l.Dimensions.LinkedIntents {
				n.AppendChild(badge(in, colors))
			}
		}
		for _, c := range leafNodes(l) {
			n.AppendChild(c)
		}
	}
	return n
}

func leafNodes(l document.Leaf) []*html.Node {
	var outer, inner *html.Node
	wrap := func(c *html.Node) {
		if outer == nil {
			outer = c
		} else {
			inner.AppendChild(c)
		}
		inner = c
	}
	if l.Dimensions != nil {
		wrap(element(atom.Span, "class", "dimension", "data-component-id", l.Dimensions.ComponentID))
	}
	if l.Highlight != nil {
		attrs := []string{"data-component-id", l.Highlight.ComponentID}
		if l.Highlight.First {
			attrs = append(attrs, "class", "first")
		}
		wrap(element(atom.Mark, attrs...))
	}
	if l.Bold {
		wrap(element(atom.Strong))
	}
	if l.Italic {
		wrap(element(atom.Em))
	}
	if l.Underline {
		wrap(element(atom.U))
	}

	text := textNodes(l.Text)
	if outer == nil {
		return text
	}
	for _, t := range text {
		inner.AppendChild(t)
	}
	return []*html.Node{outer}
}

// textNodes splits s on newlines, inserting <br> between lines.
func textNodes(s string) []*html.Node {
	var out []*html.Node
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			out = append(out, element(atom.Br))
		}
		if line != "" {
			out = append(out, &html.Node{Type: html.TextNode, Data: line})
		}
	}
	if len(out) == 0 {
		out = append(out, &html.Node{Type: html.TextNode})
	}
	return out
}

func badge(in document.Intent, colors *annotate.ColorCache) *html.Node {
	attrs := []string{
		"class", "intent-badge",
		"title", in.Dimension + ": " + in.CurrentValue,
	}
	if c := colorFor(colors, in.Dimension); c != "" {
		attrs = append(attrs, "style", "background-color:"+c)
	}
	n := element(atom.Span, attrs...)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: in.Dimension})
	return n
}

// element builds an element node; attrs alternate key and value.
func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}
