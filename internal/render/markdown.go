package render

import (
	"strconv"
	"strings"

	"github.com/dgallion1/draftlens/internal/document"
)

// Markdown renders blocks as Markdown. Annotations are dropped; bold,
// italic and underline are kept, underline as <u>.
func Markdown(blocks []document.Block) string {
	var sb strings.Builder
	var prev *document.Block
	n := 0
	for i := range blocks {
		b := &blocks[i]
		inList := prev != nil && prev.Kind == document.KindListItem &&
			b.Kind == document.KindListItem && prev.List == b.List
		if prev != nil {
			if inList {
				sb.WriteString("\n")
			} else {
				sb.WriteString(document.Separator)
			}
		}
		if !inList {
			n = 0
		}
		switch b.Kind {
		case document.KindHeading1:
			sb.WriteString("# ")
		case document.KindHeading2:
			sb.WriteString("## ")
		case document.KindListItem:
			n++
			if b.List == document.KindNumberedList {
				sb.WriteString(strconv.Itoa(n) + ". ")
			} else {
				sb.WriteString("- ")
			}
		}
		for _, l := range b.Leaves {
			sb.WriteString(markdownLeaf(l))
		}
		prev = b
	}
	return sb.String()
}

// markdownLeaf wraps a leaf in emphasis markers. Surrounding whitespace is
// kept outside the markers, since "** x**" is not emphasis.
func markdownLeaf(l document.Leaf) string {
	if !l.Bold && !l.Italic && !l.Underline {
		return l.Text
	}
	core := strings.TrimSpace(l.Text)
	if core == "" {
		return l.Text
	}
	start := strings.Index(l.Text, core)
	lead, trail := l.Text[:start], l.Text[start+len(core):]
	if l.Italic {
		core = "*" + core + "*"
	}
	if l.Bold {
		core = "**" + core + "**"
	}
	if l.Underline {
		core = "<u>" + core + "</u>"
	}
	return lead + core + trail
}
