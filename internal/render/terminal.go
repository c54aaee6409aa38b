package render

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgallion1/draftlens/internal/annotate"
	"github.com/dgallion1/draftlens/internal/document"
)

var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))
	highlightStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#fff3b0")).
			Foreground(lipgloss.Color("#000000"))
	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Padding(0, 1)
	bulletStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Terminal renders the draft with ANSI styling: the selection highlight as
// a background, dimension markers underlined in the colour of their first
// intent, and a badge per linked intent ahead of each marker cluster.
func Terminal(blocks []document.Block, colors *annotate.ColorCache) string {
	var sb strings.Builder
	n := 0
	for i, b := range blocks {
		if i > 0 {
			if b.Kind == document.KindListItem && blocks[i-1].Kind == document.KindListItem {
				sb.WriteString("\n")
			} else {
				sb.WriteString("\n\n")
			}
		}
		if b.Kind != document.KindListItem || i == 0 || blocks[i-1].List != b.List {
			n = 0
		}
		if b.Kind == document.KindListItem {
			n++
			bullet := "• "
			if b.List == document.KindNumberedList {
				bullet = strconv.Itoa(n) + ". "
			}
			sb.WriteString(bulletStyle.Render(bullet))
		}
		heading := b.Kind == document.KindHeading1 || b.Kind == document.KindHeading2
		for _, l := range b.Leaves {
			if l.Dimensions != nil && l.Dimensions.First {
				for _, in := range l.Dimensions.LinkedIntents {
					sb.WriteString(intentBadge(in, colors))
					sb.WriteString(" ")
				}
			}
			sb.WriteString(terminalLeaf(l, heading, colors))
		}
	}
	return sb.String()
}

func terminalLeaf(l document.Leaf, heading bool, colors *annotate.ColorCache) string {
	st := lipgloss.NewStyle()
	if heading {
		st = headingStyle
	}
	st = st.Bold(l.Bold || heading).Italic(l.Italic).Underline(l.Underline)
	if l.Highlight != nil {
		st = st.Inherit(highlightStyle)
	}
	if d := l.Dimensions; d != nil && len(d.LinkedIntents) > 0 {
		st = st.Underline(true)
		if c := colorFor(colors, d.LinkedIntents[0].Dimension); c != "" {
			st = st.Foreground(lipgloss.Color(c))
		}
	}
	// Render line by line so lipgloss does not pad lines to a common width.
	lines := strings.Split(l.Text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = st.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func intentBadge(in document.Intent, colors *annotate.ColorCache) string {
	st := badgeStyle
	if c := colorFor(colors, in.Dimension); c != "" {
		st = st.Background(lipgloss.Color(c))
	}
	return st.Render(in.Dimension + ": " + in.CurrentValue)
}
