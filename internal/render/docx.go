package render

import (
	"fmt"
	"io"

	"github.com/dgallion1/draftlens/internal/document"
	"github.com/fumiama/go-docx"
)

// DOCX writes blocks as a Word document. Headings use the Heading1 and
// Heading2 paragraph styles and list items carry numbering properties, so
// the parser reads the file back into the same block kinds.
func DOCX(w io.Writer, blocks []document.Block) error {
	doc := docx.New().WithDefaultTheme()
	for _, b := range blocks {
		p := doc.AddParagraph()
		switch b.Kind {
		case document.KindHeading1:
			p.Style("Heading1")
		case document.KindHeading2:
			p.Style("Heading2")
		case document.KindListItem:
			numID := "1"
			if b.List == document.KindNumberedList {
				numID = "2"
			}
			p.NumPr(numID, "0")
		}
		for _, l := range b.Leaves {
			if l.Text == "" {
				continue
			}
			run := p.AddText(l.Text)
			if l.Bold {
				run.Bold()
			}
			if l.Italic {
				run.Italic()
			}
			if l.Underline {
				run.Underline("single")
			}
			for _, c := range run.Children {
				if t, ok := c.(*docx.Text); ok {
					t.XMLSpace = "preserve"
				}
			}
		}
	}
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}
