package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/draftlens/internal/document"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx drafts. Heading styles become heading blocks,
// numbered paragraphs become list items and run formatting is kept.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) ([]document.Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var b builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		switch level := docxHeadingLevel(para); {
		case level > 0:
			b.open(headingKind(level), "")
		case para.Properties != nil && para.Properties.NumProperties != nil:
			b.open(document.KindListItem, document.KindBulletedList)
		default:
			b.open(document.KindParagraph, "")
		}
		docxRuns(&b, para)
		b.close()
	}
	return b.done(), nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return 1
	}
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	switch strings.TrimPrefix(style, "heading") {
	case "1":
		return 1
	case "2", "3", "4", "5", "6":
		return 2
	}
	return 0
}

func docxRuns(b *builder, para *docx.Paragraph) {
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		var st style
		if rp := run.RunProperties; rp != nil {
			st.bold = rp.Bold != nil
			st.italic = rp.Italic != nil
			st.underline = rp.Underline != nil && rp.Underline.Val != "none"
		}
		for _, rc := range run.Children {
			switch t := rc.(type) {
			case *docx.Text:
				b.text(t.Text, st)
			case *docx.Tab:
				b.text("\t", st)
			case *docx.BarterRabbet:
				b.text("\n", st)
			}
		}
	}
}
