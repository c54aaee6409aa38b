// Package parser turns uploaded drafts into document blocks.
package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/draftlens/internal/document"
)

// ErrUnsupported is returned by ForFile for unknown extensions.
var ErrUnsupported = errors.New("unsupported file extension")

// Parser converts raw document bytes into draft blocks.
type Parser interface {
	Parse(r io.Reader, filename string) ([]document.Block, error)
}

// SupportedExtensions lists file extensions drafts can be imported from.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// style is the inline formatting in effect while walking a source tree.
type style struct {
	bold, italic, underline bool
}

// builder accumulates blocks. Adjacent runs with the same style are merged
// into one leaf, and blocks without visible text are dropped.
type builder struct {
	blocks []document.Block
	cur    *document.Block
}

func (b *builder) open(kind, list document.Kind) {
	b.close()
	b.cur = &document.Block{Kind: kind, List: list}
}

func (b *builder) text(s string, st style) {
	if s == "" {
		return
	}
	if b.cur == nil {
		b.cur = &document.Block{Kind: document.KindParagraph}
	}
	if n := len(b.cur.Leaves); n > 0 {
		last := &b.cur.Leaves[n-1]
		if last.Bold == st.bold && last.Italic == st.italic && last.Underline == st.underline {
			last.Text += s
			return
		}
	}
	b.cur.Leaves = append(b.cur.Leaves, document.Leaf{
		Text: s, Bold: st.bold, Italic: st.italic, Underline: st.underline,
	})
}

func (b *builder) close() {
	if b.cur == nil {
		return
	}
	blk := *b.cur
	b.cur = nil
	trimEdges(&blk)
	if strings.TrimSpace(blk.Text()) == "" {
		return
	}
	b.blocks = append(b.blocks, blk)
}

// paragraph appends a whole plain paragraph.
func (b *builder) paragraph(kind document.Kind, s string) {
	b.open(kind, "")
	b.text(s, style{})
	b.close()
}

// done returns the stamped blocks, or the minimal document when nothing
// was collected.
func (b *builder) done() []document.Block {
	b.close()
	if len(b.blocks) == 0 {
		return document.Minimal("")
	}
	return document.Stamp(b.blocks)
}

// trimEdges strips leading whitespace from the first leaf and trailing
// whitespace from the last, dropping leaves that become empty.
func trimEdges(blk *document.Block) {
	for len(blk.Leaves) > 0 {
		blk.Leaves[0].Text = strings.TrimLeft(blk.Leaves[0].Text, " \t\r\n")
		if blk.Leaves[0].Text != "" {
			break
		}
		blk.Leaves = blk.Leaves[1:]
	}
	for len(blk.Leaves) > 0 {
		n := len(blk.Leaves) - 1
		blk.Leaves[n].Text = strings.TrimRight(blk.Leaves[n].Text, " \t\r\n")
		if blk.Leaves[n].Text != "" {
			break
		}
		blk.Leaves = blk.Leaves[:n]
	}
}

func headingKind(level int) document.Kind {
	if level <= 1 {
		return document.KindHeading1
	}
	return document.KindHeading2
}
