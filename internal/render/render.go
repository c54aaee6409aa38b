// Package render writes drafts out as HTML, Markdown, DOCX, plain text or
// styled terminal output.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/draftlens/internal/annotate"
	"github.com/dgallion1/draftlens/internal/document"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown render format")

// Format names an output format.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatDOCX     Format = "docx"
	FormatText     Format = "text"
	FormatTerminal Format = "terminal"
)

// ParseFormat accepts a format name or a common alias such as "md".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html", "htm":
		return FormatHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "docx":
		return FormatDOCX, nil
	case "text", "txt", "":
		return FormatText, nil
	case "terminal", "term":
		return FormatTerminal, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "text/plain; charset=utf-8"
}

// Extension is the file extension for downloads, dot included.
func (f Format) Extension() string {
	switch f {
	case FormatHTML:
		return ".html"
	case FormatMarkdown:
		return ".md"
	case FormatDOCX:
		return ".docx"
	}
	return ".txt"
}

// Render writes blocks to w in format f. colors supplies marker colours for
// the annotated formats and may be nil.
func Render(w io.Writer, f Format, blocks []document.Block, colors *annotate.ColorCache) error {
	switch f {
	case FormatHTML:
		return HTML(w, blocks, colors)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(blocks))
		return err
	case FormatDOCX:
		return DOCX(w, blocks)
	case FormatText:
		_, err := io.WriteString(w, document.NonEmptyText(blocks))
		return err
	case FormatTerminal:
		_, err := io.WriteString(w, Terminal(blocks, colors))
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// colorFor returns the marker colour for a dimension, or "" without a cache.
func colorFor(colors *annotate.ColorCache, dim string) string {
	if colors == nil {
		return ""
	}
	return colors.Color(dim)
}
