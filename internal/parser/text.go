package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/draftlens/internal/document"
)

// TextParser handles plain text drafts: blank lines separate paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) ([]document.Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var b builder
	for _, para := range splitParagraphs(string(data)) {
		b.paragraph(document.KindParagraph, para)
	}
	return b.done(), nil
}

// splitParagraphs groups lines into paragraphs separated by blank lines.
// Lines within a paragraph keep their newlines.
func splitParagraphs(s string) []string {
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return paragraphs
}
