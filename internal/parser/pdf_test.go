package parser

import (
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/dgallion1/draftlens/internal/document"
)

func TestPDFParser_Fixture(t *testing.T) {
	f, err := os.Open("testdata/letter.pdf")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	p := &PDFParser{}
	blocks, err := p.Parse(f, "letter.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Dear Alex,", "I hope this finds you well.", "Best, Sam"}
	if got := blockTexts(blocks); !slices.Equal(got, want) {
		t.Errorf("blocks = %q, want %q", got, want)
	}
	for i, b := range blocks {
		if b.Kind != document.KindParagraph {
			t.Errorf("block %d kind = %s", i, b.Kind)
		}
	}
}

func TestPDFBlocks_PagesSplitParagraphs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"one page", "Dear Alex,\n\nSee you soon.", []string{"Dear Alex,", "See you soon."}},
		{"line continues across page", "Best\f regards", []string{"Best", "regards"}},
		{"blank page", "Dear Alex,\f\n \f\nSam", []string{"Dear Alex,", "Sam"}},
		{"wrapped lines", "I hope this\nfinds you well.", []string{"I hope this\nfinds you well."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := blockTexts(pdfBlocks(tt.text)); !slices.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPDFParser_NotAPDF(t *testing.T) {
	p := &PDFParser{}
	if _, err := p.Parse(strings.NewReader("plain text"), "fake.pdf"); err == nil {
		t.Error("expected error for non-PDF input")
	}
}
