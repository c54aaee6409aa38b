package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/draftlens/internal/document"
)

func blockTexts(blocks []document.Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Text()
	}
	return out
}

func TestMarkdownParser_Blocks(t *testing.T) {
	input := `# Offer

Dear Alex,

## Details

- Start date
- Salary

1. Sign
2. Return
`
	p := &MarkdownParser{}
	blocks, err := p.Parse(strings.NewReader(input), "draft.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []struct {
		kind document.Kind
		list document.Kind
		text string
	}{
		{document.KindHeading1, "", "Offer"},
		{document.KindParagraph, "", "Dear Alex,"},
		{document.KindHeading2, "", "Details"},
		{document.KindListItem, document.KindBulletedList, "Start date"},
		{document.KindListItem, document.KindBulletedList, "Salary"},
		{document.KindListItem, document.KindNumberedList, "Sign"},
		{document.KindListItem, document.KindNumberedList, "Return"},
	}
	if len(blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d: %q", len(want), len(blocks), blockTexts(blocks))
	}
	for i, w := range want {
		b := blocks[i]
		if b.Kind != w.kind || b.List != w.list || b.Text() != w.text {
			t.Errorf("block[%d] = {%s %s %q}, want {%s %s %q}", i, b.Kind, b.List, b.Text(), w.kind, w.list, w.text)
		}
	}
	if err := document.Validate(blocks); err != nil {
		t.Errorf("invalid document: %v", err)
	}
}

func TestMarkdownParser_Emphasis(t *testing.T) {
	blocks := ParseMarkdown([]byte("I am *very* **glad** to write."))
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	leaves := blocks[0].Leaves
	if blocks[0].Text() != "I am very glad to write." {
		t.Errorf("text = %q", blocks[0].Text())
	}
	var italic, bold string
	for _, l := range leaves {
		if l.Italic {
			italic += l.Text
		}
		if l.Bold {
			bold += l.Text
		}
	}
	if italic != "very" || bold != "glad" {
		t.Errorf("italic=%q bold=%q", italic, bold)
	}
	seen := map[int]bool{}
	for _, l := range leaves {
		if l.Origin == 0 || seen[l.Origin] {
			t.Errorf("leaf %q has origin %d", l.Text, l.Origin)
		}
		seen[l.Origin] = true
	}
}

func TestMarkdownParser_CodeBlockAndQuote(t *testing.T) {
	input := "Intro.\n\n```\nGET /api/users\nPOST /api/users\n```\n\n> Quoted line.\n"
	blocks := ParseMarkdown([]byte(input))
	got := blockTexts(blocks)
	want := []string{"Intro.", "GET /api/users\nPOST /api/users", "Quoted line."}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("blocks = %q, want %q", got, want)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	blocks, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Text() != "" {
		t.Errorf("expected the minimal document, got %q", blockTexts(blocks))
	}
}

func TestMarkdownParser_PlainDraftMatchesSavedForm(t *testing.T) {
	// Drafts are saved as paragraphs joined by blank lines; reopening one
	// must give the same text back.
	saved := "Dear Alex,\n\nI hope this finds you well.\n\nBest,\nSam"
	blocks := ParseMarkdown([]byte(saved))
	if got := document.NonEmptyText(blocks); got != saved {
		t.Errorf("reopened text = %q, want %q", got, saved)
	}
}
