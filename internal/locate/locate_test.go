package locate

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/draftlens/internal/document"
)

func para(texts ...string) []document.Block {
	blocks := make([]document.Block, len(texts))
	for i, t := range texts {
		blocks[i] = document.Block{Kind: document.KindParagraph, Leaves: []document.Leaf{{Text: t}}}
	}
	return blocks
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name      string
		blocks    []document.Block
		target    string
		wantSlice string
		wantLoose bool
	}{
		{
			name:      "exact",
			blocks:    para("Dear Alex, I hope this finds you well."),
			target:    "I hope this finds you well.",
			wantSlice: "I hope this finds you well.",
		},
		{
			name:      "whitespace drift",
			blocks:    para("Hello\nworld"),
			target:    "Hello   world",
			wantSlice: "Hello\nworld",
		},
		{
			name:      "case drift",
			blocks:    para("HELLO world"),
			target:    "hello World",
			wantSlice: "HELLO world",
		},
		{
			name:      "punctuation drift",
			blocks:    para("Let's meet on Friday."),
			target:    "Lets meet on Friday",
			wantSlice: "Let's meet on Friday",
			wantLoose: true,
		},
		{
			name:      "leading whitespace in document",
			blocks:    para("   Hi there"),
			target:    "hi there",
			wantSlice: "Hi there",
		},
		{
			name:      "non-ascii",
			blocks:    para("Un CAFÉ au lait, merci."),
			target:    "café au lait",
			wantSlice: "CAFÉ au lait",
		},
		{
			name:      "across blocks",
			blocks:    para("First line.", "Second line."),
			target:    "line. Second",
			wantSlice: "line.\n\nSecond",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Locate(tt.target, tt.blocks)
			if err != nil {
				t.Fatalf("Locate() error = %v", err)
			}
			if got := m.Slice(); got != tt.wantSlice {
				t.Errorf("slice = %q, want %q", got, tt.wantSlice)
			}
			if m.Loose != tt.wantLoose {
				t.Errorf("loose = %v, want %v", m.Loose, tt.wantLoose)
			}
		})
	}
}

func TestLocate_NotFound(t *testing.T) {
	blocks := para("Dear Alex, I hope this finds you well.")
	for _, target := range []string{"nonexistent phrase xyz", "", "   \n ", "!!!"} {
		if _, err := Locate(target, blocks); !errors.Is(err, ErrNotFound) {
			t.Errorf("Locate(%q) error = %v, want ErrNotFound", target, err)
		}
	}
}

func TestLocate_EmptyDocument(t *testing.T) {
	if _, err := Locate("anything", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLocate_RoundTrip(t *testing.T) {
	text := "Dear Alex, I hope this finds you well."
	blocks := para(text)
	lower := strings.ToLower(text)

	for i := 0; i < len(text); i++ {
		for j := i + 1; j <= len(text); j++ {
			s := text[i:j]
			if strings.TrimSpace(s) != s {
				continue
			}
			m, err := Locate(s, blocks)
			if err != nil {
				t.Fatalf("Locate(%q) error = %v", s, err)
			}
			got := m.Slice()
			if Normalize(got) != Normalize(s) {
				t.Fatalf("Locate(%q) slice %q does not normalize to the target", s, got)
			}
			if strings.Index(lower, strings.ToLower(s)) == i && got != s {
				t.Fatalf("Locate(%q) slice = %q", s, got)
			}
		}
	}
}

func TestMatch_Overlaps(t *testing.T) {
	blocks := para("First line.", "Second line.")
	m, err := Locate("line. Second", blocks)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	spans := m.Overlaps()
	want := []Span{{Block: 0, Start: 6, End: 11}, {Block: 1, Start: 0, End: 6}}
	if len(spans) != len(want) {
		t.Fatalf("spans = %+v, want %+v", spans, want)
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Errorf("span %d = %+v, want %+v", i, spans[i], want[i])
		}
	}
}

func TestMatch_OverlapsSingleBlock(t *testing.T) {
	m, err := Locate("I hope this finds you well.", para("Dear Alex, I hope this finds you well."))
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	spans := m.Overlaps()
	if len(spans) != 1 || spans[0] != (Span{Block: 0, Start: 11, End: 38}) {
		t.Errorf("unexpected spans %+v", spans)
	}
}

func TestOverlaps_SkipsEmptyAndOutsideBlocks(t *testing.T) {
	nodes := []NodeSpan{
		{Block: 0, Start: 0, End: 5},
		{Block: 1, Start: 7, End: 7},
		{Block: 2, Start: 9, End: 14},
		{Block: 3, Start: 16, End: 20},
	}
	spans := overlaps(nodes, 3, 11)
	want := []Span{{Block: 0, Start: 3, End: 5}, {Block: 2, Start: 0, End: 2}}
	if len(spans) != len(want) {
		t.Fatalf("spans = %+v, want %+v", spans, want)
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Errorf("span %d = %+v, want %+v", i, spans[i], want[i])
		}
	}
}

func TestNormalized_OffsetMapping(t *testing.T) {
	n := normalizeRunes([]rune("  Hello \n\t World  "))
	if string(n.Text) != "hello world" {
		t.Fatalf("normalized = %q", string(n.Text))
	}
	if got := n.ToOriginal(0); got != 2 {
		t.Errorf("ToOriginal(0) = %d, want 2", got)
	}
	// The collapsed space maps to the first whitespace rune of the run.
	if got := n.ToOriginal(5); got != 7 {
		t.Errorf("ToOriginal(5) = %d, want 7", got)
	}
	if got := n.ToOriginal(6); got != 11 {
		t.Errorf("ToOriginal(6) = %d, want 11", got)
	}
	if got := n.EndToOriginal(n.Len()); got != 16 {
		t.Errorf("EndToOriginal(len) = %d, want 16", got)
	}
	if got := n.ToNormalized(11); got != 6 {
		t.Errorf("ToNormalized(11) = %d, want 6", got)
	}
	if got := n.ToNormalized(8); got != 6 {
		t.Errorf("ToNormalized(8) = %d, want 6", got)
	}
}

func TestSuggest_RanksSimilarBlock(t *testing.T) {
	blocks := para("Thanks for your time.", "I look forward to meeting you next week.", "Best, Sam")
	got := Suggest("I look forward to meeting you next Tuesday", blocks, 2)
	if len(got) == 0 {
		t.Fatal("expected at least one suggestion")
	}
	if got[0].Block != 1 {
		t.Errorf("expected block 1 first, got %+v", got)
	}
}

func TestSuggest_EmptyTarget(t *testing.T) {
	if got := Suggest("  ", para("x"), 3); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}
