package document

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFromText_SplitsAndTrims(t *testing.T) {
	blocks := FromText("  Dear Alex,\n\n\n\nI hope this finds you well.  \n\n   \n\nBest")
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	want := []string{"Dear Alex,", "I hope this finds you well.", "Best"}
	for i, b := range blocks {
		if b.Kind != KindParagraph {
			t.Errorf("block %d: expected paragraph, got %q", i, b.Kind)
		}
		if got := b.Text(); got != want[i] {
			t.Errorf("block %d: expected %q, got %q", i, want[i], got)
		}
	}
}

func TestFromText_EmptyGivesMinimalDocument(t *testing.T) {
	blocks := FromText(" \n\n ")
	if len(blocks) != 1 || len(blocks[0].Leaves) != 1 {
		t.Fatalf("expected one block with one leaf, got %+v", blocks)
	}
	if err := Validate(blocks); err != nil {
		t.Errorf("minimal document should validate: %v", err)
	}
}

func TestFromText_StampsDistinctOrigins(t *testing.T) {
	blocks := FromText("a\n\nb\n\nc")
	seen := map[int]bool{}
	for _, b := range blocks {
		o := b.Leaves[0].Origin
		if o == 0 {
			t.Fatal("expected non-zero origin")
		}
		if seen[o] {
			t.Fatalf("origin %d assigned twice", o)
		}
		seen[o] = true
	}
}

func TestText_JoinsWithSeparator(t *testing.T) {
	blocks := []Block{
		{Kind: KindParagraph, Leaves: []Leaf{{Text: "Hello "}, {Text: "world", Bold: true}}},
		{Kind: KindParagraph, Leaves: []Leaf{{Text: "Bye"}}},
	}
	if got := Text(blocks); got != "Hello world\n\nBye" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestNonEmptyText_SkipsBlankBlocks(t *testing.T) {
	blocks := []Block{
		{Leaves: []Leaf{{Text: "one"}}},
		{Leaves: []Leaf{{Text: "  "}}},
		{Leaves: []Leaf{{Text: "two"}}},
	}
	if got := NonEmptyText(blocks); got != "one\n\ntwo" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestClear_KeepsOtherLayer(t *testing.T) {
	intents := []Intent{{Dimension: "Tone", CurrentValue: "warm"}}
	blocks := []Block{{Kind: KindParagraph, Leaves: []Leaf{
		{Text: "Hi ", Origin: 1},
		{Text: "there", Origin: 1,
			Highlight:  &Highlight{ComponentID: "c1"},
			Dimensions: &DimensionMarker{ComponentID: "c1", LinkedIntents: intents, First: true}},
	}}}

	cleared := Clear(blocks, LayerHighlight)
	if blocks[0].Leaves[1].Highlight == nil {
		t.Fatal("Clear must not mutate its input")
	}
	for _, l := range cleared[0].Leaves {
		if l.Highlighted() {
			t.Errorf("leaf %q still highlighted", l.Text)
		}
	}
	last := cleared[0].Leaves[len(cleared[0].Leaves)-1]
	if !last.HasDimensions() || last.ComponentID() != "c1" {
		t.Errorf("expected dimension marker to survive, got %+v", last)
	}
}

func TestClear_MergesFragmentsOfSameOrigin(t *testing.T) {
	blocks := []Block{{Kind: KindParagraph, Leaves: []Leaf{
		{Text: "Dear Alex, ", Origin: 7},
		{Text: "I hope", Origin: 7, Highlight: &Highlight{ComponentID: "c1"}},
		{Text: " and more", Origin: 8, Bold: true},
	}}}
	cleared := Clear(blocks, LayerHighlight)
	leaves := cleared[0].Leaves
	if len(leaves) != 2 {
		t.Fatalf("expected 2 leaves after merge, got %d: %+v", len(leaves), leaves)
	}
	if leaves[0].Text != "Dear Alex, I hope" {
		t.Errorf("unexpected merged text %q", leaves[0].Text)
	}
	if !leaves[1].Bold {
		t.Error("expected leaf of a different origin to stay separate")
	}
}

func TestCompact_NeverEmptiesBlock(t *testing.T) {
	blocks := []Block{{Leaves: []Leaf{{Text: "", Origin: 3}, {Text: "", Origin: 4}}}}
	blocks = Compact(blocks)
	if len(blocks[0].Leaves) != 1 {
		t.Fatalf("expected single leaf, got %d", len(blocks[0].Leaves))
	}
	if blocks[0].Leaves[0].Origin != 3 {
		t.Errorf("expected origin 3, got %d", blocks[0].Leaves[0].Origin)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		blocks  []Block
		wantErr bool
	}{
		{"empty document", nil, true},
		{"block without leaves", []Block{{Kind: KindParagraph}}, true},
		{"single empty leaf", Minimal(""), false},
		{"empty leaf beside text", []Block{{Leaves: []Leaf{{Text: "a"}, {Text: ""}}}}, true},
		{"ordinary", FromText("a\n\nb"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.blocks)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLeafJSON_FlatShape(t *testing.T) {
	l := Leaf{
		Text: "hello",
		Highlight: &Highlight{
			ComponentID:   "c1",
			LinkedIntents: []Intent{{Dimension: "Tone", CurrentValue: "warm", OtherValues: []string{"cool"}}},
			First:         true,
		},
	}
	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"highlight":true`, `"componentId":"c1"`, `"hasDimensions":true`, `"isFirstTextNode":true`, `"current_value":"warm"`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}

	var back Leaf
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Highlight == nil || back.Highlight.ComponentID != "c1" || !back.Highlight.First {
		t.Errorf("highlight slot not restored: %+v", back.Highlight)
	}
	if back.Dimensions != nil {
		t.Errorf("expected no dimension slot, got %+v", back.Dimensions)
	}
}

func TestBlockJSON_DefaultsToParagraph(t *testing.T) {
	var b Block
	if err := json.Unmarshal([]byte(`{"children":[{"text":"x"}]}`), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.Kind != KindParagraph || b.Text() != "x" {
		t.Errorf("unexpected block %+v", b)
	}
}
