package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/draftlens/internal/document"
)

func TestHTMLParser_Blocks(t *testing.T) {
	input := `<html><head><title>ignored</title></head><body>` +
		`<h1>Invite</h1><p>Hello <b>Alex</b>,</p>` +
		`<ul><li>One</li><li>Two</li></ul><script>track()</script></body></html>`

	p := &HTMLParser{}
	blocks, err := p.Parse(strings.NewReader(input), "draft.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []struct {
		kind document.Kind
		list document.Kind
		text string
	}{
		{document.KindHeading1, "", "Invite"},
		{document.KindParagraph, "", "Hello Alex,"},
		{document.KindListItem, document.KindBulletedList, "One"},
		{document.KindListItem, document.KindBulletedList, "Two"},
	}
	if len(blocks) != len(want) {
		t.Fatalf("got %d blocks %q, want %d", len(blocks), blockTexts(blocks), len(want))
	}
	for i, w := range want {
		if blocks[i].Kind != w.kind || blocks[i].List != w.list || blocks[i].Text() != w.text {
			t.Errorf("block %d = %s/%s %q, want %s/%s %q",
				i, blocks[i].Kind, blocks[i].List, blocks[i].Text(), w.kind, w.list, w.text)
		}
	}

	leaves := blocks[1].Leaves
	if len(leaves) != 3 || !leaves[1].Bold || leaves[1].Text != "Alex" || leaves[0].Bold {
		t.Errorf("paragraph leaves = %+v, want bold run for Alex", leaves)
	}
}

func TestHTMLParser_Empty(t *testing.T) {
	p := &HTMLParser{}
	blocks, err := p.Parse(strings.NewReader("<html><body>  </body></html>"), "empty.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Text() != "" {
		t.Errorf("blocks = %q, want one empty block", blockTexts(blocks))
	}
}
