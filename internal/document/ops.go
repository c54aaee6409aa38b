package document

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyDocument is returned by Validate for a document without blocks.
var ErrEmptyDocument = errors.New("document has no blocks")

// Text flattens blocks to plain text, joined by Separator.
func Text(blocks []Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Text()
	}
	return strings.Join(parts, Separator)
}

// NonEmptyText flattens blocks like Text but skips blocks that hold only
// whitespace. This is the form drafts are saved in.
func NonEmptyText(blocks []Block) string {
	var parts []string
	for _, b := range blocks {
		if t := b.Text(); strings.TrimSpace(t) != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, Separator)
}

// FromText rebuilds a plain document: one paragraph per non-empty
// Separator-delimited chunk, trimmed. Formatting and annotations are not
// carried over.
func FromText(text string) []Block {
	var blocks []Block
	for _, p := range strings.Split(text, Separator) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		blocks = append(blocks, Block{Kind: KindParagraph, Leaves: []Leaf{{Text: p}}})
	}
	if len(blocks) == 0 {
		return Minimal("")
	}
	return Stamp(blocks)
}

// Minimal returns a single paragraph document holding text.
func Minimal(text string) []Block {
	return []Block{{Kind: KindParagraph, Leaves: []Leaf{{Text: text, Origin: 1}}}}
}

// Stamp assigns origins to leaves that have none, continuing after the
// largest origin already present.
func Stamp(blocks []Block) []Block {
	next := 0
	for _, b := range blocks {
		for _, l := range b.Leaves {
			next = max(next, l.Origin)
		}
	}
	for bi := range blocks {
		for li := range blocks[bi].Leaves {
			if blocks[bi].Leaves[li].Origin == 0 {
				next++
				blocks[bi].Leaves[li].Origin = next
			}
		}
	}
	return blocks
}

// Clone deep-copies blocks. Annotation slots are copied, intent slices are
// shared since they are never mutated in place.
func Clone(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b
		out[i].Leaves = make([]Leaf, len(b.Leaves))
		for j, l := range b.Leaves {
			out[i].Leaves[j] = cloneLeaf(l)
		}
	}
	return out
}

func cloneLeaf(l Leaf) Leaf {
	if l.Highlight != nil {
		h := *l.Highlight
		l.Highlight = &h
	}
	if l.Dimensions != nil {
		d := *l.Dimensions
		l.Dimensions = &d
	}
	return l
}

// Clear returns a copy of blocks with one annotation layer removed from
// every leaf. The other layer is left untouched.
func Clear(blocks []Block, layer Layer) []Block {
	out := Clone(blocks)
	for bi := range out {
		for li := range out[bi].Leaves {
			switch layer {
			case LayerHighlight:
				out[bi].Leaves[li].Highlight = nil
			case LayerDimensions:
				out[bi].Leaves[li].Dimensions = nil
			}
		}
	}
	return Compact(out)
}

// Compact merges adjacent leaves cut from the same origin that ended up
// with identical styling, and drops empty leaves. A block whose leaves are
// all empty keeps a single empty leaf.
func Compact(blocks []Block) []Block {
	for bi := range blocks {
		leaves := blocks[bi].Leaves
		merged := make([]Leaf, 0, len(leaves))
		for _, l := range leaves {
			if l.Text == "" {
				continue
			}
			if n := len(merged); n > 0 && sameStyle(merged[n-1], l) {
				merged[n-1].Text += l.Text
				continue
			}
			merged = append(merged, l)
		}
		if len(merged) == 0 {
			origin := 0
			if len(leaves) > 0 {
				origin = leaves[0].Origin
			}
			merged = []Leaf{{Origin: origin}}
		}
		blocks[bi].Leaves = merged
	}
	return blocks
}

// Validate checks the structural invariants: at least one block, at least
// one leaf per block, and no empty leaf next to other leaves.
func Validate(blocks []Block) error {
	if len(blocks) == 0 {
		return ErrEmptyDocument
	}
	for bi, b := range blocks {
		if len(b.Leaves) == 0 {
			return fmt.Errorf("block %d has no leaves", bi)
		}
		if len(b.Leaves) == 1 {
			continue
		}
		for li, l := range b.Leaves {
			if l.Text == "" {
				return fmt.Errorf("block %d leaf %d is empty", bi, li)
			}
		}
	}
	return nil
}
