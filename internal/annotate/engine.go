// Package annotate paints component highlights and intent markers onto a
// draft. Every entry point returns a new document and leaves its input
// untouched.
package annotate

import (
	"github.com/dgallion1/draftlens/internal/document"
	"github.com/dgallion1/draftlens/internal/locate"
)

// Payload is what gets written into the annotated leaves.
type Payload struct {
	Layer         document.Layer
	ComponentID   string
	LinkedIntents []document.Intent
}

// Result is the outcome of a single annotation.
type Result struct {
	Blocks []document.Block
	Found  bool
	Match  *locate.Match
}

// Annotate clears p.Layer across the document, then marks the range of
// blocks matching target with p. When target cannot be located the cleared
// document is returned with Found unset.
func Annotate(blocks []document.Block, target string, p Payload) Result {
	out := document.Clear(blocks, p.Layer)
	m := paint(out, target, p)
	return Result{Blocks: out, Found: m != nil, Match: m}
}

// paint marks target in place. It returns nil when target is not found.
func paint(blocks []document.Block, target string, p Payload) *locate.Match {
	m, err := locate.Locate(target, blocks)
	if err != nil {
		return nil
	}
	markFirst := len(p.LinkedIntents) > 0
	for _, sp := range m.Overlaps() {
		b := &blocks[sp.Block]
		orig := b.Text()
		leaves := split(b.Leaves, sp.Start, sp.End, p, &markFirst)
		if len(leaves) == 0 {
			leaves = []document.Leaf{{Text: orig, Origin: firstOrigin(b.Leaves)}}
		}
		b.Leaves = leaves
	}
	document.Compact(blocks)
	return m
}

// split cuts every leaf at the block-local rune range [start, end) and
// writes the payload slot on the inside fragments. Fragments keep their
// source leaf's origin, formatting and other slot.
func split(leaves []document.Leaf, start, end int, p Payload, markFirst *bool) []document.Leaf {
	out := make([]document.Leaf, 0, len(leaves)+2)
	pos := 0
	for _, l := range leaves {
		runes := []rune(l.Text)
		n := len(runes)
		lo := clamp(start-pos, 0, n)
		hi := clamp(end-pos, lo, n)
		pos += n

		if lo > 0 {
			before := l
			before.Text = string(runes[:lo])
			out = append(out, before)
		}
		if hi > lo {
			inside := l
			inside.Text = string(runes[lo:hi])
			setSlot(&inside, p, *markFirst)
			*markFirst = false
			out = append(out, inside)
		}
		if hi < n {
			after := l
			after.Text = string(runes[hi:])
			out = append(out, after)
		}
	}
	return out
}

func setSlot(l *document.Leaf, p Payload, first bool) {
	switch p.Layer {
	case document.LayerHighlight:
		l.Highlight = &document.Highlight{
			ComponentID:   p.ComponentID,
			LinkedIntents: p.LinkedIntents,
			First:         first,
		}
	case document.LayerDimensions:
		l.Dimensions = &document.DimensionMarker{
			ComponentID:   p.ComponentID,
			LinkedIntents: p.LinkedIntents,
			First:         first,
		}
	}
}

func firstOrigin(leaves []document.Leaf) int {
	if len(leaves) == 0 {
		return 0
	}
	return leaves[0].Origin
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
