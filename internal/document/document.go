// Package document holds the rich-text draft model: an ordered list of blocks,
// each made of leaves that carry text, formatting and annotation slots.
package document

import "slices"

// Separator joins block texts when the draft is flattened to plain text.
const Separator = "\n\n"

// Kind is the block type.
type Kind string

const (
	KindParagraph    Kind = "paragraph"
	KindHeading1     Kind = "heading-1"
	KindHeading2     Kind = "heading-2"
	KindBulletedList Kind = "bulleted-list"
	KindNumberedList Kind = "numbered-list"
	KindListItem     Kind = "list-item"
)

// Layer names one annotation slot on a leaf.
type Layer int

const (
	LayerHighlight Layer = iota
	LayerDimensions
)

func (l Layer) String() string {
	switch l {
	case LayerHighlight:
		return "highlight"
	case LayerDimensions:
		return "dimensions"
	}
	return "unknown"
}

// Intent is a stylistic dimension with its current and alternative values.
type Intent struct {
	Dimension    string   `json:"dimension"`
	CurrentValue string   `json:"current_value"`
	OtherValues  []string `json:"other_values"`
}

// Equal reports whether two intents carry the same dimension and values,
// with other_values compared in order.
func (i Intent) Equal(o Intent) bool {
	return i.Dimension == o.Dimension &&
		i.CurrentValue == o.CurrentValue &&
		slices.Equal(i.OtherValues, o.OtherValues)
}

// Highlight marks a leaf as part of the selected component.
type Highlight struct {
	ComponentID   string
	LinkedIntents []Intent
	First         bool
}

// DimensionMarker marks a leaf as belonging to a component with linked
// intents. First is set on the one leaf that anchors the marker cluster.
type DimensionMarker struct {
	ComponentID   string
	LinkedIntents []Intent
	First         bool
}

// Leaf is the smallest addressable run of text.
type Leaf struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool

	Highlight  *Highlight
	Dimensions *DimensionMarker

	// Origin identifies the leaf this text was created as. Fragments produced
	// by splitting keep the origin of the leaf they were cut from.
	Origin int
}

// Block is one paragraph, heading or list item.
type Block struct {
	Kind   Kind
	List   Kind // container kind for list items
	Leaves []Leaf
}

// Text concatenates the block's leaf texts.
func (b Block) Text() string {
	if len(b.Leaves) == 1 {
		return b.Leaves[0].Text
	}
	n := 0
	for _, l := range b.Leaves {
		n += len(l.Text)
	}
	buf := make([]byte, 0, n)
	for _, l := range b.Leaves {
		buf = append(buf, l.Text...)
	}
	return string(buf)
}

// Highlighted reports whether the leaf carries the selection highlight.
func (l Leaf) Highlighted() bool { return l.Highlight != nil }

// ComponentID returns the owning component, preferring the highlight slot.
func (l Leaf) ComponentID() string {
	if l.Highlight != nil {
		return l.Highlight.ComponentID
	}
	if l.Dimensions != nil {
		return l.Dimensions.ComponentID
	}
	return ""
}

// HasDimensions reports whether the leaf renders intent markers.
func (l Leaf) HasDimensions() bool {
	if l.Dimensions != nil {
		return true
	}
	return l.Highlight != nil && len(l.Highlight.LinkedIntents) > 0
}

// LinkedIntents returns the intents attached to the leaf, if any.
func (l Leaf) LinkedIntents() []Intent {
	if l.Dimensions != nil {
		return l.Dimensions.LinkedIntents
	}
	if l.Highlight != nil {
		return l.Highlight.LinkedIntents
	}
	return nil
}

// IsFirstTextNode reports whether the leaf anchors a marker cluster.
func (l Leaf) IsFirstTextNode() bool {
	return (l.Highlight != nil && l.Highlight.First) ||
		(l.Dimensions != nil && l.Dimensions.First)
}

// sameStyle reports whether two leaves could be merged into one run.
func sameStyle(a, b Leaf) bool {
	if a.Origin != b.Origin || a.Bold != b.Bold || a.Italic != b.Italic || a.Underline != b.Underline {
		return false
	}
	return sameHighlight(a.Highlight, b.Highlight) && sameDimensions(a.Dimensions, b.Dimensions)
}

func sameHighlight(a, b *Highlight) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ComponentID == b.ComponentID && a.First == b.First &&
		slices.EqualFunc(a.LinkedIntents, b.LinkedIntents, Intent.Equal)
}

func sameDimensions(a, b *DimensionMarker) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ComponentID == b.ComponentID && a.First == b.First &&
		slices.EqualFunc(a.LinkedIntents, b.LinkedIntents, Intent.Equal)
}
