package document

import "encoding/json"

// leafJSON is the flat wire shape of a leaf used by editor clients.
type leafJSON struct {
	Text            string   `json:"text"`
	Bold            bool     `json:"bold,omitempty"`
	Italic          bool     `json:"italic,omitempty"`
	Underline       bool     `json:"underline,omitempty"`
	Highlight       bool     `json:"highlight,omitempty"`
	ComponentID     string   `json:"componentId,omitempty"`
	HasDimensions   bool     `json:"hasDimensions,omitempty"`
	LinkedIntents   []Intent `json:"linkedIntents,omitempty"`
	IsFirstTextNode bool     `json:"isFirstTextNode,omitempty"`
	Origin          int      `json:"origin,omitempty"`
}

type blockJSON struct {
	Type     Kind   `json:"type"`
	List     Kind   `json:"list,omitempty"`
	Children []Leaf `json:"children"`
}

func (l Leaf) MarshalJSON() ([]byte, error) {
	return json.Marshal(leafJSON{
		Text:            l.Text,
		Bold:            l.Bold,
		Italic:          l.Italic,
		Underline:       l.Underline,
		Highlight:       l.Highlighted(),
		ComponentID:     l.ComponentID(),
		HasDimensions:   l.HasDimensions(),
		LinkedIntents:   l.LinkedIntents(),
		IsFirstTextNode: l.IsFirstTextNode(),
		Origin:          l.Origin,
	})
}

// UnmarshalJSON accepts the flat wire shape. Highlight and dimension flags
// are mapped back onto their slots.
func (l *Leaf) UnmarshalJSON(data []byte) error {
	var raw leafJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = Leaf{
		Text:      raw.Text,
		Bold:      raw.Bold,
		Italic:    raw.Italic,
		Underline: raw.Underline,
		Origin:    raw.Origin,
	}
	if raw.Highlight {
		l.Highlight = &Highlight{
			ComponentID:   raw.ComponentID,
			LinkedIntents: raw.LinkedIntents,
			First:         raw.IsFirstTextNode,
		}
	}
	if raw.HasDimensions && !raw.Highlight {
		l.Dimensions = &DimensionMarker{
			ComponentID:   raw.ComponentID,
			LinkedIntents: raw.LinkedIntents,
			First:         raw.IsFirstTextNode,
		}
	}
	return nil
}

func (b Block) MarshalJSON() ([]byte, error) {
	children := b.Leaves
	if children == nil {
		children = []Leaf{}
	}
	return json.Marshal(blockJSON{Type: b.Kind, List: b.List, Children: children})
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var raw blockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type == "" {
		raw.Type = KindParagraph
	}
	*b = Block{Kind: raw.Type, List: raw.List, Leaves: raw.Children}
	return nil
}
