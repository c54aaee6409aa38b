package annotate

import (
	"github.com/dgallion1/draftlens/internal/components"
	"github.com/dgallion1/draftlens/internal/document"
)

// Highlight marks the selected component. Any previous highlight is
// removed; dimension markers are kept.
func Highlight(blocks []document.Block, c components.CombinedResult) Result {
	return Annotate(blocks, c.Content, Payload{
		Layer:         document.LayerHighlight,
		ComponentID:   c.ID,
		LinkedIntents: c.LinkedIntents,
	})
}

// Unhighlight removes the selection highlight.
func Unhighlight(blocks []document.Block) []document.Block {
	return document.Clear(blocks, document.LayerHighlight)
}

// PaintDimensions clears every dimension marker once and then paints one
// marker cluster per combined result that has linked intents, so markers
// for all components coexist. It returns the ids of components whose
// content could not be located.
func PaintDimensions(blocks []document.Block, combined []components.CombinedResult) ([]document.Block, []string) {
	out := document.Clear(blocks, document.LayerDimensions)
	var missing []string
	for _, c := range combined {
		if len(c.LinkedIntents) == 0 {
			continue
		}
		m := paint(out, c.Content, Payload{
			Layer:         document.LayerDimensions,
			ComponentID:   c.ID,
			LinkedIntents: c.LinkedIntents,
		})
		if m == nil {
			missing = append(missing, c.ID)
		}
	}
	return out, missing
}
