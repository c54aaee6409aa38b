package locate

import (
	"github.com/sahilm/fuzzy"

	"github.com/dgallion1/draftlens/internal/document"
)

// suggestPatternLen caps how much of the target is used as the fuzzy
// pattern; a full paragraph rarely matches as a subsequence once the LLM
// has paraphrased it.
const suggestPatternLen = 32

// Suggestion is a block that resembles a target that could not be located.
type Suggestion struct {
	Block int    `json:"block"`
	Score int    `json:"score"`
	Text  string `json:"text"`
}

// Suggest ranks blocks by fuzzy similarity to the opening of target.
func Suggest(target string, blocks []document.Block, limit int) []Suggestion {
	pattern := []rune(Normalize(target))
	if len(pattern) == 0 {
		return nil
	}
	if len(pattern) > suggestPatternLen {
		pattern = pattern[:suggestPatternLen]
	}

	candidates := make([]string, len(blocks))
	for i, b := range blocks {
		candidates[i] = Normalize(b.Text())
	}

	matches := fuzzy.Find(string(pattern), candidates)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]Suggestion, 0, len(matches))
	for _, m := range matches {
		out = append(out, Suggestion{
			Block: m.Index,
			Score: m.Score,
			Text:  blocks[m.Index].Text(),
		})
	}
	return out
}
