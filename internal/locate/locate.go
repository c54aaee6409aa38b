// Package locate finds LLM-described content inside a draft, tolerating
// whitespace, case and punctuation drift, and maps the match back onto the
// draft's blocks.
package locate

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/draftlens/internal/document"
)

// ErrNotFound means the target text does not occur in the document.
var ErrNotFound = errors.New("content not found in document")

// NodeSpan records where one block sits inside the raw document text.
type NodeSpan struct {
	Block int
	Text  string
	Start int // rune offset in Raw, inclusive
	End   int // rune offset in Raw, exclusive
}

// Index is the flattened, searchable view of a document.
type Index struct {
	Raw   string
	Nodes []NodeSpan
	norm  *Normalized
}

// NewIndex flattens blocks into raw text joined by document.Separator and
// records each block's span.
func NewIndex(blocks []document.Block) *Index {
	var sb strings.Builder
	nodes := make([]NodeSpan, 0, len(blocks))
	pos := 0
	sepLen := utf8.RuneCountInString(document.Separator)
	for i, b := range blocks {
		text := b.Text()
		n := utf8.RuneCountInString(text)
		nodes = append(nodes, NodeSpan{Block: i, Text: text, Start: pos, End: pos + n})
		sb.WriteString(text)
		pos += n
		if i < len(blocks)-1 {
			sb.WriteString(document.Separator)
			pos += sepLen
		}
	}
	raw := sb.String()
	return &Index{
		Raw:   raw,
		Nodes: nodes,
		norm:  normalizeRunes([]rune(raw)),
	}
}

// Normalized exposes the normalized raw text and its offset map.
func (ix *Index) Normalized() *Normalized { return ix.norm }

// Match is a located range. Start and End are in normalized space,
// OrigStart and OrigEnd in raw document space.
type Match struct {
	Start, End         int
	OrigStart, OrigEnd int
	// Loose is set when only the punctuation-insensitive pass matched.
	Loose bool
	Index *Index
}

// Locate finds target in blocks.
func Locate(target string, blocks []document.Block) (*Match, error) {
	return NewIndex(blocks).Locate(target)
}

// Locate finds target in the indexed document. It tries an exact search
// over normalized text first, then a search with punctuation removed.
func (ix *Index) Locate(target string) (*Match, error) {
	normTarget := normalizeRunes([]rune(target)).Text
	if len(normTarget) == 0 {
		return nil, ErrNotFound
	}
	normRaw := ix.norm.Text

	if idx := indexRunes(normRaw, normTarget); idx >= 0 {
		return ix.match(idx, idx+len(normTarget), false), nil
	}

	cleanRaw := strip(normRaw)
	cleanTarget := []rune(strings.TrimSpace(string(strip(normTarget).Text)))
	if len(cleanTarget) == 0 {
		return nil, ErrNotFound
	}
	idx := indexRunes(cleanRaw.Text, cleanTarget)
	if idx < 0 {
		return nil, ErrNotFound
	}
	start := cleanRaw.keep[idx]
	end := cleanRaw.keep[idx+len(cleanTarget)-1] + 1
	return ix.match(start, end, true), nil
}

func (ix *Index) match(start, end int, loose bool) *Match {
	return &Match{
		Start:     start,
		End:       end,
		OrigStart: ix.norm.ToOriginal(start),
		OrigEnd:   ix.norm.EndToOriginal(end),
		Loose:     loose,
		Index:     ix,
	}
}

// Slice returns the raw document text covered by the match.
func (m *Match) Slice() string {
	raw := []rune(m.Index.Raw)
	return string(raw[m.OrigStart:m.OrigEnd])
}

// indexRunes is strings.Index in rune offsets.
func indexRunes(hay, needle []rune) int {
	h := string(hay)
	b := strings.Index(h, string(needle))
	if b < 0 {
		return -1
	}
	return utf8.RuneCountInString(h[:b])
}
