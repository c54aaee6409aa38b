package locate

import (
	"sort"
	"unicode"
)

// Normalized is a search-space rendition of some source text: whitespace
// runs collapsed to a single space, ends trimmed, everything lower-cased.
// It remembers where each of its runes came from so offsets can be mapped
// back to the source. All offsets are rune offsets.
type Normalized struct {
	Text   []rune
	origin []int // origin[i] is the source index of Text[i]
	srcLen int
}

// Normalize returns the normalized form of s as a string.
func Normalize(s string) string {
	return string(normalizeRunes([]rune(s)).Text)
}

// normalizeRunes walks the source once, emitting one rune per non-space
// source rune and one space per interior whitespace run.
func normalizeRunes(src []rune) *Normalized {
	n := &Normalized{
		Text:   make([]rune, 0, len(src)),
		origin: make([]int, 0, len(src)),
		srcLen: len(src),
	}
	pendingSpace := -1
	for i, r := range src {
		if unicode.IsSpace(r) {
			if pendingSpace < 0 && len(n.Text) > 0 {
				pendingSpace = i
			}
			continue
		}
		if pendingSpace >= 0 {
			n.Text = append(n.Text, ' ')
			n.origin = append(n.origin, pendingSpace)
			pendingSpace = -1
		}
		n.Text = append(n.Text, unicode.ToLower(r))
		n.origin = append(n.origin, i)
	}
	return n
}

// Len is the length of the normalized text in runes.
func (n *Normalized) Len() int { return len(n.Text) }

// ToOriginal maps a normalized start offset to the source offset of the
// same rune. Offsets at or past the end map to the end of the last emitted
// rune.
func (n *Normalized) ToOriginal(pos int) int {
	if pos <= 0 {
		if len(n.origin) == 0 {
			return 0
		}
		return n.origin[0]
	}
	if pos >= len(n.origin) {
		return n.EndToOriginal(len(n.origin))
	}
	return n.origin[pos]
}

// EndToOriginal maps an exclusive normalized end offset to an exclusive
// source offset, just past the last rune in range.
func (n *Normalized) EndToOriginal(end int) int {
	if end <= 0 || len(n.origin) == 0 {
		return n.ToOriginal(0)
	}
	if end > len(n.origin) {
		end = len(n.origin)
	}
	return n.origin[end-1] + 1
}

// ToNormalized maps a source offset to the first normalized rune that
// comes from that offset or later.
func (n *Normalized) ToNormalized(orig int) int {
	return sort.SearchInts(n.origin, orig)
}

// isWord matches the word class used by the punctuation-tolerant pass.
func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// stripped is a normalized text with every non-word, non-space rune
// removed. keep[i] is the normalized index of Text[i].
type stripped struct {
	Text []rune
	keep []int
}

func strip(norm []rune) stripped {
	s := stripped{
		Text: make([]rune, 0, len(norm)),
		keep: make([]int, 0, len(norm)),
	}
	for i, r := range norm {
		if isWord(r) || unicode.IsSpace(r) {
			s.Text = append(s.Text, r)
			s.keep = append(s.keep, i)
		}
	}
	return s
}
