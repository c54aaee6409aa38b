package locate

// Span is the part of one block covered by a match, in block-local rune
// offsets.
type Span struct {
	Block int
	Start int
	End   int
}

// Overlaps returns the per-block pieces of the match. Blocks entirely
// before or after the range are skipped, the separator between blocks is
// never part of a span, and empty overlaps are dropped.
func (m *Match) Overlaps() []Span {
	return overlaps(m.Index.Nodes, m.OrigStart, m.OrigEnd)
}

func overlaps(nodes []NodeSpan, qStart, qEnd int) []Span {
	var spans []Span
	for _, n := range nodes {
		if n.End <= qStart || n.Start >= qEnd {
			continue
		}
		length := n.End - n.Start
		start := clamp(max(n.Start, qStart)-n.Start, 0, length)
		end := clamp(min(n.End, qEnd)-n.Start, start, length)
		if end <= start {
			continue
		}
		spans = append(spans, Span{Block: n.Block, Start: start, End: end})
	}
	return spans
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
