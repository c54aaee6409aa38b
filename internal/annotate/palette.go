package annotate

import (
	"maps"
	"strings"
	"sync"
)

// DefaultPalette is the marker palette, in assignment order.
var DefaultPalette = []string{
	"#ff7875", "#ff9c6e", "#ffc069", "#d3f261", "#ffd666",
	"#fff566", "#95de64", "#5cdbd3", "#b37feb", "#ff85c0",
	"#ffa39e", "#ffbb96", "#ffd591", "#eaff8f", "#ffe58f",
	"#fffb8f", "#b7eb8f", "#87e8de", "#d3adf7", "#ffadd2",
}

// ColorCache assigns each intent dimension a palette colour the first time
// it is asked for and returns the same colour afterwards. Once the palette
// is exhausted colours are reused from the start.
type ColorCache struct {
	mu       sync.Mutex
	palette  []string
	assigned map[string]string
	next     int
}

// NewColorCache returns a cache over palette, or DefaultPalette when
// palette is empty.
func NewColorCache(palette []string) *ColorCache {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &ColorCache{
		palette:  append([]string(nil), palette...),
		assigned: make(map[string]string),
	}
}

// Color returns the colour for dimension. Dimension names are matched
// trimmed and case-insensitively.
func (c *ColorCache) Color(dimension string) string {
	key := strings.ToLower(strings.TrimSpace(dimension))
	c.mu.Lock()
	defer c.mu.Unlock()
	if col, ok := c.assigned[key]; ok {
		return col
	}
	col := c.palette[c.next%len(c.palette)]
	c.next++
	c.assigned[key] = col
	return col
}

// Reset forgets every assignment.
func (c *ColorCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.assigned)
	c.next = 0
}

// Snapshot returns a copy of the current assignments.
func (c *ColorCache) Snapshot() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.assigned)
}
