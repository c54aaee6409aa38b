package llm

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/draftlens/internal/components"
	"github.com/dgallion1/draftlens/internal/document"
)

// ValidateComponents trims what the extractor returned, drops components
// without content and gives id-less components their position as id.
// Duplicate ids keep the first occurrence.
func ValidateComponents(in []components.Component) []components.Component {
	out := make([]components.Component, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, c := range in {
		c.ID = strings.TrimSpace(c.ID)
		c.Title = strings.TrimSpace(c.Title)
		c.Content = strings.TrimSpace(c.Content)
		if c.Content == "" {
			continue
		}
		if c.ID == "" {
			c.ID = strconv.Itoa(i + 1)
		}
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

// ValidateIntents drops intents without a dimension name and removes the
// current value and blanks from the alternatives.
func ValidateIntents(in []document.Intent) []document.Intent {
	out := make([]document.Intent, 0, len(in))
	for _, it := range in {
		it.Dimension = strings.TrimSpace(it.Dimension)
		if it.Dimension == "" {
			continue
		}
		others := make([]string, 0, len(it.OtherValues))
		for _, v := range it.OtherValues {
			if strings.TrimSpace(v) == "" || v == it.CurrentValue {
				continue
			}
			others = append(others, v)
		}
		it.OtherValues = others
		out = append(out, it)
	}
	return out
}

var (
	slugInvalidRe = regexp.MustCompile(`[^a-z0-9_-]`)
	slugDashRe    = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a URL/path-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalidRe.ReplaceAllString(s, "-")
	s = slugDashRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}
