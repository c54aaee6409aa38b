// Package components keeps the extracted components of a draft, the
// session's intent list, and the combined results joining the two.
// Intent values changed on one component are kept as overrides for that
// component only; the session's intent list is what the analysis returned.
package components

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dgallion1/draftlens/internal/document"
)

// ErrUnknownComponent is returned for a component id not in the registry.
var ErrUnknownComponent = errors.New("unknown component")

// ErrUnknownIntent is returned for a dimension not in the intent list.
var ErrUnknownIntent = errors.New("unknown intent dimension")

// Component is a semantic span of the draft identified by the extractor.
type Component struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Link ties a component to an intent dimension.
type Link struct {
	ComponentID     string `json:"component_id"`
	IntentDimension string `json:"intent_dimension"`
}

// CombinedResult is a component with its resolved linked intents.
type CombinedResult struct {
	Component
	LinkedIntents []document.Intent `json:"linkedIntents"`
}

// Registry is the per-session source of truth for components. It is not
// safe for concurrent use; the owning session serializes access.
type Registry struct {
	components []Component
	intents    []document.Intent
	links      []Link
	overrides  map[overrideKey]document.Intent
	combined   []CombinedResult
}

type overrideKey struct {
	component string
	dimension string
}

func keyFor(componentID, dimension string) overrideKey {
	return overrideKey{componentID, strings.ToLower(strings.TrimSpace(dimension))}
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Replace installs a new extraction batch. Everything derived from the
// previous batch is dropped.
func (r *Registry) Replace(batch []Component) {
	r.components = slices.Clone(batch)
	r.intents = nil
	r.links = nil
	r.overrides = nil
	r.rebuild()
}

// Clear drops all components, intents and links.
func (r *Registry) Clear() {
	r.Replace(nil)
}

// SetIntents replaces the intent list and rebuilds combined results.
// Per-component overrides are dropped.
func (r *Registry) SetIntents(intents []document.Intent) {
	r.intents = cloneIntents(intents)
	r.overrides = nil
	r.rebuild()
}

// SetLinks replaces the component-intent links and rebuilds combined
// results.
func (r *Registry) SetLinks(links []Link) {
	r.links = slices.Clone(links)
	r.rebuild()
}

// Get returns the component with the given id.
func (r *Registry) Get(id string) (Component, bool) {
	i := r.indexOf(id)
	if i < 0 {
		return Component{}, false
	}
	return r.components[i], true
}

// List returns a copy of the components in extraction order.
func (r *Registry) List() []Component {
	return slices.Clone(r.components)
}

// Intents returns a copy of the intent list.
func (r *Registry) Intents() []document.Intent {
	return cloneIntents(r.intents)
}

// Links returns a copy of the links.
func (r *Registry) Links() []Link {
	return slices.Clone(r.links)
}

// Combined returns the current combined results.
func (r *Registry) Combined() []CombinedResult {
	return slices.Clone(r.combined)
}

// CombinedFor returns the combined result for one component.
func (r *Registry) CombinedFor(id string) (CombinedResult, bool) {
	for _, c := range r.combined {
		if c.ID == id {
			return c, true
		}
	}
	return CombinedResult{}, false
}

// UpdateContent replaces a component's content after an accepted edit.
func (r *Registry) UpdateContent(id, content string) error {
	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("update %s: %w", id, ErrUnknownComponent)
	}
	r.components[i].Content = content
	r.rebuild()
	return nil
}

// SetComponentIntent makes value the current value of dimension on one
// component. Other components linked to the same dimension keep theirs.
// It returns the component's intent before and after.
func (r *Registry) SetComponentIntent(componentID, dimension, value string) (before, after document.Intent, err error) {
	cr, ok := r.CombinedFor(componentID)
	if !ok {
		return before, after, fmt.Errorf("set intent on %s: %w", componentID, ErrUnknownComponent)
	}
	i := slices.IndexFunc(cr.LinkedIntents, func(in document.Intent) bool {
		return sameDimension(in.Dimension, dimension)
	})
	if i < 0 {
		return before, after, fmt.Errorf("set %q on %s: %w", dimension, componentID, ErrUnknownIntent)
	}
	before = cloneIntent(cr.LinkedIntents[i])
	after = SwapValue(before, value)
	if r.overrides == nil {
		r.overrides = make(map[overrideKey]document.Intent)
	}
	r.overrides[keyFor(componentID, dimension)] = after
	r.rebuild()
	return before, cloneIntent(after), nil
}

// SwapValue returns in with value promoted to current_value.
func SwapValue(in document.Intent, value string) document.Intent {
	out := cloneIntent(in)
	if value == in.CurrentValue {
		return out
	}
	if i := slices.Index(out.OtherValues, value); i >= 0 {
		out.OtherValues[i] = in.CurrentValue
	} else {
		out.OtherValues = append(out.OtherValues, in.CurrentValue)
	}
	out.CurrentValue = value
	return out
}

func (r *Registry) indexOf(id string) int {
	return slices.IndexFunc(r.components, func(c Component) bool { return c.ID == id })
}

func (r *Registry) rebuild() {
	r.combined = Combine(r.components, r.intents, r.links)
	if len(r.overrides) == 0 {
		return
	}
	for i := range r.combined {
		cr := &r.combined[i]
		for j, in := range cr.LinkedIntents {
			if o, ok := r.overrides[keyFor(cr.ID, in.Dimension)]; ok {
				cr.LinkedIntents[j] = cloneIntent(o)
			}
		}
	}
}

// Combine joins components with intents through links. Dimension names are
// compared trimmed and case-insensitively; each dimension is attached to a
// component at most once, in link order.
func Combine(comps []Component, intents []document.Intent, links []Link) []CombinedResult {
	out := make([]CombinedResult, 0, len(comps))
	for _, c := range comps {
		linked := []document.Intent{}
		for _, l := range links {
			if l.ComponentID != c.ID {
				continue
			}
			in, ok := findIntent(intents, l.IntentDimension)
			if !ok {
				continue
			}
			dup := slices.ContainsFunc(linked, func(x document.Intent) bool {
				return sameDimension(x.Dimension, in.Dimension)
			})
			if !dup {
				linked = append(linked, linkedIntent(in))
			}
		}
		out = append(out, CombinedResult{Component: c, LinkedIntents: linked})
	}
	return out
}

func findIntent(intents []document.Intent, dimension string) (document.Intent, bool) {
	for _, in := range intents {
		if sameDimension(in.Dimension, dimension) {
			return in, true
		}
	}
	return document.Intent{}, false
}

// linkedIntent copies in for attachment to a component. A missing current
// value reads as "N/A" and missing alternatives as an empty list.
func linkedIntent(in document.Intent) document.Intent {
	out := cloneIntent(in)
	if out.CurrentValue == "" {
		out.CurrentValue = "N/A"
	}
	if out.OtherValues == nil {
		out.OtherValues = []string{}
	}
	return out
}

func sameDimension(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func cloneIntent(in document.Intent) document.Intent {
	in.OtherValues = slices.Clone(in.OtherValues)
	return in
}

func cloneIntents(intents []document.Intent) []document.Intent {
	if intents == nil {
		return nil
	}
	out := make([]document.Intent, len(intents))
	for i, in := range intents {
		out[i] = cloneIntent(in)
	}
	return out
}
