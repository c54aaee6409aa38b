// Package pipeline applies accepted component edits to a draft and runs the
// background machinery around service calls: single-flight guards,
// retries, failure classification and fire-and-forget persistence.
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/draftlens/internal/annotate"
	"github.com/dgallion1/draftlens/internal/components"
	"github.com/dgallion1/draftlens/internal/document"
	"github.com/dgallion1/draftlens/internal/locate"
)

// ErrStaleContent means the component's recorded content no longer occurs
// in the draft.
var ErrStaleContent = errors.New("component content not found in draft")

// ErrEmptyContent rejects a replacement with no visible text. A blank
// component can never be located again.
var ErrEmptyContent = errors.New("replacement content is empty")

// EditResult is the draft and registry state after an edit.
type EditResult struct {
	Blocks     []document.Block
	Components []components.Component
	Combined   []components.CombinedResult
	// Text is the draft as it should be persisted.
	Text string
	// Missing lists components whose markers could not be repainted.
	Missing []string
}

// ApplyEdit replaces the first occurrence of oldContent in documentText
// with newContent, rebuilds the draft as plain paragraphs, records the new
// content on the component and repaints every marker plus the component's
// highlight. Rich formatting does not survive.
func ApplyEdit(reg *components.Registry, componentID, oldContent, newContent, documentText string) (*EditResult, error) {
	if _, ok := reg.Get(componentID); !ok {
		return nil, fmt.Errorf("edit %s: %w", componentID, components.ErrUnknownComponent)
	}
	if strings.TrimSpace(newContent) == "" {
		return nil, fmt.Errorf("edit %s: %w", componentID, ErrEmptyContent)
	}
	text, err := replaceFirst(documentText, oldContent, newContent)
	if err != nil {
		return nil, fmt.Errorf("edit %s: %w", componentID, err)
	}

	blocks := document.FromText(text)
	if err := reg.UpdateContent(componentID, newContent); err != nil {
		return nil, err
	}

	combined := reg.Combined()
	blocks, missing := annotate.PaintDimensions(blocks, combined)
	if cr, ok := reg.CombinedFor(componentID); ok {
		blocks = annotate.Highlight(blocks, cr).Blocks
	}
	return &EditResult{
		Blocks:     blocks,
		Components: reg.List(),
		Combined:   combined,
		Text:       document.NonEmptyText(blocks),
		Missing:    missing,
	}, nil
}

// replaceFirst swaps the first occurrence of old in text. When old only
// occurs with different whitespace or case, the located span is replaced
// instead; punctuation-insensitive matches are not trusted for edits.
func replaceFirst(text, old, repl string) (string, error) {
	if strings.TrimSpace(old) == "" {
		return "", ErrStaleContent
	}
	if strings.Contains(text, old) {
		return strings.Replace(text, old, repl, 1), nil
	}
	blocks := document.FromText(text)
	m, err := locate.Locate(old, blocks)
	if err != nil || m.Loose {
		return "", ErrStaleContent
	}
	raw := []rune(m.Index.Raw)
	return string(raw[:m.OrigStart]) + repl + string(raw[m.OrigEnd:]), nil
}
