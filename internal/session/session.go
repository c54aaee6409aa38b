// Package session owns the per-task editing state: the draft, its
// components and intents, the current selection, staged previews and the
// guard against overlapping service calls.
package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dgallion1/draftlens/internal/annotate"
	"github.com/dgallion1/draftlens/internal/components"
	"github.com/dgallion1/draftlens/internal/document"
	"github.com/dgallion1/draftlens/internal/llm"
	"github.com/dgallion1/draftlens/internal/pipeline"
)

// ResetText is the content a session falls back to after a failure left
// the draft unusable.
const ResetText = "Content reset due to error. Please reload."

var (
	ErrNoSession        = errors.New("session not found")
	ErrNoSelection      = errors.New("no component selected")
	ErrNoPreview        = errors.New("no preview staged")
	ErrUnknownAction    = errors.New("unknown action")
	ErrEmptyDraft       = errors.New("draft has no content")
	ErrNoRecommendation = errors.New("recommendation not found")
	ErrSessionReset     = errors.New("session was reset after an error")
)

// Edit is an applied change whose reason has not been recorded yet.
type Edit struct {
	ComponentID string `json:"componentId"`
	OldContent  string `json:"oldContent"`
	NewContent  string `json:"newContent"`
}

// Preview is replacement content staged for the selected component.
type Preview struct {
	ID          string `json:"id"`
	ComponentID string `json:"componentId"`
	Source      string `json:"source"`
	OldContent  string `json:"oldContent"`
	NewContent  string `json:"newContent"`
	Diff        string `json:"diff,omitempty"`

	// Intent is the intent as it will read once the preview is applied,
	// set for intent-driven previews.
	Intent *document.Intent `json:"intent,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Session is the editing state of one task.
type Session struct {
	mu sync.Mutex

	TaskID   string
	User     string
	UserTask string

	blocks   []document.Block
	reg      *components.Registry
	selected string
	preview  *Preview
	pending  *Edit

	recsFor string
	recs    []llm.Recommendation

	anchors   *AnchorResult
	notice    string
	lastWrite string

	flight     *pipeline.Flight
	lastAccess time.Time
}

func newSession(taskID, userTask string, blocks []document.Block) *Session {
	return &Session{
		TaskID:     taskID,
		User:       llm.UserFromTask(taskID),
		UserTask:   userTask,
		blocks:     blocks,
		reg:        components.NewRegistry(),
		flight:     pipeline.NewFlight(),
		lastAccess: time.Now(),
	}
}

func (s *Session) task() llm.Task {
	return llm.Task{ID: s.TaskID, User: s.User, Description: s.UserTask}
}

func (s *Session) touch() { s.lastAccess = time.Now() }

// State is a read-only copy of a session for callers.
type State struct {
	TaskID          string                      `json:"taskId"`
	User            string                      `json:"userName"`
	UserTask        string                      `json:"userTask"`
	Blocks          []document.Block            `json:"blocks"`
	Text            string                      `json:"text"`
	Components      []components.Component      `json:"components"`
	Intents         []document.Intent           `json:"intents"`
	Combined        []components.CombinedResult `json:"combinedResults"`
	Selected        string                      `json:"selectedComponentId,omitempty"`
	Preview         *Preview                    `json:"preview,omitempty"`
	PendingEdit     *Edit                       `json:"pendingEdit,omitempty"`
	Recommendations []llm.Recommendation        `json:"recommendations,omitempty"`
	Anchors         *AnchorResult               `json:"anchors,omitempty"`
	Busy            []string                    `json:"busy,omitempty"`
	Notice          string                      `json:"notice,omitempty"`
	LastWrite       string                      `json:"lastWriteId,omitempty"`
}

// snapshot must be called with s.mu held.
func (s *Session) snapshot() State {
	st := State{
		TaskID:          s.TaskID,
		User:            s.User,
		UserTask:        s.UserTask,
		Blocks:          document.Clone(s.blocks),
		Text:            document.NonEmptyText(s.blocks),
		Components:      s.reg.List(),
		Intents:         s.reg.Intents(),
		Combined:        s.reg.Combined(),
		Selected:        s.selected,
		Recommendations: slices.Clone(s.recs),
		Anchors:         s.anchors,
		Busy:            s.flight.Families(),
		Notice:          s.notice,
		LastWrite:       s.lastWrite,
	}
	if s.preview != nil {
		p := *s.preview
		st.Preview = &p
	}
	if s.pending != nil {
		e := *s.pending
		st.PendingEdit = &e
	}
	return st
}

// clearAnnotations drops components, selection and staged work, leaving
// the draft text as is. Called with s.mu held.
func (s *Session) clearAnnotations() {
	s.reg.Clear()
	s.selected = ""
	s.preview = nil
	s.recs, s.recsFor = nil, ""
	s.blocks = document.Clear(document.Clear(s.blocks, document.LayerHighlight), document.LayerDimensions)
}

// reset replaces the draft with the single reset paragraph and forgets all
// derived state. Called with s.mu held.
func (s *Session) reset(reason string) {
	s.blocks = document.Minimal(ResetText)
	s.reg.Clear()
	s.selected = ""
	s.preview = nil
	s.pending = nil
	s.recs, s.recsFor = nil, ""
	s.notice = reason
}

// safely runs a document mutation. A panic or a structurally invalid
// draft afterwards resets the session and returns ErrSessionReset. Called
// with s.mu held.
func (s *Session) safely(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.reset(fmt.Sprintf("%s failed: %v", op, r))
			err = fmt.Errorf("%s: %w", op, ErrSessionReset)
		}
	}()
	if err := fn(); err != nil {
		return err
	}
	if verr := document.Validate(s.blocks); verr != nil {
		s.reset(fmt.Sprintf("%s left an invalid draft: %v", op, verr))
		return fmt.Errorf("%s: %w", op, ErrSessionReset)
	}
	return nil
}

// repaint redraws every dimension marker and the selection highlight.
// Called with s.mu held; returns components that could not be located.
func (s *Session) repaint() []string {
	blocks, missing := annotate.PaintDimensions(s.blocks, s.reg.Combined())
	if cr, ok := s.reg.CombinedFor(s.selected); ok {
		blocks = annotate.Highlight(blocks, cr).Blocks
	} else {
		s.selected = ""
		blocks = annotate.Unhighlight(blocks)
	}
	s.blocks = blocks
	return missing
}
