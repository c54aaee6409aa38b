package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dgallion1/draftlens/internal/annotate"
	"github.com/dgallion1/draftlens/internal/blobstore"
	"github.com/dgallion1/draftlens/internal/components"
	"github.com/dgallion1/draftlens/internal/document"
	"github.com/dgallion1/draftlens/internal/llm"
	"github.com/dgallion1/draftlens/internal/locate"
	"github.com/dgallion1/draftlens/internal/parser"
	"github.com/dgallion1/draftlens/internal/pipeline"
	"github.com/dgallion1/draftlens/internal/render"
)

// Service is the draft service as the session layer uses it. *llm.Client
// implements it.
type Service interface {
	ExtractComponents(ctx context.Context, t llm.Task) ([]components.Component, error)
	AnalyzeIntents(ctx context.Context, t llm.Task) ([]document.Intent, error)
	LinkComponents(ctx context.Context, t llm.Task, comps []components.Component) ([]components.Link, error)
	Rewrite(ctx context.Context, t llm.Task, selected, prompt string) (string, error)
	Expand(ctx context.Context, t llm.Task, selected string) (string, error)
	Shorten(ctx context.Context, t llm.Task, selected string) (string, error)
	IntentVariations(ctx context.Context, t llm.Task, vr llm.VariationRequest) ([]llm.Variation, error)
	Recommend(ctx context.Context, t llm.Task, selected string) ([]llm.Recommendation, error)
	SaveManualEdit(ctx context.Context, t llm.Task, reason, before, after string) error
	RegenerateDraft(ctx context.Context, t llm.Task, factors json.RawMessage, intents []document.Intent) (string, error)
	GenerateAnchors(ctx context.Context, t llm.Task) (*llm.Anchors, error)
	GenerateImages(ctx context.Context, t llm.Task, a *llm.Anchors) (*llm.Images, error)
}

var _ Service = (*llm.Client)(nil)

// Deadlines are the client-side limits for guarded actions.
type Deadlines struct {
	Action time.Duration
	Anchor time.Duration
	Image  time.Duration
}

// Options configures a Manager.
type Options struct {
	Service   Service
	Blobs     blobstore.Store
	Persister *pipeline.Persister
	Colors    *annotate.ColorCache
	Deadlines Deadlines
	// SessionTTL is how long an idle session is kept.
	SessionTTL time.Duration
	// PDFFallback enables pdftotext for imports the PDF library cannot read.
	PDFFallback bool
}

// Manager runs every session operation.
type Manager struct {
	store       *Store
	svc         Service
	blobs       blobstore.Store
	persister   *pipeline.Persister
	colors      *annotate.ColorCache
	deadlines   Deadlines
	pdfFallback bool
	log         *slog.Logger
}

func NewManager(o Options, log *slog.Logger) *Manager {
	if o.Colors == nil {
		o.Colors = annotate.NewColorCache(nil)
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = 2 * time.Hour
	}
	return &Manager{
		store:       NewStore(o.SessionTTL),
		svc:         o.Service,
		blobs:       o.Blobs,
		persister:   o.Persister,
		colors:      o.Colors,
		deadlines:   o.Deadlines,
		pdfFallback: o.PDFFallback,
		log:         log,
	}
}

// Store exposes the session store, for eviction.
func (m *Manager) Store() *Store { return m.store }

// Colors is the process-wide dimension colour cache.
func (m *Manager) Colors() *annotate.ColorCache { return m.colors }

func (m *Manager) key(s *Session, path string) blobstore.Key {
	return blobstore.Key{User: s.User, Task: s.TaskID, Path: path}
}

// session looks up an open session.
func (m *Manager) session(taskID string) (*Session, error) {
	s := m.store.Get(taskID)
	if s == nil {
		return nil, fmt.Errorf("%s: %w", taskID, ErrNoSession)
	}
	return s, nil
}

// do runs fn on the session under its lock and returns the resulting state.
func (m *Manager) do(taskID string, fn func(s *Session) error) (State, error) {
	s, err := m.session(taskID)
	if err != nil {
		return State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err := fn(s); err != nil {
		return s.snapshot(), err
	}
	return s.snapshot(), nil
}

// persistDraft queues the draft text for storage without waiting. Called
// with s.mu held.
func (m *Manager) persistDraft(s *Session, text string) {
	if w := m.persist(s, blobstore.DraftPath, []byte(text)); w != nil {
		s.lastWrite = w.ID
	}
}

func (m *Manager) persist(s *Session, path string, data []byte) *pipeline.Write {
	if m.persister == nil {
		return nil
	}
	w, err := m.persister.Submit(m.key(s, path), data)
	if err != nil {
		m.log.Warn("persist queue rejected write", "task_id", s.TaskID, "path", path, "error", err)
	}
	return w
}

// Open loads the task's saved draft into a fresh session. A task without a
// saved draft opens on an empty document.
func (m *Manager) Open(ctx context.Context, taskID, userTask string) (State, error) {
	k := blobstore.Key{User: llm.UserFromTask(taskID), Task: taskID, Path: blobstore.DraftPath}
	if err := k.Validate(); err != nil {
		return State{}, err
	}
	blocks := document.Minimal("")
	data, err := m.blobs.Get(ctx, k)
	switch {
	case err == nil:
		blocks = parser.ParseMarkdown(data)
	case errors.Is(err, blobstore.ErrNotFound):
	default:
		return State{}, fmt.Errorf("load draft: %w", err)
	}

	s := newSession(taskID, userTask, blocks)
	m.store.Put(s)
	m.log.Info("session opened", "task_id", taskID, "blocks", len(blocks), "found", err == nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// Get returns the current state of an open session.
func (m *Manager) Get(taskID string) (State, error) {
	return m.do(taskID, func(*Session) error { return nil })
}

// Close forgets a session.
func (m *Manager) Close(taskID string) {
	m.store.Delete(taskID)
}

// Import replaces the draft with an uploaded file and queues its text for
// storage. Opens the session if needed.
func (m *Manager) Import(ctx context.Context, taskID, filename string, r io.Reader) (State, error) {
	p, err := parser.ForFile(filename)
	if err != nil {
		return State{}, err
	}
	if pp, ok := p.(*parser.PDFParser); ok {
		pp.FallbackPdftotext = m.pdfFallback
	}
	blocks, err := p.Parse(r, filename)
	if err != nil {
		return State{}, fmt.Errorf("import %s: %w", filename, err)
	}

	if m.store.Get(taskID) == nil {
		if _, err := m.Open(ctx, taskID, ""); err != nil {
			return State{}, err
		}
	}
	return m.do(taskID, func(s *Session) error {
		return s.safely("import", func() error {
			s.blocks = blocks
			s.clearAnnotations()
			s.pending = nil
			s.notice = ""
			m.persistDraft(s, document.NonEmptyText(s.blocks))
			m.log.Info("draft imported", "task_id", s.TaskID, "file", filename, "blocks", len(blocks))
			return nil
		})
	})
}

// Save stores the draft synchronously. When blocks is non-nil it replaces
// the session's draft first. Saving clears components, results and the
// selection, since they describe the previous text.
func (m *Manager) Save(ctx context.Context, taskID string, blocks []document.Block) (State, error) {
	s, err := m.session(taskID)
	if err != nil {
		return State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	next := s.blocks
	if blocks != nil {
		next = document.Stamp(document.Clone(blocks))
		if err := document.Validate(next); err != nil {
			return s.snapshot(), fmt.Errorf("save draft: %w", err)
		}
	}
	text := document.NonEmptyText(next)
	if text == "" {
		return s.snapshot(), ErrEmptyDraft
	}
	if err := m.blobs.Put(ctx, m.key(s, blobstore.DraftPath), []byte(text)); err != nil {
		return s.snapshot(), fmt.Errorf("save draft: %w", err)
	}
	s.blocks = next
	s.clearAnnotations()
	m.log.Info("draft saved", "task_id", s.TaskID, "bytes", len(text))
	return s.snapshot(), nil
}

// Render writes the draft in format f.
func (m *Manager) Render(taskID string, f render.Format, w io.Writer) error {
	s, err := m.session(taskID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	blocks := document.Clone(s.blocks)
	s.mu.Unlock()
	return render.Render(w, f, blocks, m.colors)
}

// LocateResult reports where a text sits in the draft.
type LocateResult struct {
	Found       bool                `json:"found"`
	Loose       bool                `json:"loose,omitempty"`
	Text        string              `json:"text,omitempty"`
	Spans       []locate.Span       `json:"spans,omitempty"`
	Suggestions []locate.Suggestion `json:"suggestions,omitempty"`
}

// Locate finds q in the session's draft, with suggestions when it is not
// there.
func (m *Manager) Locate(taskID, q string) (LocateResult, error) {
	s, err := m.session(taskID)
	if err != nil {
		return LocateResult{}, err
	}
	s.mu.Lock()
	blocks := document.Clone(s.blocks)
	s.mu.Unlock()
	return LocateIn(blocks, q), nil
}

// LocateIn finds q in blocks.
func LocateIn(blocks []document.Block, q string) LocateResult {
	match, err := locate.Locate(q, blocks)
	if err != nil {
		return LocateResult{Suggestions: locate.Suggest(q, blocks, 3)}
	}
	return LocateResult{
		Found: true,
		Loose: match.Loose,
		Text:  match.Slice(),
		Spans: match.Overlaps(),
	}
}

// Reset puts the session back to the reset paragraph.
func (m *Manager) Reset(taskID, reason string) (State, error) {
	return m.do(taskID, func(s *Session) error {
		if reason == "" {
			reason = "reset requested"
		}
		s.reset(reason)
		m.log.Warn("session reset", "task_id", s.TaskID, "reason", reason)
		return nil
	})
}

// ResetColors forgets every dimension colour assignment.
func (m *Manager) ResetColors() {
	m.colors.Reset()
}

// logMissing reports components whose content could not be found in the
// draft, with the closest blocks.
func (m *Manager) logMissing(s *Session, missing []string) {
	for _, id := range missing {
		c, _ := s.reg.Get(id)
		var best string
		if sug := locate.Suggest(c.Content, s.blocks, 1); len(sug) > 0 {
			best = sug[0].Text
		}
		m.log.Warn("component not found in draft", "task_id", s.TaskID, "component_id", id, "closest", best)
	}
}
